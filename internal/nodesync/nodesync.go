package nodesync

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"snapback/internal/metrics"
	"snapback/internal/replica"
	"snapback/internal/storage"
	"snapback/internal/writelock"
)

const DefaultConcurrency = 10

var syncsTotal = metrics.NewCounter(
	"secondary_syncs_total",
	"sync",
	"Syncs applied from a primary by outcome",
	[]string{"outcome"},
)

// Result describes one finished sync.
type Result struct {
	Wallet   string
	Imported int
	Clock    int64
	// Skipped is set when another write path held the wallet's lock.
	Skipped bool
}

// Runner pulls records from primaries into the local store.
type Runner struct {
	store       storage.Store
	exporter    Exporter
	lock        *writelock.Lock
	maxRange    int64
	concurrency int64
	logger      *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
}

// Opt configures a Runner.
type Opt func(*Runner)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Opt {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithConcurrency caps the number of syncs Schedule runs at once.
func WithConcurrency(n int) Opt {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = int64(n)
		}
	}
}

// New creates a Runner. maxRange caps the records applied by one sync.
func New(store storage.Store, exporter Exporter, lock *writelock.Lock, maxRange int64, opts ...Opt) *Runner {
	r := &Runner{
		store:       store,
		exporter:    exporter,
		lock:        lock,
		maxRange:    maxRange,
		concurrency: DefaultConcurrency,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.sem = semaphore.NewWeighted(r.concurrency)
	return r
}

// Sync brings wallet up to date with primary. If the wallet's write lock is
// held the sync is skipped.
func (r *Runner) Sync(ctx context.Context, wallet, primary string) (Result, error) {
	res := Result{Wallet: wallet}
	if err := r.lock.Acquire(ctx, wallet, writelock.SecondarySyncFromPrimary, 0); err != nil {
		var conflict *writelock.ConflictError
		if errors.As(err, &conflict) {
			r.logger.Info("sync skipped, wallet is locked",
				zap.String("wallet", wallet),
				zap.String("holder", string(conflict.Holder)),
			)
			res.Skipped = true
			syncsTotal.WithLabelValues("skipped").Inc()
			return res, nil
		}
		syncsTotal.WithLabelValues("failed").Inc()
		return res, err
	}
	defer func() {
		if err := r.lock.Release(context.WithoutCancel(ctx), wallet); err != nil {
			r.logger.Error("failed to release write lock", zap.String("wallet", wallet), zap.Error(err))
		}
	}()

	res, err := r.pull(ctx, wallet, primary)
	if err != nil {
		syncsTotal.WithLabelValues("failed").Inc()
		return res, err
	}
	syncsTotal.WithLabelValues("completed").Inc()
	return res, nil
}

func (r *Runner) pull(ctx context.Context, wallet, primary string) (Result, error) {
	res := Result{Wallet: wallet}
	local, _, err := r.store.ClockValue(ctx, wallet)
	if err != nil {
		return res, fmt.Errorf("read local clock of %s: %w", wallet, err)
	}
	res.Clock = max(local, 0)

	export, err := r.exporter.Export(ctx, primary, wallet, res.Clock+1)
	if err != nil {
		return res, err
	}
	records := export.Records
	if r.maxRange > 0 && int64(len(records)) > r.maxRange {
		records = records[:r.maxRange]
	}
	if len(records) == 0 {
		r.logger.Debug("secondary already up to date",
			zap.String("wallet", wallet),
			zap.Int64("clock", res.Clock),
			zap.Int64("primaryClock", export.ClockValue),
		)
		return res, nil
	}

	clk, err := r.store.Import(ctx, wallet, records)
	if clk > res.Clock {
		res.Imported = int(clk - res.Clock)
		res.Clock = clk
	}
	if err != nil {
		return res, fmt.Errorf("import %s from %s: %w", wallet, primary, err)
	}
	r.logger.Info("wallet synced from primary",
		zap.String("wallet", wallet),
		zap.String("primary", primary),
		zap.Int("imported", res.Imported),
		zap.Int64("clock", res.Clock),
		zap.Int64("primaryClock", export.ClockValue),
	)
	return res, nil
}

// Schedule starts a sync for every wallet in payload in the background.
func (r *Runner) Schedule(payload replica.SyncPayload) {
	for _, wallet := range payload.Wallet {
		if wallet == "" {
			continue
		}
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if err := r.sem.Acquire(r.ctx, 1); err != nil {
				return
			}
			defer r.sem.Release(1)
			if _, err := r.Sync(r.ctx, wallet, payload.CreatorNodeEndpoint); err != nil {
				r.logger.Error("sync from primary failed",
					zap.String("wallet", wallet),
					zap.String("primary", payload.CreatorNodeEndpoint),
					zap.Error(err),
				)
			}
		}()
	}
}

// Close cancels scheduled syncs and waits for running ones.
func (r *Runner) Close() {
	r.cancel()
	r.wg.Wait()
}

package statemachine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"snapback/internal/discovery"
	"snapback/internal/metrics"
	"snapback/internal/queue"
	"snapback/internal/repair"
	"snapback/internal/replica"
)

// ErrFetchUsers is returned by Tick when neither discovery query path
// produced a valid user list.
var ErrFetchUsers = errors.New("fetch node users")

const (
	DefaultModuloBase   = 24
	DefaultTickDelay    = time.Hour
	DefaultDevTickDelay = 3 * time.Second
)

var (
	ticks = metrics.NewCounter(
		"ticks_total",
		"statemachine",
		"Finished replica set scan ticks by outcome",
		[]string{"outcome"},
	)
	currentSlice = metrics.NewGauge(
		"current_slice",
		"statemachine",
		"Modulo slice of the most recent tick",
		nil,
	)
)

// Config configures the scan.
type Config struct {
	ModuloBase       int           `mapstructure:"modulo-base"`
	TickDelay        time.Duration `mapstructure:"tick-delay"`
	DevMode          bool          `mapstructure:"dev-mode"`
	UserMetadataNode bool          `mapstructure:"user-metadata-node"`
}

// DefaultConfig returns the production configuration.
func DefaultConfig() Config {
	return Config{
		ModuloBase: DefaultModuloBase,
	}
}

// Delay is the pause between the end of one tick and the start of the next.
func (c Config) Delay() time.Duration {
	switch {
	case c.TickDelay > 0:
		return c.TickDelay
	case c.DevMode:
		return DefaultDevTickDelay
	default:
		return DefaultTickDelay
	}
}

// TickResult summarizes one tick.
type TickResult struct {
	Cursor       replica.Cursor
	PrimaryUsers int
	SliceUsers   int
	Reconcile    repair.Result
}

// Orchestrator runs replica set scan ticks one after another.
type Orchestrator struct {
	self       string
	cfg        Config
	fetcher    UserFetcher
	reconciler SliceReconciler
	syncs      SyncQueues
	clock      clockwork.Clock
	logger     *zap.Logger
	intn       func(n int) int

	ticks *queue.Queue[replica.Cursor, TickResult]
	wg    sync.WaitGroup
}

// Opt configures an Orchestrator.
type Opt func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Opt {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithClock sets the clock used to delay ticks.
func WithClock(clock clockwork.Clock) Opt {
	return func(o *Orchestrator) {
		o.clock = clock
	}
}

// WithRand replaces the source of the random starting slice. intn returns a
// value in [0, n).
func WithRand(intn func(n int) int) Opt {
	return func(o *Orchestrator) {
		o.intn = intn
	}
}

// New creates an orchestrator for the node at self.
func New(self string, cfg Config, fetcher UserFetcher, reconciler SliceReconciler, syncs SyncQueues, opts ...Opt) *Orchestrator {
	o := &Orchestrator{
		self:       self,
		cfg:        cfg,
		fetcher:    fetcher,
		reconciler: reconciler,
		syncs:      syncs,
		clock:      clockwork.NewRealClock(),
		logger:     zap.NewNop(),
		intn:       rand.IntN,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.cfg.ModuloBase < 1 {
		o.cfg.ModuloBase = DefaultModuloBase
	}
	// Ticks run unbounded; a slow tick only delays the next one.
	o.ticks = queue.New[replica.Cursor, TickResult]("state-machine",
		queue.WithLogger(o.logger),
		queue.WithClock(o.clock),
		queue.WithHistory(o.cfg.ModuloBase),
		queue.WithEvents(),
	)
	return o
}

// Init clears queue state left from a previous run and starts the tick loop
// at a random slice. User metadata nodes hold no replica sets and do not scan.
func (o *Orchestrator) Init(ctx context.Context) error {
	if o.cfg.UserMetadataNode {
		o.logger.Info("user metadata node, replica set scan disabled")
		return nil
	}
	o.ticks.Obliterate()
	if o.syncs != nil {
		o.syncs.Obliterate()
	}

	o.ticks.Process(ctx, 1, o.process)
	o.wg.Add(1)
	go o.reschedule(ctx)

	first := replica.Cursor{Slice: o.intn(o.cfg.ModuloBase), ModuloBase: o.cfg.ModuloBase}
	if _, err := o.ticks.Add(ctx, first); err != nil {
		return fmt.Errorf("enqueue first tick: %w", err)
	}
	o.logger.Info("replica set scan started",
		zap.Int("slice", first.Slice),
		zap.Int("moduloBase", first.ModuloBase),
		zap.Duration("tickDelay", o.cfg.Delay()),
	)
	return nil
}

// Close stops the tick loop and waits for the running tick.
func (o *Orchestrator) Close() {
	o.ticks.Close()
	o.wg.Wait()
}

// Jobs lists the tick queue.
func (o *Orchestrator) Jobs(statuses ...queue.Status) []queue.JobState[replica.Cursor] {
	return o.ticks.Jobs(statuses...)
}

// reschedule enqueues the next slice whenever a tick finishes.
func (o *Orchestrator) reschedule(ctx context.Context) {
	defer o.wg.Done()
	for ev := range o.ticks.Events() {
		if ev.Kind != queue.EventCompleted && ev.Kind != queue.EventFailed {
			continue
		}
		next := ev.Job.Data.Next()
		if _, err := o.ticks.Add(ctx, next, queue.Delay(o.cfg.Delay())); err != nil {
			if !errors.Is(err, queue.ErrClosed) {
				o.logger.Error("failed to schedule next tick", zap.Stringer("cursor", next), zap.Error(err))
			}
			return
		}
	}
}

func (o *Orchestrator) process(ctx context.Context, job *queue.Job[replica.Cursor]) (TickResult, error) {
	start := o.clock.Now()
	res, err := o.Tick(ctx, job.Data)
	outcome := "completed"
	if err != nil {
		outcome = "failed"
		o.logger.Error("tick failed", zap.Stringer("cursor", job.Data), zap.Error(err))
	} else {
		o.logger.Info("tick finished",
			zap.Int("slice", job.Data.Slice),
			zap.Int("primaryUsers", res.PrimaryUsers),
			zap.Int("sliceUsers", res.SliceUsers),
			zap.Int("enqueued", res.Reconcile.Enqueued),
			zap.Int("unreachable", len(res.Reconcile.Unreachable)),
			zap.Duration("took", o.clock.Since(start)),
		)
	}
	ticks.WithLabelValues(outcome).Inc()
	return res, err
}

// Tick reconciles the users in cursor's slice that this node is primary for.
// The caller advances the slice whatever the result.
func (o *Orchestrator) Tick(ctx context.Context, cursor replica.Cursor) (TickResult, error) {
	currentSlice.WithLabelValues().Set(float64(cursor.Slice))
	res := TickResult{Cursor: cursor}

	users, err := discovery.Resolve(ctx, o.fetcher, o.self, o.logger)
	if err != nil {
		return res, fmt.Errorf("%w for %s: %w", ErrFetchUsers, o.self, err)
	}
	primaries := replica.FilterPrimary(users, o.self)
	res.PrimaryUsers = len(primaries)
	if o.syncs != nil {
		o.syncs.RememberReplicaSets(primaries)
	}

	slice := replica.FilterSlice(primaries, cursor.Slice, cursor.ModuloBase)
	res.SliceUsers = len(slice)
	if len(slice) == 0 {
		o.logger.Debug("no users in slice", zap.Int("slice", cursor.Slice))
		return res, nil
	}

	res.Reconcile, err = o.reconciler.Reconcile(ctx, slice)
	if err != nil {
		return res, fmt.Errorf("reconcile slice %d: %w", cursor.Slice, err)
	}
	return res, nil
}

package repair

import (
	"context"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"snapback/internal/clock"
	"snapback/internal/fanout"
	"snapback/internal/replica"
)

// DefaultConcurrency caps the batch clock requests in flight during one pass.
const DefaultConcurrency = 16

// Result summarizes one reconciliation pass.
type Result struct {
	Users       int
	Secondaries int
	// Unreachable lists secondaries whose batch clock request failed. Their
	// users were not compared this pass.
	Unreachable []string
	// Stale maps each secondary to the wallets it trails the primary on.
	Stale      map[string][]string
	Enqueued   int
	Duplicates int
	Failed     int
}

// Reconciler compares primary and secondary clocks and enqueues syncs.
type Reconciler struct {
	self     string
	primary  PrimaryClocks
	client   ClockStatusClient
	enqueuer SyncEnqueuer
	syncType replica.SyncType
	timeout  time.Duration
	limit    int
	clock    clockwork.Clock
	logger   *zap.Logger
}

// Opt configures a Reconciler.
type Opt func(*Reconciler)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Opt {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

// WithClock sets the clock stamped on sync requests.
func WithClock(clock clockwork.Clock) Opt {
	return func(r *Reconciler) {
		r.clock = clock
	}
}

// WithSyncType sets the type of the syncs issued. Default Recurring.
func WithSyncType(t replica.SyncType) Opt {
	return func(r *Reconciler) {
		r.syncType = t
	}
}

// WithRequestTimeout bounds each batch clock request.
func WithRequestTimeout(d time.Duration) Opt {
	return func(r *Reconciler) {
		r.timeout = d
	}
}

// WithConcurrency caps the batch clock requests in flight. Zero removes the
// cap.
func WithConcurrency(n int) Opt {
	return func(r *Reconciler) {
		r.limit = n
	}
}

// NewReconciler creates a Reconciler for the primary at self.
func NewReconciler(self string, primary PrimaryClocks, client ClockStatusClient, enqueuer SyncEnqueuer, opts ...Opt) *Reconciler {
	r := &Reconciler{
		self:     self,
		primary:  primary,
		client:   client,
		enqueuer: enqueuer,
		syncType: replica.Recurring,
		timeout:  fanout.DefaultPerTargetTimeout,
		limit:    DefaultConcurrency,
		clock:    clockwork.NewRealClock(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// walletsBySecondary groups the wallets of users by secondary endpoint.
func (r *Reconciler) walletsBySecondary(users []replica.Assignment) map[string][]string {
	out := make(map[string][]string)
	for _, u := range users {
		for _, s := range u.Secondaries() {
			if s == r.self {
				continue
			}
			out[s] = append(out[s], u.Wallet)
		}
	}
	return out
}

// Reconcile compares the clocks of users, which must have this node as
// primary, and enqueues a sync for every secondary that needs one. The only
// error returned is a failure to read local clocks; everything else is
// isolated per secondary or per user and reported in Result.
func (r *Reconciler) Reconcile(ctx context.Context, users []replica.Assignment) (Result, error) {
	res := Result{Users: len(users), Stale: make(map[string][]string)}
	if len(users) == 0 {
		return res, nil
	}

	wallets := make([]string, 0, len(users))
	for _, u := range users {
		wallets = append(wallets, u.Wallet)
	}
	primaryClocks, err := r.primary.ClockValues(ctx, wallets)
	if err != nil {
		return res, err
	}

	query := r.walletsBySecondary(users)
	res.Secondaries = len(query)
	targets := make([]string, 0, len(query))
	for s := range query {
		targets = append(targets, s)
	}
	sort.Strings(targets)

	// one batched request per secondary
	batch := fanout.Do(ctx, targets, func(ctx context.Context, secondary string) (clock.Snapshot, error) {
		r.logger.Debug("requesting clocks", zap.String("secondary", secondary), zap.Int("wallets", len(query[secondary])))
		return r.client.BatchClockStatus(ctx, secondary, query[secondary])
	}, fanout.WithTimeout(r.timeout), fanout.WithLimit(r.limit))
	for _, s := range batch.Failed() {
		r.logger.Warn("batch clock status failed, skipping secondary this pass",
			zap.String("secondary", s), zap.Error(batch.Errors[s]))
	}
	res.Unreachable = batch.Failed()

	now := r.clock.Now()
	for _, u := range users {
		primaryClock, ok := primaryClocks.Get(u.Wallet)
		if !ok {
			primaryClock = clock.Unreported
		}
		for _, secondary := range u.Secondaries() {
			if secondary == r.self {
				continue
			}
			snapshot, ok := batch.Values[secondary]
			if !ok {
				continue
			}
			if !clock.NeedsSyncFrom(primaryClock, snapshot, u.Wallet) {
				continue
			}
			res.Stale[secondary] = append(res.Stale[secondary], u.Wallet)

			req := replica.NewSyncRequest(r.syncType, u.Wallet, r.self, secondary, now)
			_, existing, err := r.enqueuer.EnqueueSync(ctx, req)
			switch {
			case err != nil:
				res.Failed++
				r.logger.Error("enqueue sync failed",
					zap.Int64("user", u.UserID),
					zap.String("wallet", u.Wallet),
					zap.String("secondary", secondary),
					zap.Error(err),
				)
			case existing:
				res.Duplicates++
			default:
				res.Enqueued++
			}
		}
	}

	r.logger.Info("reconciled slice",
		zap.Int("users", res.Users),
		zap.Int("secondaries", res.Secondaries),
		zap.Int("unreachable", len(res.Unreachable)),
		zap.Int("enqueued", res.Enqueued),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

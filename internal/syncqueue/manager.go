package syncqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"snapback/internal/dedup"
	"snapback/internal/queue"
	"snapback/internal/replica"
)

// ErrInvalidJob marks a job whose data cannot be processed.
var ErrInvalidJob = errors.New("invalid sync job")

// Config configures the sync queues.
type Config struct {
	ManualConcurrency        int           `mapstructure:"manual-concurrency"`
	RecurringConcurrency     int           `mapstructure:"recurring-concurrency"`
	MaxExportClockValueRange int64         `mapstructure:"max-export-clock-value-range"`
	MonitorDuration          time.Duration `mapstructure:"monitor-duration"`
	MonitorRetryDelay        time.Duration `mapstructure:"monitor-retry-delay"`
	ReplicaCacheSize         int           `mapstructure:"replica-cache-size"`
	History                  int           `mapstructure:"history"`
}

// DefaultConfig returns the default sync queue configuration.
func DefaultConfig() Config {
	return Config{
		ManualConcurrency:        15,
		RecurringConcurrency:     5,
		MaxExportClockValueRange: DefaultMaxExportClockValueRange,
		MonitorDuration:          DefaultMonitorDuration,
		MonitorRetryDelay:        DefaultMonitorRetryDelay,
		ReplicaCacheSize:         10000,
		History:                  500,
	}
}

// Outcome is the result of a finished sync job.
type Outcome struct {
	PrimaryClock           int64
	AdditionalSyncRequired bool
	Requeued               bool
}

// Job is a sync job handle.
type Job = queue.Job[replica.SyncRequest]

type syncQueue = queue.Queue[replica.SyncRequest, Outcome]

// Manager owns the manual and recurring sync queues and their deduplicator.
type Manager struct {
	self    string
	cfg     Config
	client  SecondaryClient
	primary PrimaryClocks
	monitor *Monitor
	clock   clockwork.Clock
	logger  *zap.Logger

	manual    *syncQueue
	recurring *syncQueue
	dedup     *dedup.Deduplicator[*Job]
	replicas  *lru.Cache[string, replica.Assignment]
}

// Opt configures a Manager.
type Opt func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Opt {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock sets the clock used by the queues and the monitor.
func WithClock(clock clockwork.Clock) Opt {
	return func(m *Manager) {
		m.clock = clock
	}
}

// NewManager creates the queues. Call Start to begin processing.
func NewManager(self string, cfg Config, client SecondaryClient, primary PrimaryClocks, opts ...Opt) (*Manager, error) {
	m := &Manager{
		self:    self,
		cfg:     cfg,
		client:  client,
		primary: primary,
		clock:   clockwork.NewRealClock(),
		logger:  zap.NewNop(),
		dedup:   dedup.New[*Job](),
	}
	for _, opt := range opts {
		opt(m)
	}

	size := cfg.ReplicaCacheSize
	if size <= 0 {
		size = DefaultConfig().ReplicaCacheSize
	}
	replicas, err := lru.New[string, replica.Assignment](size)
	if err != nil {
		return nil, fmt.Errorf("create replica set cache: %w", err)
	}
	m.replicas = replicas

	m.monitor = NewMonitor(client, m.clock, m.logger.Named("monitor"),
		cfg.MaxExportClockValueRange, cfg.MonitorDuration, cfg.MonitorRetryDelay)
	newQueue := func(name string) *syncQueue {
		return queue.New[replica.SyncRequest, Outcome](name,
			queue.WithLogger(m.logger),
			queue.WithClock(m.clock),
			queue.WithHistory(cfg.History),
		)
	}
	m.manual = newQueue("manual-sync")
	m.recurring = newQueue("recurring-sync")
	return m, nil
}

// Start runs the queue workers until ctx is done or Close is called.
func (m *Manager) Start(ctx context.Context) {
	m.manual.Process(ctx, max(m.cfg.ManualConcurrency, 1), m.process)
	m.recurring.Process(ctx, max(m.cfg.RecurringConcurrency, 1), m.process)
}

// Close stops both queues and waits for running jobs.
func (m *Manager) Close() {
	m.manual.Close()
	m.recurring.Close()
}

func (m *Manager) queueFor(t replica.SyncType) *syncQueue {
	if t == replica.Manual {
		return m.manual
	}
	return m.recurring
}

// EnqueueSync queues req unless a sync with the same type, wallet and
// secondary is still waiting. In that case it returns the waiting job and
// existing is true.
func (m *Manager) EnqueueSync(ctx context.Context, req replica.SyncRequest) (job *Job, existing bool, err error) {
	if err := req.Validate(); err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}
	q := m.queueFor(req.Type)
	job, existing, err = m.dedup.GetOrRecord(dedup.KeyOf(req), func() (*Job, error) {
		return q.Add(ctx, req)
	})
	if err != nil {
		return nil, false, fmt.Errorf("enqueue %s sync for %s: %w", req.Type, req.Wallet, err)
	}
	if existing {
		deduplicated.WithLabelValues(string(req.Type)).Inc()
		m.logger.Debug("sync already waiting",
			zap.String("wallet", req.Wallet),
			zap.String("secondary", req.SecondaryEndpoint),
			zap.String("job", job.ID),
		)
		return job, true, nil
	}
	enqueued.WithLabelValues(string(req.Type)).Inc()
	return job, false, nil
}

// process runs one sync job.
func (m *Manager) process(ctx context.Context, job *Job) (Outcome, error) {
	req := job.Data
	// the job is active now; an identical request must queue a new job
	m.dedup.Remove(dedup.KeyOf(req))

	outcome, err := m.sync(ctx, req)
	label := "completed"
	switch {
	case errors.Is(err, ErrInvalidJob):
		label = "invalid"
	case err != nil:
		label = "failed"
	case outcome.AdditionalSyncRequired:
		label = "incomplete"
	}
	jobOutcomes.WithLabelValues(string(req.Type), label).Inc()
	if err != nil {
		m.logger.Error("sync job failed",
			zap.String("job", job.ID),
			zap.String("wallet", req.Wallet),
			zap.String("secondary", req.SecondaryEndpoint),
			zap.Error(err),
		)
	}
	return outcome, err
}

func (m *Manager) sync(ctx context.Context, req replica.SyncRequest) (Outcome, error) {
	if err := req.Validate(); err != nil {
		return Outcome{}, fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}

	primaryClock, ok, err := m.primary.ClockValue(ctx, req.Wallet)
	if err != nil {
		return Outcome{}, fmt.Errorf("read primary clock: %w", err)
	}
	if !ok {
		m.logger.Debug("wallet has no local state", zap.String("wallet", req.Wallet))
	}
	outcome := Outcome{PrimaryClock: primaryClock}

	if err := m.client.RequestSync(ctx, req.SecondaryEndpoint, req.Payload); err != nil {
		return outcome, err
	}

	outcome.AdditionalSyncRequired = m.monitor.AdditionalSyncRequired(ctx,
		req.Wallet, primaryClock, req.SecondaryEndpoint, req.Type)
	if !outcome.AdditionalSyncRequired {
		return outcome, nil
	}

	next := replica.NewSyncRequest(req.Type, req.Wallet, req.PrimaryEndpoint, req.SecondaryEndpoint, m.clock.Now())
	if _, _, err := m.EnqueueSync(ctx, next); err != nil {
		return outcome, fmt.Errorf("re-enqueue: %w", err)
	}
	outcome.Requeued = true
	return outcome, nil
}

// RememberReplicaSets caches the replica sets of the users this node is
// primary for, so client writes can trigger manual syncs.
func (m *Manager) RememberReplicaSets(users []replica.Assignment) {
	for _, u := range users {
		if u.Primary == m.self {
			m.replicas.Add(u.Wallet, u)
		}
	}
}

// IssueManualSyncs enqueues a manual sync of wallet to each of its
// secondaries. It returns the jobs, or nothing when the wallet's replica set
// is not known yet.
func (m *Manager) IssueManualSyncs(ctx context.Context, wallet string) ([]*Job, error) {
	u, ok := m.replicas.Get(wallet)
	if !ok {
		m.logger.Debug("no replica set cached, skipping manual sync", zap.String("wallet", wallet))
		return nil, nil
	}
	var (
		jobs []*Job
		errs []error
	)
	now := m.clock.Now()
	for _, secondary := range u.Secondaries() {
		if secondary == m.self {
			continue
		}
		job, _, err := m.EnqueueSync(ctx, replica.NewSyncRequest(replica.Manual, wallet, m.self, secondary, now))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, errors.Join(errs...)
}

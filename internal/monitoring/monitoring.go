package monitoring

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"snapback/internal/metrics"
	"snapback/internal/queue"
	"snapback/internal/repair"
	"snapback/internal/replica"
)

// ErrNoDiscovery is returned for a job that names no discovery node.
var ErrNoDiscovery = errors.New("job has no discovery node endpoint")

const (
	DefaultStartDelay     = 10 * time.Second
	DefaultMaxJobRuntime  = 30 * time.Minute
	DefaultMaxUsersPerJob = 10000
)

const subsystem = "state_monitoring"

var (
	jobsTotal = metrics.NewCounter(
		"jobs_total",
		subsystem,
		"Finished state monitoring jobs by outcome",
		[]string{"outcome"},
	)
	lastProcessedUser = metrics.NewGauge(
		"last_processed_user_id",
		subsystem,
		"Cursor of the most recent state monitoring job",
		nil,
	)
)

// Config configures the state monitoring queue. A RateLimitJobs of zero
// keeps the queue paused.
type Config struct {
	ModuloBase        int           `mapstructure:"modulo-base"`
	RateLimitJobs     int           `mapstructure:"rate-limit-jobs-per-interval"`
	RateLimitInterval time.Duration `mapstructure:"rate-limit-interval"`
	MaxUsersPerJob    int           `mapstructure:"max-users-per-job"`
	StartDelay        time.Duration `mapstructure:"start-delay"`
	MaxJobRuntime     time.Duration `mapstructure:"max-job-runtime"`
	History           int           `mapstructure:"history"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		ModuloBase:        24,
		RateLimitJobs:     1,
		RateLimitInterval: time.Minute,
		MaxUsersPerJob:    DefaultMaxUsersPerJob,
		StartDelay:        DefaultStartDelay,
		MaxJobRuntime:     DefaultMaxJobRuntime,
		History:           500,
	}
}

// JobData is the payload carried from one job to the next.
type JobData struct {
	replica.Cursor
	DiscoveryEndpoint string `json:"discoveryNodeEndpoint"`
}

// Result is what a finished job hands to its successor.
type Result struct {
	LastProcessedUserID int64 `json:"lastProcessedUserId"`
	Users               int   `json:"users"`
	SliceUsers          int   `json:"sliceUsers"`
	Reconcile           repair.Result
}

// NextJob returns the successor of a finished job. A successful job moves
// the cursor to its result; a failed one keeps the cursor. The slice always
// advances.
func NextJob(prev JobData, res Result, succeeded bool) JobData {
	next := prev
	next.Cursor = prev.Cursor.Next()
	if succeeded {
		next.LastProcessedUserID = res.LastProcessedUserID
	}
	return next
}

// Processor runs one job.
type Processor func(ctx context.Context, data JobData) (Result, error)

// Queue owns the chain of state monitoring jobs.
type Queue struct {
	self       string
	cfg        Config
	discovery  UserPager
	reconciler SliceReconciler
	replicas   ReplicaSets
	processor  Processor
	clock      clockwork.Clock
	logger     *zap.Logger
	rand       *rand.Rand

	q  *queue.Queue[JobData, Result]
	wg sync.WaitGroup
}

// Opt configures a Queue.
type Opt func(*Queue)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Opt {
	return func(q *Queue) {
		q.logger = logger
	}
}

// WithClock sets the clock.
func WithClock(clock clockwork.Clock) Opt {
	return func(q *Queue) {
		q.clock = clock
	}
}

// WithProcessor replaces the default job processor.
func WithProcessor(p Processor) Opt {
	return func(q *Queue) {
		q.processor = p
	}
}

// WithReplicaSets hands the primary users of every page to r.
func WithReplicaSets(r ReplicaSets) Opt {
	return func(q *Queue) {
		q.replicas = r
	}
}

// WithRand sets the source of the random starting cursor.
func WithRand(r *rand.Rand) Opt {
	return func(q *Queue) {
		q.rand = r
	}
}

// New creates the queue for the node at self.
func New(self string, cfg Config, discovery UserPager, reconciler SliceReconciler, opts ...Opt) *Queue {
	q := &Queue{
		self:       self,
		cfg:        cfg,
		discovery:  discovery,
		reconciler: reconciler,
		clock:      clockwork.NewRealClock(),
		logger:     zap.NewNop(),
		rand:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.cfg.ModuloBase < 1 {
		q.cfg.ModuloBase = 24
	}
	if q.processor == nil {
		q.processor = q.process
	}
	q.q = queue.New[JobData, Result]("state-monitoring",
		queue.WithLogger(q.logger),
		queue.WithClock(q.clock),
		queue.WithLimiter(q.cfg.RateLimitJobs, q.cfg.RateLimitInterval),
		queue.WithStallTimeout(q.cfg.MaxJobRuntime),
		queue.WithHistory(q.cfg.History),
		queue.WithEvents(),
	)
	return q
}

// Start clears old state and enqueues the first job at a random user id and
// slice after the start delay. With a zero rate limit the queue is paused and
// nothing is enqueued.
func (q *Queue) Start(ctx context.Context) error {
	q.q.Obliterate()
	if q.cfg.RateLimitJobs == 0 {
		q.q.Pause()
		q.logger.Info("state monitoring rate limit is zero, queue paused")
		return nil
	}

	q.q.Process(ctx, 1, q.run)
	q.wg.Add(1)
	go q.chain(ctx)

	latest, err := q.discovery.LatestUserID(ctx)
	if err != nil {
		q.logger.Warn("could not read latest user id, starting from the first user", zap.Error(err))
		latest = 0
	}
	first := JobData{
		Cursor: replica.Cursor{
			Slice:               q.rand.IntN(q.cfg.ModuloBase),
			ModuloBase:          q.cfg.ModuloBase,
			LastProcessedUserID: q.rand.Int64N(max(latest, 0) + 1),
		},
		DiscoveryEndpoint: q.discovery.Endpoint(),
	}
	if _, err := q.q.Add(ctx, first, queue.Delay(q.cfg.StartDelay)); err != nil {
		return fmt.Errorf("enqueue first state monitoring job: %w", err)
	}
	q.logger.Info("state monitoring started",
		zap.Stringer("cursor", first.Cursor),
		zap.Int64("latestUserId", latest),
		zap.Duration("startDelay", q.cfg.StartDelay),
	)
	return nil
}

// Close stops the chain and waits for the running job.
func (q *Queue) Close() {
	q.q.Close()
	q.wg.Wait()
}

// Jobs lists the queue.
func (q *Queue) Jobs(statuses ...queue.Status) []queue.JobState[JobData] {
	return q.q.Jobs(statuses...)
}

// IsPaused reports whether the queue is paused.
func (q *Queue) IsPaused() bool {
	return q.q.IsPaused()
}

func (q *Queue) chain(ctx context.Context) {
	defer q.wg.Done()
	for ev := range q.q.Events() {
		var next JobData
		switch ev.Kind {
		case queue.EventCompleted:
			next = NextJob(ev.Job.Data, ev.Result, true)
		case queue.EventFailed:
			next = NextJob(ev.Job.Data, Result{}, false)
		default:
			continue
		}
		if _, err := q.q.Add(ctx, next); err != nil {
			if !errors.Is(err, queue.ErrClosed) {
				q.logger.Error("failed to enqueue next state monitoring job",
					zap.Stringer("cursor", next.Cursor), zap.Error(err))
			}
			return
		}
	}
}

func (q *Queue) run(ctx context.Context, job *queue.Job[JobData]) (Result, error) {
	q.logger.Info("state monitoring job started",
		zap.String("job", job.ID),
		zap.Stringer("cursor", job.Data.Cursor),
		zap.String("discovery", job.Data.DiscoveryEndpoint),
	)
	res, err := q.processor(ctx, job.Data)
	if err != nil {
		jobsTotal.WithLabelValues("failed").Inc()
		q.logger.Error("state monitoring job failed", zap.String("job", job.ID), zap.Error(err))
		return res, err
	}
	jobsTotal.WithLabelValues("completed").Inc()
	lastProcessedUser.WithLabelValues().Set(float64(res.LastProcessedUserID))
	return res, nil
}

// process pages the users after the job's cursor and reconciles the ones in
// its slice. An empty page wraps the cursor back to the first user.
func (q *Queue) process(ctx context.Context, data JobData) (Result, error) {
	if data.DiscoveryEndpoint == "" {
		return Result{}, ErrNoDiscovery
	}
	users, err := q.discovery.UsersPage(ctx, q.self, data.LastProcessedUserID, q.cfg.MaxUsersPerJob)
	if err != nil {
		return Result{}, fmt.Errorf("page users after %d: %w", data.LastProcessedUserID, err)
	}
	res := Result{Users: len(users)}
	if len(users) == 0 {
		return res, nil
	}
	for _, u := range users {
		res.LastProcessedUserID = max(res.LastProcessedUserID, u.UserID)
	}

	primaries := replica.FilterPrimary(users, q.self)
	if q.replicas != nil {
		q.replicas.RememberReplicaSets(primaries)
	}
	slice := replica.FilterSlice(primaries, data.Slice, data.ModuloBase)
	res.SliceUsers = len(slice)
	if len(slice) == 0 {
		return res, nil
	}
	res.Reconcile, err = q.reconciler.Reconcile(ctx, slice)
	if err != nil {
		return res, fmt.Errorf("reconcile slice %d: %w", data.Slice, err)
	}
	return res, nil
}

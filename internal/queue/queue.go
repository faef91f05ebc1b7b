package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrClosed is returned when adding to a closed queue.
var ErrClosed = errors.New("queue closed")

// Status is the state of a job inside the queue.
type Status int

const (
	StatusWaiting Status = iota
	StatusDelayed
	StatusActive
	StatusCompleted
	StatusFailed
)

// String returns the string representation of Status.
func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusDelayed:
		return "delayed"
	case StatusActive:
		return "active"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Job is the immutable handle of an enqueued job.
type Job[P any] struct {
	ID         string
	Data       P
	EnqueuedAt time.Time
	Delay      time.Duration
}

// JobState is a point-in-time view of a job.
type JobState[P any] struct {
	Job        *Job[P]
	Status     Status
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
}

// Handler processes one job and returns its result. A returned error marks
// the job failed.
type Handler[P, R any] func(ctx context.Context, job *Job[P]) (R, error)

type entry[P any] struct {
	job        *Job[P]
	status     Status
	startedAt  time.Time
	finishedAt time.Time
	err        error
	timer      clockwork.Timer
}

func (e *entry[P]) state() JobState[P] {
	return JobState[P]{
		Job:        e.job,
		Status:     e.status,
		StartedAt:  e.startedAt,
		FinishedAt: e.finishedAt,
		Err:        e.err,
	}
}

type options struct {
	logger       *zap.Logger
	clock        clockwork.Clock
	limiter      *rate.Limiter
	stallTimeout time.Duration
	history      int
	events       bool
}

// Opt configures a Queue.
type Opt func(*options)

// WithLogger sets the queue logger.
func WithLogger(logger *zap.Logger) Opt {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock sets the clock used for delayed jobs and timestamps.
func WithClock(clock clockwork.Clock) Opt {
	return func(o *options) {
		o.clock = clock
	}
}

// WithLimiter allows at most max jobs to start per interval.
func WithLimiter(max int, per time.Duration) Opt {
	return func(o *options) {
		if max <= 0 || per <= 0 {
			return
		}
		o.limiter = rate.NewLimiter(rate.Every(per/time.Duration(max)), max)
	}
}

// WithStallTimeout bounds a single job run. A job that exceeds it is
// reported stalled and failed; it is never retried by the queue.
func WithStallTimeout(d time.Duration) Opt {
	return func(o *options) {
		o.stallTimeout = d
	}
}

// WithHistory keeps up to n finished jobs for inspection.
func WithHistory(n int) Opt {
	return func(o *options) {
		o.history = n
	}
}

// WithEvents enables the Events channel.
func WithEvents() Opt {
	return func(o *options) {
		o.events = true
	}
}

type jobOptions struct {
	delay time.Duration
}

// JobOpt configures a single Add call.
type JobOpt func(*jobOptions)

// Delay holds the job back for d before it becomes waiting.
func Delay(d time.Duration) JobOpt {
	return func(o *jobOptions) {
		o.delay = d
	}
}

// Queue is an in-process job queue.
type Queue[P, R any] struct {
	name         string
	logger       *zap.Logger
	clock        clockwork.Clock
	limiter      *rate.Limiter
	stallTimeout time.Duration

	mu      sync.Mutex
	waiting []*entry[P]
	delayed map[string]*entry[P]
	active  map[string]*entry[P]
	history *lru.Cache[string, *entry[P]]
	paused  bool
	closed  bool
	cancels []context.CancelFunc

	signal chan struct{}
	done   chan struct{}
	events *pump[Event[P, R]]
	wg     sync.WaitGroup
}

// New creates a queue.
func New[P, R any](name string, opts ...Opt) *Queue[P, R] {
	o := options{
		logger: zap.NewNop(),
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	q := &Queue[P, R]{
		name:         name,
		logger:       o.logger.With(zap.String("queue", name)),
		clock:        o.clock,
		limiter:      o.limiter,
		stallTimeout: o.stallTimeout,
		delayed:      make(map[string]*entry[P]),
		active:       make(map[string]*entry[P]),
		signal:       make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
	if o.history > 0 {
		// lru.New only fails on a non-positive size
		q.history, _ = lru.New[string, *entry[P]](o.history)
	}
	if o.events {
		q.events = newPump[Event[P, R]]()
	}
	return q
}

// Name returns the queue name.
func (q *Queue[P, R]) Name() string {
	return q.name
}

// Add enqueues a job and returns its handle.
func (q *Queue[P, R]) Add(ctx context.Context, data P, opts ...JobOpt) (*Job[P], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var jo jobOptions
	for _, opt := range opts {
		opt(&jo)
	}

	job := &Job[P]{
		ID:         uuid.NewString(),
		Data:       data,
		EnqueuedAt: q.clock.Now(),
		Delay:      jo.delay,
	}
	e := &entry[P]{job: job, status: StatusWaiting}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, ErrClosed
	}
	if job.Delay > 0 {
		e.status = StatusDelayed
		q.delayed[job.ID] = e
		e.timer = q.clock.AfterFunc(job.Delay, func() { q.promote(job.ID) })
		q.mu.Unlock()
		return job, nil
	}
	q.waiting = append(q.waiting, e)
	q.mu.Unlock()

	q.emit(Event[P, R]{Kind: EventWaiting, Job: job})
	q.wake()
	return job, nil
}

// promote moves a delayed job to the waiting list.
func (q *Queue[P, R]) promote(id string) {
	q.mu.Lock()
	e, ok := q.delayed[id]
	if !ok || q.closed {
		q.mu.Unlock()
		return
	}
	delete(q.delayed, id)
	e.status = StatusWaiting
	e.timer = nil
	q.waiting = append(q.waiting, e)
	q.mu.Unlock()

	q.emit(Event[P, R]{Kind: EventWaiting, Job: e.job})
	q.wake()
}

func (q *Queue[P, R]) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *Queue[P, R]) emit(ev Event[P, R]) {
	if q.events != nil {
		q.events.push(ev)
	}
}

// Events returns the lifecycle event stream. It is nil unless the queue was
// created WithEvents. The channel is closed by Close.
func (q *Queue[P, R]) Events() <-chan Event[P, R] {
	if q.events == nil {
		return nil
	}
	return q.events.out
}

// Process starts concurrency workers running h. Workers stop when ctx is
// cancelled or the queue is closed. Process may be called more than once.
func (q *Queue[P, R]) Process(ctx context.Context, concurrency int, h Handler[P, R]) {
	if concurrency < 1 {
		concurrency = 1
	}
	ctx, cancel := context.WithCancel(ctx)

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		cancel()
		return
	}
	q.cancels = append(q.cancels, cancel)
	q.mu.Unlock()

	for i := 0; i < concurrency; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			q.work(ctx, h)
		}()
	}
}

func (q *Queue[P, R]) work(ctx context.Context, h Handler[P, R]) {
	for {
		e, ok := q.next(ctx)
		if !ok {
			return
		}
		q.run(ctx, h, e)
	}
}

// next blocks until a job can be taken. It returns false on shutdown.
func (q *Queue[P, R]) next(ctx context.Context) (*entry[P], bool) {
	for {
		q.mu.Lock()
		if !q.paused && len(q.waiting) > 0 {
			e := q.waiting[0]
			q.waiting[0] = nil
			q.waiting = q.waiting[1:]
			e.status = StatusActive
			e.startedAt = q.clock.Now()
			q.active[e.job.ID] = e
			more := len(q.waiting) > 0
			q.mu.Unlock()
			if more {
				q.wake()
			}
			return e, true
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, false
		case <-q.done:
			return nil, false
		case <-q.signal:
		}
	}
}

func (q *Queue[P, R]) run(ctx context.Context, h Handler[P, R], e *entry[P]) {
	q.emit(Event[P, R]{Kind: EventActive, Job: e.job})

	if q.limiter != nil {
		if err := q.limiter.Wait(ctx); err != nil {
			q.finish(e, err)
			q.emit(Event[P, R]{Kind: EventFailed, Job: e.job, Err: err})
			return
		}
	}

	hctx := ctx
	if q.stallTimeout > 0 {
		var cancel context.CancelFunc
		hctx, cancel = context.WithTimeout(ctx, q.stallTimeout)
		defer cancel()
	}

	result, err := q.invoke(hctx, h, e.job)
	stalled := q.stallTimeout > 0 && ctx.Err() == nil && errors.Is(hctx.Err(), context.DeadlineExceeded)
	if stalled && err == nil {
		err = fmt.Errorf("job %s exceeded %s", e.job.ID, q.stallTimeout)
	}
	q.finish(e, err)

	switch {
	case stalled:
		q.logger.Error("job stalled", zap.String("job", e.job.ID), zap.Duration("timeout", q.stallTimeout))
		q.emit(Event[P, R]{Kind: EventStalled, Job: e.job, Err: err})
		q.emit(Event[P, R]{Kind: EventFailed, Job: e.job, Err: err})
	case err != nil:
		q.logger.Debug("job failed", zap.String("job", e.job.ID), zap.Error(err))
		q.emit(Event[P, R]{Kind: EventFailed, Job: e.job, Err: err})
	default:
		q.emit(Event[P, R]{Kind: EventCompleted, Job: e.job, Result: result})
	}
}

// invoke runs h, converting a panic into an error.
func (q *Queue[P, R]) invoke(ctx context.Context, h Handler[P, R], job *Job[P]) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("job panicked", zap.String("job", job.ID), zap.Any("panic", r))
			err = fmt.Errorf("job %s panicked: %v", job.ID, r)
		}
	}()
	return h(ctx, job)
}

func (q *Queue[P, R]) finish(e *entry[P], err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.active[e.job.ID]; !ok {
		// obliterated while running
		return
	}
	delete(q.active, e.job.ID)
	e.finishedAt = q.clock.Now()
	e.err = err
	e.status = StatusCompleted
	if err != nil {
		e.status = StatusFailed
	}
	if q.history != nil {
		q.history.Add(e.job.ID, e)
	}
}

// Pause stops workers from taking new jobs. Running jobs finish normally.
func (q *Queue[P, R]) Pause() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.paused = true
}

// IsPaused reports whether the queue is paused.
func (q *Queue[P, R]) IsPaused() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.paused
}

// Obliterate drops every job the queue knows about, including active ones:
// their results are discarded when they finish.
func (q *Queue[P, R]) Obliterate() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, e := range q.delayed {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	n := len(q.waiting) + len(q.delayed) + len(q.active)
	q.waiting = nil
	q.delayed = make(map[string]*entry[P])
	q.active = make(map[string]*entry[P])
	if q.history != nil {
		q.history.Purge()
	}
	q.logger.Debug("queue obliterated", zap.Int("dropped", n))
}

// Jobs returns the jobs in the given statuses, or all jobs when none are
// given. Waiting jobs are returned in queue order.
func (q *Queue[P, R]) Jobs(statuses ...Status) []JobState[P] {
	want := make(map[Status]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	match := func(s Status) bool { return len(want) == 0 || want[s] }

	q.mu.Lock()
	defer q.mu.Unlock()

	var out []JobState[P]
	if match(StatusWaiting) {
		for _, e := range q.waiting {
			out = append(out, e.state())
		}
	}
	if match(StatusDelayed) {
		for _, e := range q.delayed {
			out = append(out, e.state())
		}
	}
	if match(StatusActive) {
		for _, e := range q.active {
			out = append(out, e.state())
		}
	}
	if q.history != nil && (match(StatusCompleted) || match(StatusFailed)) {
		for _, id := range q.history.Keys() {
			if e, ok := q.history.Peek(id); ok && match(e.status) {
				out = append(out, e.state())
			}
		}
	}
	return out
}

// Close stops all workers and waits for running jobs to return.
func (q *Queue[P, R]) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	for _, e := range q.delayed {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	cancels := q.cancels
	q.cancels = nil
	q.mu.Unlock()

	close(q.done)
	for _, cancel := range cancels {
		cancel()
	}
	q.wg.Wait()
	if q.events != nil {
		q.events.close()
	}
}

package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func collect[P, R any](t *testing.T, q *Queue[P, R], n int, kinds ...EventKind) []Event[P, R] {
	t.Helper()
	want := make(map[EventKind]bool)
	for _, k := range kinds {
		want[k] = true
	}
	var out []Event[P, R]
	timeout := time.After(5 * time.Second)
	for len(out) < n {
		select {
		case ev := <-q.Events():
			if len(want) == 0 || want[ev.Kind] {
				out = append(out, ev)
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %d events, got %d", n, len(out))
		}
	}
	return out
}

func TestQueue_ProcessesInOrder(t *testing.T) {
	q := New[int, int]("test", WithLogger(zaptest.NewLogger(t)), WithEvents())
	defer q.Close()

	for i := 1; i <= 3; i++ {
		_, err := q.Add(context.Background(), i)
		require.NoError(t, err)
	}
	q.Process(context.Background(), 1, func(_ context.Context, job *Job[int]) (int, error) {
		return job.Data * 10, nil
	})

	events := collect(t, q, 3, EventCompleted)
	for i, ev := range events {
		assert.Equal(t, (i+1)*10, ev.Result)
	}
	assert.Empty(t, q.Jobs(StatusWaiting, StatusActive))
}

func TestQueue_FailedJobDoesNotStopQueue(t *testing.T) {
	q := New[string, struct{}]("test", WithEvents(), WithHistory(10))
	defer q.Close()

	_, err := q.Add(context.Background(), "boom")
	require.NoError(t, err)
	_, err = q.Add(context.Background(), "panic")
	require.NoError(t, err)
	_, err = q.Add(context.Background(), "ok")
	require.NoError(t, err)

	q.Process(context.Background(), 1, func(_ context.Context, job *Job[string]) (struct{}, error) {
		switch job.Data {
		case "boom":
			return struct{}{}, errors.New("boom")
		case "panic":
			panic("unexpected")
		}
		return struct{}{}, nil
	})

	events := collect(t, q, 3, EventCompleted, EventFailed)
	assert.Equal(t, EventFailed, events[0].Kind)
	assert.EqualError(t, events[0].Err, "boom")
	assert.Equal(t, EventFailed, events[1].Kind)
	assert.ErrorContains(t, events[1].Err, "panicked")
	assert.Equal(t, EventCompleted, events[2].Kind)

	assert.Len(t, q.Jobs(StatusFailed), 2)
	assert.Len(t, q.Jobs(StatusCompleted), 1)
}

func TestQueue_Concurrency(t *testing.T) {
	q := New[int, struct{}]("test")
	defer q.Close()

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	release := make(chan struct{})
	wg.Add(6)
	for i := 0; i < 6; i++ {
		_, err := q.Add(context.Background(), i)
		require.NoError(t, err)
	}
	q.Process(context.Background(), 3, func(context.Context, *Job[int]) (struct{}, error) {
		defer wg.Done()
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		running.Add(-1)
		return struct{}{}, nil
	})

	require.Eventually(t, func() bool { return running.Load() == 3 }, time.Second, time.Millisecond)
	assert.Len(t, q.Jobs(StatusActive), 3)
	assert.Len(t, q.Jobs(StatusWaiting), 3)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(3), peak.Load())
}

func TestQueue_Delay(t *testing.T) {
	clock := clockwork.NewFakeClock()
	q := New[string, struct{}]("test", WithClock(clock), WithEvents())
	defer q.Close()

	job, err := q.Add(context.Background(), "later", Delay(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, time.Hour, job.Delay)

	delayed := q.Jobs(StatusDelayed)
	require.Len(t, delayed, 1)
	assert.Equal(t, job.ID, delayed[0].Job.ID)
	assert.Empty(t, q.Jobs(StatusWaiting))

	clock.Advance(time.Hour)
	ev := collect(t, q, 1, EventWaiting)
	assert.Equal(t, job.ID, ev[0].Job.ID)
	assert.Empty(t, q.Jobs(StatusDelayed))
}

func TestQueue_Pause(t *testing.T) {
	q := New[int, struct{}]("test", WithEvents())
	defer q.Close()

	q.Pause()
	require.True(t, q.IsPaused())
	q.Process(context.Background(), 1, func(context.Context, *Job[int]) (struct{}, error) {
		return struct{}{}, nil
	})
	_, err := q.Add(context.Background(), 1)
	require.NoError(t, err)
	collect(t, q, 1, EventWaiting)

	time.Sleep(20 * time.Millisecond)
	assert.Len(t, q.Jobs(StatusWaiting), 1, "paused queue must not start jobs")
	assert.Empty(t, q.Jobs(StatusActive, StatusCompleted))
}

func TestQueue_Obliterate(t *testing.T) {
	clock := clockwork.NewFakeClock()
	q := New[int, struct{}]("test", WithClock(clock), WithHistory(5))
	defer q.Close()

	for i := 0; i < 3; i++ {
		_, err := q.Add(context.Background(), i)
		require.NoError(t, err)
	}
	_, err := q.Add(context.Background(), 99, Delay(time.Minute))
	require.NoError(t, err)
	require.Len(t, q.Jobs(), 4)

	q.Obliterate()
	assert.Empty(t, q.Jobs())

	clock.Advance(time.Minute)
	time.Sleep(10 * time.Millisecond)
	assert.Empty(t, q.Jobs(), "obliterated delayed job must not resurface")
}

func TestQueue_StallTimeout(t *testing.T) {
	q := New[int, struct{}]("test", WithEvents(), WithStallTimeout(20*time.Millisecond))
	defer q.Close()

	_, err := q.Add(context.Background(), 1)
	require.NoError(t, err)
	q.Process(context.Background(), 1, func(ctx context.Context, _ *Job[int]) (struct{}, error) {
		<-ctx.Done()
		return struct{}{}, nil
	})

	events := collect(t, q, 2, EventStalled, EventFailed)
	assert.Equal(t, EventStalled, events[0].Kind)
	assert.Equal(t, EventFailed, events[1].Kind)
	assert.Error(t, events[1].Err)
}

func TestQueue_Limiter(t *testing.T) {
	q := New[int, struct{}]("test", WithEvents(), WithLimiter(1, 50*time.Millisecond))
	defer q.Close()

	for i := 0; i < 3; i++ {
		_, err := q.Add(context.Background(), i)
		require.NoError(t, err)
	}
	start := time.Now()
	q.Process(context.Background(), 3, func(context.Context, *Job[int]) (struct{}, error) {
		return struct{}{}, nil
	})
	collect(t, q, 3, EventCompleted)
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestQueue_AddAfterClose(t *testing.T) {
	q := New[int, struct{}]("test")
	q.Close()
	_, err := q.Add(context.Background(), 1)
	require.ErrorIs(t, err, ErrClosed)
	q.Close()
}

func TestQueue_CloseStopsWorkers(t *testing.T) {
	q := New[int, struct{}]("test")
	started := make(chan struct{})
	_, err := q.Add(context.Background(), 1)
	require.NoError(t, err)
	q.Process(context.Background(), 2, func(ctx context.Context, _ *Job[int]) (struct{}, error) {
		close(started)
		<-ctx.Done()
		return struct{}{}, ctx.Err()
	})
	<-started

	done := make(chan struct{})
	go func() {
		q.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}
}

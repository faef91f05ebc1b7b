package monitoring

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zaptest"

	"snapback/internal/monitoring/mocks"
	"snapback/internal/queue"
	"snapback/internal/repair"
	"snapback/internal/replica"
)

const (
	self      = "http://self.test"
	discovery = "http://discovery.test"
	sec1      = "http://sec1.test"
	sec2      = "http://sec2.test"
)

type testQueue struct {
	*Queue
	pager      *mocks.MockUserPager
	reconciler *mocks.MockSliceReconciler
	clock      *clockwork.FakeClock
}

func newTestQueue(t *testing.T, cfg Config, opts ...Opt) *testQueue {
	ctrl := gomock.NewController(t)
	tq := &testQueue{
		pager:      mocks.NewMockUserPager(ctrl),
		reconciler: mocks.NewMockSliceReconciler(ctrl),
		clock:      clockwork.NewFakeClock(),
	}
	opts = append([]Opt{WithLogger(zaptest.NewLogger(t)), WithClock(tq.clock)}, opts...)
	tq.Queue = New(self, cfg, tq.pager, tq.reconciler, opts...)
	t.Cleanup(tq.Close)
	return tq
}

func data(id int64, base, slice int) JobData {
	return JobData{
		Cursor:            replica.Cursor{Slice: slice, ModuloBase: base, LastProcessedUserID: id},
		DiscoveryEndpoint: discovery,
	}
}

func TestNextJob(t *testing.T) {
	prev := data(50, 24, 5)

	assert.Equal(t, data(80, 24, 6), NextJob(prev, Result{LastProcessedUserID: 80}, true))
	assert.Equal(t, data(50, 24, 6), NextJob(prev, Result{LastProcessedUserID: 80}, false))
	assert.Equal(t, data(0, 24, 0), NextJob(data(50, 24, 23), Result{}, true), "empty page wraps the cursor")
}

func TestProcess_ReconcilesSliceOfPage(t *testing.T) {
	replicas := mocks.NewMockReplicaSets(gomock.NewController(t))
	tq := newTestQueue(t, DefaultConfig(), WithReplicaSets(replicas))
	users := []replica.Assignment{
		{UserID: 51, Wallet: "a", Primary: self, Secondary1: sec1, Secondary2: sec2},
		{UserID: 53, Wallet: "b", Primary: self, Secondary1: sec1, Secondary2: sec2},
		{UserID: 77, Wallet: "c", Primary: self, Secondary1: sec1, Secondary2: sec2},
		{UserID: 80, Wallet: "d", Primary: sec1, Secondary1: self, Secondary2: sec2},
	}

	tq.pager.EXPECT().UsersPage(gomock.Any(), self, int64(50), DefaultMaxUsersPerJob).Return(users, nil)
	replicas.EXPECT().RememberReplicaSets(users[:3])
	tq.reconciler.EXPECT().Reconcile(gomock.Any(), []replica.Assignment{users[1], users[2]}).
		Return(repair.Result{Users: 2, Enqueued: 2}, nil)

	res, err := tq.process(context.Background(), data(50, 24, 5))
	require.NoError(t, err)
	assert.Equal(t, int64(80), res.LastProcessedUserID)
	assert.Equal(t, 4, res.Users)
	assert.Equal(t, 2, res.SliceUsers)
	assert.Equal(t, 2, res.Reconcile.Enqueued)
}

func TestProcess_EmptyPageWraps(t *testing.T) {
	tq := newTestQueue(t, DefaultConfig())
	tq.pager.EXPECT().UsersPage(gomock.Any(), self, int64(900), gomock.Any()).Return(nil, nil)

	res, err := tq.process(context.Background(), data(900, 24, 3))
	require.NoError(t, err)
	assert.Zero(t, res.LastProcessedUserID)
}

func TestProcess_Errors(t *testing.T) {
	tq := newTestQueue(t, DefaultConfig())

	_, err := tq.process(context.Background(), JobData{Cursor: replica.Cursor{ModuloBase: 24}})
	require.ErrorIs(t, err, ErrNoDiscovery)

	pageErr := errors.New("502 bad gateway")
	tq.pager.EXPECT().UsersPage(gomock.Any(), self, int64(1), gomock.Any()).Return(nil, pageErr)
	_, err = tq.process(context.Background(), data(1, 24, 0))
	require.ErrorIs(t, err, pageErr)
}

func TestStart_ZeroRateLimitPauses(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimitJobs = 0
	tq := newTestQueue(t, cfg)

	require.NoError(t, tq.Start(context.Background()))
	assert.True(t, tq.IsPaused())
	assert.Empty(t, tq.Jobs())
}

func TestStart_ChainsJobs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimitJobs = 1000
	cfg.RateLimitInterval = time.Millisecond

	seen := make(chan JobData, 3)
	var calls atomic.Int32
	processor := func(ctx context.Context, d JobData) (Result, error) {
		seen <- d
		switch calls.Add(1) {
		case 1:
			return Result{LastProcessedUserID: d.LastProcessedUserID + 10}, nil
		case 2:
			return Result{LastProcessedUserID: 999}, errors.New("discovery unavailable")
		}
		<-ctx.Done()
		return Result{}, ctx.Err()
	}
	tq := newTestQueue(t, cfg, WithProcessor(processor), WithRand(rand.New(rand.NewPCG(1, 2))))

	expect := rand.New(rand.NewPCG(1, 2))
	slice := expect.IntN(24)
	id := expect.Int64N(101)

	tq.pager.EXPECT().LatestUserID(gomock.Any()).Return(int64(100), nil)
	tq.pager.EXPECT().Endpoint().Return(discovery)
	require.NoError(t, tq.Start(context.Background()))

	delayed := tq.Jobs(queue.StatusDelayed)
	require.Len(t, delayed, 1)
	assert.Equal(t, data(id, 24, slice), delayed[0].Job.Data)
	assert.Equal(t, DefaultStartDelay, delayed[0].Job.Delay)

	tq.clock.Advance(DefaultStartDelay)

	var got []JobData
	for len(got) < 3 {
		select {
		case d := <-seen:
			got = append(got, d)
		case <-time.After(5 * time.Second):
			t.Fatalf("chain stalled after %d jobs", len(got))
		}
	}
	assert.Equal(t, data(id, 24, slice), got[0])
	assert.Equal(t, data(id+10, 24, (slice+1)%24), got[1])
	assert.Equal(t, data(id+10, 24, (slice+2)%24), got[2], "failed job carries its cursor")
}

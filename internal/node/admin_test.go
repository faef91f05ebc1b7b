package node

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"snapback/internal/lockstore"
	"snapback/internal/replica"
	"snapback/internal/syncqueue"
	"snapback/internal/writelock"
)

const self = "http://self.test"

type fakeSyncs struct {
	requests []replica.SyncRequest
	jobs     syncqueue.Jobs
}

func (f *fakeSyncs) EnqueueSync(_ context.Context, req replica.SyncRequest) (*syncqueue.Job, bool, error) {
	if err := req.Validate(); err != nil {
		return nil, false, fmt.Errorf("%w: %w", syncqueue.ErrInvalidJob, err)
	}
	f.requests = append(f.requests, req)
	return &syncqueue.Job{ID: "job-1", Data: req}, len(f.requests) > 1, nil
}

func (f *fakeSyncs) QueueJobs() syncqueue.Jobs {
	return f.jobs
}

type adminFixture struct {
	client *AdminClient
	syncs  *fakeSyncs
	lock   *writelock.Lock
	clock  *clockwork.FakeClock
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	clock := clockwork.NewFakeClock()
	f := &adminFixture{
		syncs: &fakeSyncs{},
		lock:  writelock.New(lockstore.NewMemoryStore(clock)),
		clock: clock,
	}

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterAdminServer(srv, NewAdminServer(self, f.syncs, f.lock, clock, zaptest.NewLogger(t)))
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	client, err := NewAdminClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	f.client = client
	return f
}

func TestAdmin_EnqueueSync(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	res, err := f.client.EnqueueSync(ctx, replica.Manual, "W", "", "http://cn2.test")
	require.NoError(t, err)
	assert.Equal(t, EnqueueResult{JobID: "job-1"}, res)

	require.Len(t, f.syncs.requests, 1)
	req := f.syncs.requests[0]
	assert.Equal(t, replica.Manual, req.Type)
	assert.Equal(t, "W", req.Wallet)
	assert.Equal(t, self, req.PrimaryEndpoint, "primary defaults to the node itself")
	assert.Equal(t, "http://cn2.test", req.SecondaryEndpoint)

	res, err = f.client.EnqueueSync(ctx, replica.Manual, "W", "", "http://cn2.test")
	require.NoError(t, err)
	assert.True(t, res.Existing)
}

func TestAdmin_EnqueueSyncInvalid(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	_, err := f.client.EnqueueSync(ctx, replica.SyncType("NIGHTLY"), "W", "", "http://cn2.test")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = f.client.EnqueueSync(ctx, replica.Recurring, "", "", "http://cn2.test")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Empty(t, f.syncs.requests)
}

func TestAdmin_SyncQueueJobs(t *testing.T) {
	f := newAdminFixture(t)
	enqueued := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f.syncs.jobs = syncqueue.Jobs{
		ManualWaiting: []syncqueue.JobInfo{{
			ID:         "j1",
			Type:       replica.Manual,
			Wallet:     "W",
			Primary:    self,
			Secondary:  "http://cn2.test",
			Status:     "waiting",
			EnqueuedAt: enqueued,
		}},
	}

	jobs, err := f.client.SyncQueueJobs(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs.ManualWaiting, 1)
	assert.Equal(t, f.syncs.jobs.ManualWaiting[0], jobs.ManualWaiting[0])
	assert.Empty(t, jobs.RecurringActive)
}

func TestAdmin_WriteLockStatus(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	ls, err := f.client.WriteLockStatus(ctx, "W")
	require.NoError(t, err)
	assert.Equal(t, LockStatus{Wallet: "W"}, ls)

	require.NoError(t, f.lock.Acquire(ctx, "W", writelock.SecondarySyncFromPrimary, time.Minute))
	ls, err = f.client.WriteLockStatus(ctx, "W")
	require.NoError(t, err)
	assert.True(t, ls.Held)
	assert.Equal(t, writelock.SecondarySyncFromPrimary, ls.Holder)
	assert.Equal(t, time.Minute, ls.TTL)

	_, err = f.client.WriteLockStatus(ctx, "")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestAdmin_ClearWriteLocks(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	require.NoError(t, f.lock.Acquire(ctx, "a", writelock.UserWrite, time.Minute))
	require.NoError(t, f.lock.Acquire(ctx, "b", writelock.PrimarySyncFromSecondary, time.Minute))

	n, err := f.client.ClearWriteLocks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	held, err := f.lock.IsHeld(ctx, "a")
	require.NoError(t, err)
	assert.False(t, held)
}

func TestAdmin_Health(t *testing.T) {
	f := newAdminFixture(t)
	st, err := f.client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, st)
}

func TestClientManager_CachesClients(t *testing.T) {
	cm := NewClientManager()
	defer cm.Close()

	a, err := cm.Get("127.0.0.1:1")
	require.NoError(t, err)
	b, err := cm.Get("127.0.0.1:1")
	require.NoError(t, err)
	assert.Same(t, a, b)

	c, err := cm.Get("127.0.0.1:2")
	require.NoError(t, err)
	assert.NotSame(t, a, c)
}

func TestRegisterAdminServer_ServiceInfo(t *testing.T) {
	srv := grpc.NewServer()
	t.Cleanup(srv.Stop)
	RegisterAdminServer(srv, NewAdminServer(self, &fakeSyncs{}, nil, clockwork.NewFakeClock(), zaptest.NewLogger(t)))

	info, ok := srv.GetServiceInfo()[AdminServiceName]
	require.True(t, ok)
	names := make([]string, 0, len(info.Methods))
	for _, m := range info.Methods {
		assert.False(t, m.IsClientStream || m.IsServerStream, m.Name)
		names = append(names, m.Name)
	}
	assert.ElementsMatch(t, []string{"EnqueueSync", "SyncQueueJobs", "WriteLockStatus", "ClearWriteLocks"}, names)
	assert.Nil(t, info.Metadata)
}

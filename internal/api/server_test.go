package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zaptest"

	"snapback/internal/api/mocks"
	"snapback/internal/contentnode"
	"snapback/internal/httpclient"
	"snapback/internal/lockstore"
	"snapback/internal/replica"
	"snapback/internal/storage"
	"snapback/internal/syncqueue"
	"snapback/internal/writelock"
)

const self = "http://self.test"

type testServer struct {
	*httptest.Server
	store  *storage.InMemoryStore
	lock   *writelock.Lock
	syncs  *mocks.MockSyncQueues
	runner *mocks.MockSyncScheduler
}

func newTestServer(t *testing.T) *testServer {
	ctrl := gomock.NewController(t)
	ts := &testServer{
		store:  storage.NewInMemoryStore(),
		lock:   writelock.New(lockstore.NewMemoryStore(clockwork.NewFakeClock())),
		syncs:  mocks.NewMockSyncQueues(ctrl),
		runner: mocks.NewMockSyncScheduler(ctrl),
	}
	srv := NewServer(self, ts.store, ts.lock, ts.syncs, ts.runner,
		WithLogger(zaptest.NewLogger(t)),
		WithMaxExportRange(2),
	)
	ts.Server = httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, data
}

func (ts *testServer) append(t *testing.T, wallet string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := ts.store.Append(context.Background(), wallet, []byte(`{"op":"put"}`))
		require.NoError(t, err)
	}
}

func TestClockStatus(t *testing.T) {
	ts := newTestServer(t)
	ts.append(t, "W", 3)

	code, body := ts.do(t, http.MethodGet, "/users/clock_status/W", "")
	require.Equal(t, http.StatusOK, code)
	var res contentnode.ClockStatusResponse
	require.NoError(t, httpclient.Unwrap(body, &res))
	assert.Equal(t, int64(3), res.ClockValue)

	_, body = ts.do(t, http.MethodGet, "/users/clock_status/unknown", "")
	require.NoError(t, httpclient.Unwrap(body, &res))
	assert.Equal(t, int64(-1), res.ClockValue)
}

func TestBatchClockStatus(t *testing.T) {
	ts := newTestServer(t)
	ts.append(t, "a", 2)

	code, body := ts.do(t, http.MethodPost, "/users/batch_clock_status", `{"walletPublicKeys":["a","b"]}`)
	require.Equal(t, http.StatusOK, code)
	var res contentnode.BatchClockResponse
	require.NoError(t, httpclient.Unwrap(body, &res))
	assert.Equal(t, []contentnode.WalletClock{
		{WalletPublicKey: "a", Clock: 2},
		{WalletPublicKey: "b", Clock: -1},
	}, res.Users)

	code, _ = ts.do(t, http.MethodPost, "/users/batch_clock_status", `{`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSync_SchedulesPull(t *testing.T) {
	ts := newTestServer(t)
	want := replica.SyncPayload{Wallet: []string{"W"}, CreatorNodeEndpoint: "http://primary.test", SyncType: replica.Manual}
	ts.runner.EXPECT().Schedule(want)

	code, _ := ts.do(t, http.MethodPost, "/sync", `{"wallet":["W"],"creator_node_endpoint":"http://primary.test","sync_type":"MANUAL"}`)
	assert.Equal(t, http.StatusOK, code)

	code, _ = ts.do(t, http.MethodPost, "/sync", `{"wallet":[]}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestExport(t *testing.T) {
	ts := newTestServer(t)
	ts.append(t, "W", 5)

	code, body := ts.do(t, http.MethodGet, "/export?wallet_public_key=W&clock_range_min=2", "")
	require.Equal(t, http.StatusOK, code)
	var res contentnode.ExportResponse
	require.NoError(t, httpclient.Unwrap(body, &res))
	assert.Equal(t, int64(5), res.ClockValue)
	require.Len(t, res.Records, 2, "capped at the max export range")
	assert.Equal(t, int64(2), res.Records[0].Clock)
	assert.Equal(t, int64(3), res.Records[1].Clock)

	code, _ = ts.do(t, http.MethodGet, "/export?wallet_public_key=W&clock_range_min=x", "")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = ts.do(t, http.MethodGet, "/export", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestWrite_AppendsAndIssuesManualSyncs(t *testing.T) {
	ts := newTestServer(t)
	ts.syncs.EXPECT().IssueManualSyncs(gomock.Any(), "W").Return([]*syncqueue.Job{{ID: "1"}, {ID: "2"}}, nil)

	code, body := ts.do(t, http.MethodPost, "/users/W/records", `{"track":"t1"}`)
	require.Equal(t, http.StatusOK, code)
	var res WriteResponse
	require.NoError(t, httpclient.Unwrap(body, &res))
	assert.Equal(t, WriteResponse{ClockValue: 1, ManualSyncs: 2}, res)

	held, err := ts.lock.IsHeld(context.Background(), "W")
	require.NoError(t, err)
	assert.False(t, held)
}

func TestWrite_RejectedWhileSyncHoldsLock(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.lock.Acquire(context.Background(), "W", writelock.SecondarySyncFromPrimary, time.Minute))

	code, body := ts.do(t, http.MethodPost, "/users/W/records", `{"track":"t1"}`)
	assert.Equal(t, http.StatusConflict, code)
	var res map[string]string
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, "[acquireWriteLockForWallet][Wallet: W] Error: Failed to acquire lock - already held.", res["error"])

	_, ok, err := ts.store.ClockValue(context.Background(), "W")
	require.NoError(t, err)
	assert.False(t, ok, "nothing was written")
}

func TestWrite_RejectsInvalidJSON(t *testing.T) {
	ts := newTestServer(t)
	code, _ := ts.do(t, http.MethodPost, "/users/W/records", `not json`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSyncQueueAndHealth(t *testing.T) {
	ts := newTestServer(t)
	jobs := syncqueue.Jobs{ManualWaiting: []syncqueue.JobInfo{{ID: "j", Wallet: "W", Type: replica.Manual}}}
	ts.syncs.EXPECT().QueueJobs().Return(jobs)

	code, body := ts.do(t, http.MethodGet, "/sync_queue", "")
	require.Equal(t, http.StatusOK, code)
	var got syncqueue.Jobs
	require.NoError(t, httpclient.Unwrap(body, &got))
	require.Len(t, got.ManualWaiting, 1)
	assert.Equal(t, "W", got.ManualWaiting[0].Wallet)

	code, body = ts.do(t, http.MethodGet, "/health_check", "")
	require.Equal(t, http.StatusOK, code)
	var health Health
	require.NoError(t, httpclient.Unwrap(body, &health))
	assert.Equal(t, Health{Healthy: true, Endpoint: self}, health)

	code, _ = ts.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, code)
}

func TestRouter_MethodAndPathMatching(t *testing.T) {
	ts := newTestServer(t)
	ts.append(t, "0xabc", 1)

	code, _ := ts.do(t, http.MethodPost, "/users/clock_status/0xabc", "")
	assert.Equal(t, http.StatusMethodNotAllowed, code)

	code, _ = ts.do(t, http.MethodGet, "/users/0xabc/records", "")
	assert.Equal(t, http.StatusMethodNotAllowed, code)

	code, _ = ts.do(t, http.MethodGet, "/users/clock_status", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, body := ts.do(t, http.MethodGet, "/users/clock_status/0xabc", "")
	require.Equal(t, http.StatusOK, code)
	var res contentnode.ClockStatusResponse
	require.NoError(t, httpclient.Unwrap(body, &res))
	assert.Equal(t, int64(1), res.ClockValue)

	code, _ = ts.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, code)
}

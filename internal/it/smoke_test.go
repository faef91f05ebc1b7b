package it

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snapback/internal/config"
	"snapback/internal/replica"
)

const (
	convergeTimeout = 20 * time.Second
	pollInterval    = 100 * time.Millisecond
)

func startCluster(t *testing.T, orchestrator string) (*Cluster, []*Node) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	c := NewCluster(t)
	nodes := make([]*Node, 0, 3)
	for _, id := range []string{"cn1", "cn2", "cn3"} {
		nodes = append(nodes, c.StartNode(id, c.DefaultConfig(orchestrator)))
	}
	return c, nodes
}

func writeRecords(t *testing.T, c *Cluster, n *Node, wallet string, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		code, err := c.Write(n, wallet, map[string]any{"track": i})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, code)
	}
}

func requireClock(t *testing.T, c *Cluster, want int64, wallet string, nodes ...*Node) {
	t.Helper()
	for _, n := range nodes {
		require.EventuallyWithT(t, func(ct *assert.CollectT) {
			got, err := c.ClockStatus(n, wallet)
			assert.NoError(ct, err)
			assert.Equal(ct, want, got)
		}, convergeTimeout, pollInterval, "node %s wallet %s", n.ID, wallet)
	}
}

func TestSmoke_StateMachineRepairsSecondaries(t *testing.T) {
	c, nodes := startCluster(t, config.OrchestratorStateMachine)
	cn1, cn2, cn3 := nodes[0], nodes[1], nodes[2]

	c.SetUsers(
		replica.Assignment{UserID: 1, Wallet: "0xaaa", Primary: cn1.Endpoint, Secondary1: cn2.Endpoint, Secondary2: cn3.Endpoint},
		replica.Assignment{UserID: 2, Wallet: "0xbbb", Primary: cn2.Endpoint, Secondary1: cn1.Endpoint, Secondary2: cn3.Endpoint},
	)
	writeRecords(t, c, cn1, "0xaaa", 3)
	writeRecords(t, c, cn2, "0xbbb", 2)

	requireClock(t, c, 3, "0xaaa", cn2, cn3)
	requireClock(t, c, 2, "0xbbb", cn1, cn3)

	// replica sets are cached by now, so further writes also go out as
	// manual syncs
	writeRecords(t, c, cn1, "0xaaa", 2)
	requireClock(t, c, 5, "0xaaa", cn2, cn3)
}

func TestSmoke_StateMonitoringRepairsSecondaries(t *testing.T) {
	c, nodes := startCluster(t, config.OrchestratorStateMonitoring)
	cn1, cn2, cn3 := nodes[0], nodes[1], nodes[2]

	c.SetUsers(
		replica.Assignment{UserID: 7, Wallet: "0xccc", Primary: cn3.Endpoint, Secondary1: cn1.Endpoint, Secondary2: cn2.Endpoint},
	)
	writeRecords(t, c, cn3, "0xccc", 4)

	requireClock(t, c, 4, "0xccc", cn1, cn2)
}

func TestSmoke_UnreachableSecondaryDoesNotBlockTheOther(t *testing.T) {
	c, nodes := startCluster(t, config.OrchestratorStateMachine)
	cn1, cn2, cn3 := nodes[0], nodes[1], nodes[2]
	c.StopNode(cn3)

	c.SetUsers(
		replica.Assignment{UserID: 1, Wallet: "0xddd", Primary: cn1.Endpoint, Secondary1: cn2.Endpoint, Secondary2: cn3.Endpoint},
	)
	writeRecords(t, c, cn1, "0xddd", 2)

	requireClock(t, c, 2, "0xddd", cn2)
}

func TestSmoke_Admin(t *testing.T) {
	c, nodes := startCluster(t, config.OrchestratorStateMachine)
	cn1, cn2 := nodes[0], nodes[1]

	admin, err := c.Admin(cn1)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	writeRecords(t, c, cn1, "0xeee", 1)
	res, err := admin.EnqueueSync(ctx, replica.Manual, "0xeee", "", cn2.Endpoint)
	require.NoError(t, err)
	assert.NotEmpty(t, res.JobID)
	requireClock(t, c, 1, "0xeee", cn2)

	jobs, err := admin.SyncQueueJobs(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs.RecurringActive)

	ls, err := admin.WriteLockStatus(ctx, "0xeee")
	require.NoError(t, err)
	assert.False(t, ls.Held, "user writes release the lock")

	cleared, err := admin.ClearWriteLocks(ctx)
	require.NoError(t, err)
	assert.Zero(t, cleared)
}

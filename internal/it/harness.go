package it

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"snapback/internal/config"
	"snapback/internal/contentnode"
	"snapback/internal/httpclient"
	"snapback/internal/node"
	"snapback/internal/replica"
)

// Cluster is a set of in-process nodes sharing a fake discovery node.
type Cluster struct {
	t         *testing.T
	discovery *httptest.Server
	clients   *node.ClientManager
	content   *contentnode.Client

	mu    sync.Mutex
	users []replica.Assignment
	nodes []*Node
}

// Node is one running node of the cluster.
type Node struct {
	ID       string
	Endpoint string
	GRPCAddr string

	node   *node.Node
	cancel context.CancelFunc
	done   chan error
}

// NewCluster starts the fake discovery node. Everything is stopped when the
// test ends.
func NewCluster(t *testing.T) *Cluster {
	t.Helper()
	c := &Cluster{
		t:       t,
		clients: node.NewClientManager(),
		content: contentnode.New(contentnode.WithHTTPClient(httpclient.New(httpclient.Config{
			Timeout:      2 * time.Second,
			RetryMax:     0,
			RetryWaitMin: 10 * time.Millisecond,
			RetryWaitMax: 10 * time.Millisecond,
		}, zaptest.NewLogger(t)))),
	}
	c.discovery = httptest.NewServer(c.discoveryHandler())
	t.Cleanup(c.Stop)
	return c
}

// DefaultConfig returns a node config with every timer shortened for tests.
func (c *Cluster) DefaultConfig(orchestrator string) config.Config {
	cfg := config.DefaultConfig()
	cfg.Snapback.DiscoveryEndpoints = []string{c.discovery.URL}
	cfg.Snapback.Orchestrator = orchestrator
	cfg.Storage.Path = ""

	cfg.StateMachine.ModuloBase = 1
	cfg.StateMachine.TickDelay = 100 * time.Millisecond

	cfg.StateMonitoring.ModuloBase = 1
	cfg.StateMonitoring.StartDelay = 0
	cfg.StateMonitoring.RateLimitJobs = 10
	cfg.StateMonitoring.RateLimitInterval = 100 * time.Millisecond

	cfg.SyncQueue.MonitorDuration = 2 * time.Second
	cfg.SyncQueue.MonitorRetryDelay = 50 * time.Millisecond

	cfg.HTTPClient.Timeout = 2 * time.Second
	cfg.HTTPClient.RetryMax = 1
	cfg.HTTPClient.RetryWaitMin = 10 * time.Millisecond
	cfg.HTTPClient.RetryWaitMax = 50 * time.Millisecond
	return cfg
}

// StartNode starts a node on loopback listeners. The config endpoint and
// listen addresses are filled in from the listeners.
func (c *Cluster) StartNode(id string, cfg config.Config) *Node {
	c.t.Helper()

	httpLis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(c.t, err)
	grpcLis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(c.t, err)

	cfg.Snapback.Endpoint = "http://" + httpLis.Addr().String()
	cfg.Snapback.HTTPListen = httpLis.Addr().String()
	cfg.Snapback.GRPCListen = grpcLis.Addr().String()
	require.NoError(c.t, cfg.Validate())

	n, err := node.New(cfg, node.WithLogger(zaptest.NewLogger(c.t).Named(id)))
	require.NoError(c.t, err)

	ctx, cancel := context.WithCancel(context.Background())
	member := &Node{
		ID:       id,
		Endpoint: cfg.Snapback.Endpoint,
		GRPCAddr: cfg.Snapback.GRPCListen,
		node:     n,
		cancel:   cancel,
		done:     make(chan error, 1),
	}
	go func() {
		member.done <- n.Serve(ctx, httpLis, grpcLis)
	}()

	c.mu.Lock()
	c.nodes = append(c.nodes, member)
	c.mu.Unlock()

	require.NoError(c.t, c.waitForReady(member, 10*time.Second))
	return member
}

// waitForReady polls the node's gRPC health service until it reports serving.
func (c *Cluster) waitForReady(n *Node, timeout time.Duration) error {
	client, err := c.Admin(n)
	if err != nil {
		return err
	}
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		st, err := client.Health(ctx)
		cancel()
		if err == nil && st == healthpb.HealthCheckResponse_SERVING {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timeout waiting for node %s to be ready: %v", n.ID, err)
		}
	}
	return nil
}

// Admin returns the admin client of n.
func (c *Cluster) Admin(n *Node) (*node.AdminClient, error) {
	return c.clients.Get(n.GRPCAddr)
}

// SetUsers replaces the replica sets served by the fake discovery node.
func (c *Cluster) SetUsers(users ...replica.Assignment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users = append([]replica.Assignment(nil), users...)
	sort.Slice(c.users, func(i, j int) bool { return c.users[i].UserID < c.users[j].UserID })
}

// Write posts one record for wallet to n and returns the status code.
func (c *Cluster) Write(n *Node, wallet string, record any) (int, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return 0, err
	}
	res, err := http.Post(n.Endpoint+"/users/"+wallet+"/records", "application/json", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()
	return res.StatusCode, nil
}

// ClockStatus returns n's clock for wallet, -1 when unknown.
func (c *Cluster) ClockStatus(n *Node, wallet string) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return c.content.ClockStatus(ctx, n.Endpoint, wallet)
}

// StopNode stops one node and waits for it to exit.
func (c *Cluster) StopNode(n *Node) {
	n.cancel()
	select {
	case err := <-n.done:
		if err != nil && !errors.Is(err, context.Canceled) {
			c.t.Logf("node %s exited: %v", n.ID, err)
		}
	case <-time.After(15 * time.Second):
		c.t.Errorf("node %s did not stop", n.ID)
	}
	n.done = nil
}

// Stop stops every node and the discovery server.
func (c *Cluster) Stop() {
	c.mu.Lock()
	nodes := c.nodes
	c.nodes = nil
	c.mu.Unlock()

	for _, n := range nodes {
		if n.done != nil {
			c.StopNode(n)
		}
	}
	c.clients.Close()
	c.discovery.Close()
}

func (c *Cluster) snapshot() []replica.Assignment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]replica.Assignment(nil), c.users...)
}

func userJSON(a replica.Assignment) map[string]any {
	return map[string]any{
		"user_id":    a.UserID,
		"wallet":     a.Wallet,
		"primary":    a.Primary,
		"secondary1": a.Secondary1,
		"secondary2": a.Secondary2,
	}
}

func writeData(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(httpclient.Envelope(v))
}

// discoveryHandler serves the replica set queries of a discovery node from
// the cluster's user list.
func (c *Cluster) discoveryHandler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/v1/full/users/content_node/all", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		endpoint := q.Get("creator_node_endpoint")
		prev, _ := strconv.ParseInt(q.Get("prev_user_id"), 10, 64)
		limit, err := strconv.Atoi(q.Get("max_users"))
		if err != nil || limit <= 0 {
			limit = -1
		}

		out := []map[string]any{}
		for _, u := range c.snapshot() {
			if u.UserID <= prev {
				continue
			}
			if u.Primary != endpoint && u.Secondary1 != endpoint && u.Secondary2 != endpoint {
				continue
			}
			if limit >= 0 && len(out) == limit {
				break
			}
			out = append(out, userJSON(u))
		}
		writeData(w, out)
	}).Methods(http.MethodGet)
	router.HandleFunc("/users/creator_node", func(w http.ResponseWriter, r *http.Request) {
		endpoint := r.URL.Query().Get("creator_node_endpoint")
		out := []map[string]any{}
		for _, u := range c.snapshot() {
			if u.Primary == endpoint {
				out = append(out, userJSON(u))
			}
		}
		writeData(w, out)
	}).Methods(http.MethodGet)
	router.HandleFunc("/latest/user", func(w http.ResponseWriter, _ *http.Request) {
		var latest int64
		for _, u := range c.snapshot() {
			latest = max(latest, u.UserID)
		}
		writeData(w, latest)
	}).Methods(http.MethodGet)
	return router
}

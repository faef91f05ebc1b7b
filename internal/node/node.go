package node

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"snapback/internal/api"
	"snapback/internal/config"
	"snapback/internal/contentnode"
	"snapback/internal/discovery"
	"snapback/internal/httpclient"
	"snapback/internal/lockstore"
	"snapback/internal/monitoring"
	"snapback/internal/nodesync"
	"snapback/internal/repair"
	"snapback/internal/sqlitedb"
	"snapback/internal/statemachine"
	"snapback/internal/storage"
	"snapback/internal/syncqueue"
	"snapback/internal/writelock"
)

const shutdownTimeout = 10 * time.Second

// Node is one content node: the HTTP API, the sync queues, the reconciliation
// orchestrator and the admin gRPC service.
type Node struct {
	cfg    config.Config
	clock  clockwork.Clock
	logger *zap.Logger

	db         *sql.DB
	store      storage.Store
	lock       *writelock.Lock
	syncs      *syncqueue.Manager
	runner     *nodesync.Runner
	machine    *statemachine.Orchestrator
	monitor    *monitoring.Queue
	httpServer *http.Server
	grpcServer *grpc.Server
	health     *health.Server

	stopOnce sync.Once
	stopped  chan struct{}
}

// Opt configures a Node.
type Opt func(*Node)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Opt {
	return func(n *Node) {
		n.logger = logger
	}
}

// WithClock sets the clock.
func WithClock(clock clockwork.Clock) Opt {
	return func(n *Node) {
		n.clock = clock
	}
}

// New wires a node from cfg. Nothing runs until Serve.
func New(cfg config.Config, opts ...Opt) (*Node, error) {
	n := &Node{
		cfg:     cfg,
		clock:   clockwork.NewRealClock(),
		logger:  zap.NewNop(),
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	self := cfg.Snapback.Endpoint
	n.logger = n.logger.With(zap.String("node", self))

	var locks lockstore.Store
	if cfg.Storage.Path == "" {
		n.store = storage.NewInMemoryStore()
		locks = lockstore.NewMemoryStore(n.clock)
	} else {
		db, err := sqlitedb.Open(cfg.Storage.Path)
		if err != nil {
			return nil, err
		}
		n.db = db
		n.store = storage.NewSQLiteStore(db)
		locks = lockstore.NewSQLiteStore(db, n.clock)
	}
	n.lock = writelock.New(locks,
		writelock.WithLogger(n.logger.Named("writelock")),
		writelock.WithDefaultTTL(cfg.WriteLock.DefaultTTL),
	)

	httpClient := httpclient.New(cfg.HTTPClient, n.logger.Named("http"))
	nodes := contentnode.New(
		contentnode.WithLogger(n.logger.Named("contentnode")),
		contentnode.WithHTTPClient(httpClient),
	)
	dn := discovery.New(cfg.DiscoveryEndpoint(),
		discovery.WithLogger(n.logger.Named("discovery")),
		discovery.WithHTTPClient(httpClient),
	)

	syncs, err := syncqueue.NewManager(self, cfg.SyncQueue, nodes, n.store,
		syncqueue.WithLogger(n.logger.Named("syncqueue")),
		syncqueue.WithClock(n.clock),
	)
	if err != nil {
		n.closeDB()
		return nil, err
	}
	n.syncs = syncs
	reconciler := repair.NewReconciler(self, n.store, nodes, syncs,
		repair.WithLogger(n.logger.Named("repair")),
		repair.WithClock(n.clock),
	)
	n.runner = nodesync.New(n.store, nodes, n.lock, cfg.SyncQueue.MaxExportClockValueRange,
		nodesync.WithLogger(n.logger.Named("nodesync")),
		nodesync.WithConcurrency(cfg.Snapback.SyncConcurrency),
	)

	switch cfg.Snapback.Orchestrator {
	case config.OrchestratorStateMonitoring:
		n.monitor = monitoring.New(self, cfg.StateMonitoring, dn, reconciler,
			monitoring.WithLogger(n.logger.Named("monitoring")),
			monitoring.WithClock(n.clock),
			monitoring.WithReplicaSets(syncs),
		)
	default:
		n.machine = statemachine.New(self, cfg.StateMachine, dn, reconciler, syncs,
			statemachine.WithLogger(n.logger.Named("statemachine")),
			statemachine.WithClock(n.clock),
		)
	}

	srv := api.NewServer(self, n.store, n.lock, syncs, n.runner,
		api.WithLogger(n.logger.Named("api")),
		api.WithMaxExportRange(cfg.SyncQueue.MaxExportClockValueRange),
	)
	n.httpServer = &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	n.grpcServer = grpc.NewServer()
	RegisterAdminServer(n.grpcServer, NewAdminServer(self, syncs, n.lock, n.clock, n.logger.Named("admin")))
	n.health = health.NewServer()
	healthpb.RegisterHealthServer(n.grpcServer, n.health)
	reflection.Register(n.grpcServer)

	return n, nil
}

// Store returns the node's wallet store.
func (n *Node) Store() storage.Store {
	return n.store
}

// Serve starts the background work and serves HTTP on httpLis and gRPC on
// grpcLis until ctx is done or a server fails.
func (n *Node) Serve(ctx context.Context, httpLis, grpcLis net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	n.syncs.Start(ctx)
	if err := n.startOrchestrator(ctx); err != nil {
		n.Stop()
		return err
	}
	n.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n.logger.Info("serving http", zap.String("addr", httpLis.Addr().String()))
		if err := n.httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		n.logger.Info("serving grpc", zap.String("addr", grpcLis.Addr().String()))
		if err := n.grpcServer.Serve(grpcLis); err != nil {
			return fmt.Errorf("serve grpc: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			n.Stop()
		case <-n.stopped:
		}
		return nil
	})
	return g.Wait()
}

// Run listens on the configured addresses and serves until ctx is done.
func (n *Node) Run(ctx context.Context) error {
	httpLis, err := net.Listen("tcp", n.cfg.Snapback.HTTPListen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", n.cfg.Snapback.HTTPListen, err)
	}
	grpcLis, err := net.Listen("tcp", n.cfg.Snapback.GRPCListen)
	if err != nil {
		httpLis.Close()
		return fmt.Errorf("failed to listen on %s: %w", n.cfg.Snapback.GRPCListen, err)
	}
	return n.Serve(ctx, httpLis, grpcLis)
}

func (n *Node) startOrchestrator(ctx context.Context) error {
	if n.monitor != nil {
		if err := n.monitor.Start(ctx); err != nil {
			return fmt.Errorf("start state monitoring: %w", err)
		}
		return nil
	}
	if err := n.machine.Init(ctx); err != nil {
		return fmt.Errorf("start state machine: %w", err)
	}
	return nil
}

// Stop shuts the node down. It is safe to call more than once.
func (n *Node) Stop() {
	n.stopOnce.Do(func() {
		n.logger.Info("stopping node")
		close(n.stopped)
		n.health.Shutdown()

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := n.httpServer.Shutdown(ctx); err != nil {
			n.logger.Warn("http shutdown", zap.Error(err))
		}
		n.grpcServer.GracefulStop()

		if n.monitor != nil {
			n.monitor.Close()
		}
		if n.machine != nil {
			n.machine.Close()
		}
		n.syncs.Close()
		n.runner.Close()
		n.closeDB()
	})
}

func (n *Node) closeDB() {
	if n.db == nil {
		return
	}
	if err := n.db.Close(); err != nil {
		n.logger.Warn("close database", zap.Error(err))
	}
}

package node

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"snapback/internal/replica"
	"snapback/internal/syncqueue"
)

// EnqueueResult is the reply to an admin sync request.
type EnqueueResult struct {
	JobID    string
	Existing bool
}

// AdminClient talks to the admin gRPC service of one node.
type AdminClient struct {
	conn *grpc.ClientConn
}

// NewAdminClient connects to the admin service at addr.
func NewAdminClient(addr string, opts ...grpc.DialOption) (*AdminClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	return &AdminClient{conn: conn}, nil
}

func (c *AdminClient) invoke(ctx context.Context, method string, in, out any) error {
	return c.conn.Invoke(ctx, "/"+AdminServiceName+"/"+method, in, out)
}

// EnqueueSync asks the node to sync wallet to secondary. An empty primary
// means the node itself.
func (c *AdminClient) EnqueueSync(ctx context.Context, t replica.SyncType, wallet, primary, secondary string) (EnqueueResult, error) {
	fields := map[string]any{
		"syncType":  string(t),
		"wallet":    wallet,
		"secondary": secondary,
	}
	if primary != "" {
		fields["primary"] = primary
	}
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return EnqueueResult{}, err
	}
	res := &structpb.Struct{}
	if err := c.invoke(ctx, "EnqueueSync", req, res); err != nil {
		return EnqueueResult{}, err
	}
	return EnqueueResult{
		JobID:    res.GetFields()["jobId"].GetStringValue(),
		Existing: res.GetFields()["existing"].GetBoolValue(),
	}, nil
}

// SyncQueueJobs lists the node's waiting and active sync jobs.
func (c *AdminClient) SyncQueueJobs(ctx context.Context) (syncqueue.Jobs, error) {
	res := &structpb.Struct{}
	if err := c.invoke(ctx, "SyncQueueJobs", &emptypb.Empty{}, res); err != nil {
		return syncqueue.Jobs{}, err
	}
	return protoToJobs(res)
}

// WriteLockStatus reports the write lock of wallet.
func (c *AdminClient) WriteLockStatus(ctx context.Context, wallet string) (LockStatus, error) {
	res := &structpb.Struct{}
	if err := c.invoke(ctx, "WriteLockStatus", wrapperspb.String(wallet), res); err != nil {
		return LockStatus{}, err
	}
	return protoToLockStatus(res), nil
}

// ClearWriteLocks removes every write lock and returns how many there were.
func (c *AdminClient) ClearWriteLocks(ctx context.Context) (int64, error) {
	res := &wrapperspb.Int64Value{}
	if err := c.invoke(ctx, "ClearWriteLocks", &emptypb.Empty{}, res); err != nil {
		return 0, err
	}
	return res.GetValue(), nil
}

// Health reports the serving status of the node.
func (c *AdminClient) Health(ctx context.Context) (healthpb.HealthCheckResponse_ServingStatus, error) {
	res, err := healthpb.NewHealthClient(c.conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return res.GetStatus(), nil
}

// Close closes the connection.
func (c *AdminClient) Close() error {
	return c.conn.Close()
}

// ClientManager caches admin clients per node address.
type ClientManager struct {
	mu      sync.Mutex
	clients map[string]*AdminClient
	opts    []grpc.DialOption
}

// NewClientManager creates a new client manager.
func NewClientManager(opts ...grpc.DialOption) *ClientManager {
	return &ClientManager{
		clients: make(map[string]*AdminClient),
		opts:    opts,
	}
}

// Get returns the client for addr, connecting on first use.
func (cm *ClientManager) Get(addr string) (*AdminClient, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if c, ok := cm.clients[addr]; ok {
		return c, nil
	}
	c, err := NewAdminClient(addr, cm.opts...)
	if err != nil {
		return nil, err
	}
	cm.clients[addr] = c
	return c, nil
}

// Close closes every cached connection.
func (cm *ClientManager) Close() {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	for addr, c := range cm.clients {
		_ = c.Close()
		delete(cm.clients, addr)
	}
}

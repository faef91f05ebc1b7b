package node

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"snapback/internal/lockstore"
	"snapback/internal/replica"
	"snapback/internal/syncqueue"
	"snapback/internal/writelock"
)

// AdminServiceName is the full name of the admin gRPC service.
const AdminServiceName = "snapback.v1.SyncAdmin"

// AdminService is the admin gRPC service.
type AdminService interface {
	EnqueueSync(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	SyncQueueJobs(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	WriteLockStatus(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	ClearWriteLocks(ctx context.Context, req *emptypb.Empty) (*wrapperspb.Int64Value, error)
}

// SyncAdmin is the part of the sync queue manager the admin service uses.
type SyncAdmin interface {
	EnqueueSync(ctx context.Context, req replica.SyncRequest) (*syncqueue.Job, bool, error)
	QueueJobs() syncqueue.Jobs
}

func unary[Req, Res any](name string, call func(AdminService, context.Context, *Req) (*Res, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(AdminService), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + AdminServiceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(AdminService), ctx, req.(*Req))
			})
		},
	}
}

var adminServiceDesc = grpc.ServiceDesc{
	ServiceName: AdminServiceName,
	HandlerType: (*AdminService)(nil),
	Methods: []grpc.MethodDesc{
		unary("EnqueueSync", AdminService.EnqueueSync),
		unary("SyncQueueJobs", AdminService.SyncQueueJobs),
		unary("WriteLockStatus", AdminService.WriteLockStatus),
		unary("ClearWriteLocks", AdminService.ClearWriteLocks),
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterAdminServer registers srv with s.
func RegisterAdminServer(s grpc.ServiceRegistrar, srv AdminService) {
	s.RegisterService(&adminServiceDesc, srv)
}

// AdminServer implements the admin gRPC service.
type AdminServer struct {
	self   string
	syncs  SyncAdmin
	lock   *writelock.Lock
	clock  clockwork.Clock
	logger *zap.Logger
}

var _ AdminService = (*AdminServer)(nil)

// NewAdminServer creates a new admin server instance.
func NewAdminServer(self string, syncs SyncAdmin, lock *writelock.Lock, clock clockwork.Clock, logger *zap.Logger) *AdminServer {
	return &AdminServer{
		self:   self,
		syncs:  syncs,
		lock:   lock,
		clock:  clock,
		logger: logger,
	}
}

// EnqueueSync queues a sync of one wallet to one secondary. The request
// carries syncType, wallet and secondary; primary defaults to this node.
func (s *AdminServer) EnqueueSync(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	t, err := replica.ParseSyncType(fields["syncType"].GetStringValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	primary := fields["primary"].GetStringValue()
	if primary == "" {
		primary = s.self
	}
	sr := replica.NewSyncRequest(t, fields["wallet"].GetStringValue(), primary, fields["secondary"].GetStringValue(), s.clock.Now())

	s.logger.Info("admin sync request",
		zap.String("type", string(t)),
		zap.String("wallet", sr.Wallet),
		zap.String("secondary", sr.SecondaryEndpoint),
	)
	job, existing, err := s.syncs.EnqueueSync(ctx, sr)
	switch {
	case errors.Is(err, syncqueue.ErrInvalidJob):
		return nil, status.Error(codes.InvalidArgument, err.Error())
	case err != nil:
		return nil, status.Error(codes.Internal, err.Error())
	}
	return structpb.NewStruct(map[string]any{
		"jobId":    job.ID,
		"existing": existing,
	})
}

// SyncQueueJobs lists waiting and active sync jobs.
func (s *AdminServer) SyncQueueJobs(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	out, err := jobsToProto(s.syncs.QueueJobs())
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// WriteLockStatus reports the write lock of one wallet.
func (s *AdminServer) WriteLockStatus(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	wallet := req.GetValue()
	if wallet == "" {
		return nil, status.Error(codes.InvalidArgument, "wallet cannot be empty")
	}
	holder, err := s.lock.CurrentHolder(ctx, wallet)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	ls := LockStatus{Wallet: wallet, Holder: holder, Held: holder != ""}
	if ls.Held {
		ttl, err := s.lock.TTL(ctx, wallet)
		switch {
		case errors.Is(err, lockstore.ErrNoKey):
			// released between the two reads
			ls = LockStatus{Wallet: wallet}
		case err != nil:
			return nil, status.Error(codes.Internal, err.Error())
		default:
			ls.TTL = ttl
		}
	}
	return lockStatusToProto(ls)
}

// ClearWriteLocks removes every wallet write lock.
func (s *AdminServer) ClearWriteLocks(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.Int64Value, error) {
	n, err := s.lock.ClearAll(ctx)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	s.logger.Warn("all write locks cleared by admin", zap.Int("count", n))
	return wrapperspb.Int64(int64(n)), nil
}

// LockStatus describes a wallet write lock. A TTL of lockstore.NoExpiry
// means the lock never expires.
type LockStatus struct {
	Wallet string
	Held   bool
	Holder writelock.Acquirer
	TTL    time.Duration
}

package monitoring

import (
	"context"

	"snapback/internal/repair"
	"snapback/internal/replica"
)

//go:generate mockgen -package=mocks -destination=./mocks/mocks.go -source=./interface.go

// UserPager pages through the users assigned to a content node.
type UserPager interface {
	Endpoint() string
	UsersPage(ctx context.Context, endpoint string, prevUserID int64, maxUsers int) ([]replica.Assignment, error)
	LatestUserID(ctx context.Context) (int64, error)
}

// SliceReconciler reconciles the secondaries of a set of users.
type SliceReconciler interface {
	Reconcile(ctx context.Context, users []replica.Assignment) (repair.Result, error)
}

// ReplicaSets caches replica sets for manual syncs after client writes.
type ReplicaSets interface {
	RememberReplicaSets(users []replica.Assignment)
}

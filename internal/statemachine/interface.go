package statemachine

import (
	"context"

	"snapback/internal/repair"
	"snapback/internal/replica"
)

//go:generate mockgen -package=mocks -destination=./mocks/mocks.go -source=./interface.go

// UserFetcher returns the replica sets of a node's users.
type UserFetcher interface {
	NodeUsers(ctx context.Context, endpoint string) ([]replica.Assignment, error)
	PrimaryUsers(ctx context.Context, endpoint string) ([]replica.Assignment, error)
}

// SliceReconciler reconciles the secondaries of a set of users.
type SliceReconciler interface {
	Reconcile(ctx context.Context, users []replica.Assignment) (repair.Result, error)
}

// SyncQueues is the part of the sync queue manager the scan drives.
type SyncQueues interface {
	RememberReplicaSets(users []replica.Assignment)
	Obliterate()
}

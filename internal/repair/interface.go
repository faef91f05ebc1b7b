package repair

import (
	"context"

	"snapback/internal/clock"
	"snapback/internal/queue"
	"snapback/internal/replica"
)

//go:generate mockgen -package=mocks -destination=./mocks/mocks.go -source=./interface.go

// ClockStatusClient queries the clocks a secondary holds.
type ClockStatusClient interface {
	BatchClockStatus(ctx context.Context, endpoint string, wallets []string) (clock.Snapshot, error)
}

// PrimaryClocks reads the local clocks of this node.
type PrimaryClocks interface {
	ClockValues(ctx context.Context, wallets []string) (clock.Snapshot, error)
}

// SyncEnqueuer queues a sync unless an identical one is already waiting.
type SyncEnqueuer interface {
	EnqueueSync(ctx context.Context, req replica.SyncRequest) (*queue.Job[replica.SyncRequest], bool, error)
}

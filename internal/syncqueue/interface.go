package syncqueue

import (
	"context"

	"snapback/internal/replica"
)

//go:generate mockgen -package=mocks -destination=./mocks/mocks.go -source=./interface.go

// SecondaryClient issues sync requests and clock queries to secondaries.
type SecondaryClient interface {
	RequestSync(ctx context.Context, endpoint string, payload replica.SyncPayload) error
	ClockStatus(ctx context.Context, endpoint, wallet string) (int64, error)
}

// PrimaryClocks reads this node's clock for a wallet.
type PrimaryClocks interface {
	ClockValue(ctx context.Context, wallet string) (int64, bool, error)
}

package api

import (
	"context"

	"snapback/internal/replica"
	"snapback/internal/syncqueue"
)

//go:generate mockgen -package=mocks -destination=./mocks/mocks.go -source=./interface.go

// SyncQueues lists sync jobs and issues manual syncs after a client write.
type SyncQueues interface {
	QueueJobs() syncqueue.Jobs
	IssueManualSyncs(ctx context.Context, wallet string) ([]*syncqueue.Job, error)
}

// SyncScheduler starts pulling wallets from a primary.
type SyncScheduler interface {
	Schedule(payload replica.SyncPayload)
}

package nodesync

import (
	"context"

	"snapback/internal/contentnode"
)

//go:generate mockgen -package=mocks -destination=./mocks/mocks.go -source=./interface.go

// Exporter fetches a wallet's records from another content node.
type Exporter interface {
	Export(ctx context.Context, endpoint, wallet string, from int64) (contentnode.ExportResponse, error)
}

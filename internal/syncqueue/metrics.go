package syncqueue

import (
	"github.com/prometheus/client_golang/prometheus"

	"snapback/internal/metrics"
)

const subsystem = "sync"

var (
	enqueued = metrics.NewCounter(
		"enqueued_total",
		subsystem,
		"Sync jobs added to a queue",
		[]string{"type"},
	)
	deduplicated = metrics.NewCounter(
		"deduplicated_total",
		subsystem,
		"Sync requests answered with an already waiting job",
		[]string{"type"},
	)
	jobOutcomes = metrics.NewCounter(
		"jobs_total",
		subsystem,
		"Finished sync jobs by outcome",
		[]string{"type", "outcome"},
	)
	monitorDuration = metrics.NewHistogramWithBuckets(
		"monitor_duration_seconds",
		subsystem,
		"Time spent polling a secondary after a sync request",
		[]string{"type", "additional_sync"},
		prometheus.ExponentialBuckets(1, 2, 10),
	)
)

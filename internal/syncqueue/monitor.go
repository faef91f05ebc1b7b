package syncqueue

import (
	"context"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"snapback/internal/replica"
)

const (
	// DefaultMonitorDuration caps how long a job polls a secondary.
	DefaultMonitorDuration = 6 * time.Minute
	// DefaultMonitorRetryDelay is the interval between clock polls.
	DefaultMonitorRetryDelay = 15 * time.Second
	// DefaultMaxExportClockValueRange is the most records one sync moves.
	DefaultMaxExportClockValueRange int64 = 10000
)

// ClockStatusClient polls one secondary clock.
type ClockStatusClient interface {
	ClockStatus(ctx context.Context, endpoint, wallet string) (int64, error)
}

// Monitor waits for a secondary to catch up after a sync request.
type Monitor struct {
	client     ClockStatusClient
	clock      clockwork.Clock
	logger     *zap.Logger
	maxRange   int64
	duration   time.Duration
	retryDelay time.Duration
}

// NewMonitor creates a Monitor. Zero durations and ranges use the defaults.
func NewMonitor(client ClockStatusClient, clock clockwork.Clock, logger *zap.Logger, maxRange int64, duration, retryDelay time.Duration) *Monitor {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRange <= 0 {
		maxRange = DefaultMaxExportClockValueRange
	}
	if duration <= 0 {
		duration = DefaultMonitorDuration
	}
	if retryDelay <= 0 {
		retryDelay = DefaultMonitorRetryDelay
	}
	return &Monitor{
		client:     client,
		clock:      clock,
		logger:     logger,
		maxRange:   maxRange,
		duration:   duration,
		retryDelay: retryDelay,
	}
}

// AdditionalSyncRequired polls the secondary's clock for wallet until it
// reaches primaryClock or the monitoring duration runs out. It returns true
// early when the gap is larger than a single sync can close, false once the
// secondary has caught up, and true on timeout or cancellation. Poll errors
// are logged and the polling goes on.
func (m *Monitor) AdditionalSyncRequired(ctx context.Context, wallet string, primaryClock int64, secondary string, t replica.SyncType) (additional bool) {
	start := m.clock.Now()
	deadline := start.Add(m.duration)
	logger := m.logger.With(
		zap.String("wallet", wallet),
		zap.String("secondary", secondary),
		zap.String("type", string(t)),
		zap.Int64("primary_clock", primaryClock),
	)
	defer func() {
		monitorDuration.WithLabelValues(string(t), strconv.FormatBool(additional)).
			Observe(m.clock.Since(start).Seconds())
	}()

	for m.clock.Now().Before(deadline) {
		secondaryClock, err := m.client.ClockStatus(ctx, secondary, wallet)
		switch {
		case err != nil:
			logger.Warn("clock poll failed", zap.Error(err))
		case secondaryClock+m.maxRange < primaryClock:
			logger.Info("secondary too far behind for one sync",
				zap.Int64("secondary_clock", secondaryClock), zap.Int64("max_range", m.maxRange))
			return true
		case secondaryClock >= primaryClock:
			logger.Debug("secondary caught up", zap.Int64("secondary_clock", secondaryClock))
			return false
		default:
			logger.Debug("secondary still behind", zap.Int64("secondary_clock", secondaryClock))
		}

		select {
		case <-ctx.Done():
			return true
		case <-m.clock.After(m.retryDelay):
		}
	}
	logger.Info("secondary did not catch up in time", zap.Duration("duration", m.duration))
	return true
}

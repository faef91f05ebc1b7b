package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"snapback/internal/clock"
)

// ErrClockGap is returned by Import when the first new record does not
// directly follow the local clock.
var ErrClockGap = errors.New("records do not continue the local clock")

// Record is one write in a wallet's log. Clock is its position, starting
// at 1.
type Record struct {
	Clock   int64           `json:"clock"`
	Payload json.RawMessage `json:"payload"`
}

// Store defines the interface for local wallet state.
type Store interface {
	// ClockValue returns the wallet's clock. ok is false for a wallet that
	// was never written.
	ClockValue(ctx context.Context, wallet string) (value int64, ok bool, err error)
	// ClockValues returns the clocks of the known wallets among wallets.
	ClockValues(ctx context.Context, wallets []string) (clock.Snapshot, error)
	// Append adds a record and returns the new clock.
	Append(ctx context.Context, wallet string, payload []byte) (int64, error)
	// Export returns up to limit records with clock >= from, in order.
	Export(ctx context.Context, wallet string, from int64, limit int) ([]Record, error)
	// Import applies records that continue the local clock. Records at or
	// below the local clock are skipped. It returns the new clock.
	Import(ctx context.Context, wallet string, records []Record) (int64, error)
}

// InMemoryStore is an in-memory implementation of Store.
// It's thread-safe.
type InMemoryStore struct {
	mu   sync.RWMutex
	logs map[string][]Record
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates a new in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{logs: make(map[string][]Record)}
}

// ClockValue returns the wallet's clock.
func (s *InMemoryStore) ClockValue(_ context.Context, wallet string) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log, ok := s.logs[wallet]
	if !ok {
		return clock.Unreported, false, nil
	}
	return int64(len(log)), true, nil
}

// ClockValues returns the clocks of the known wallets.
func (s *InMemoryStore) ClockValues(_ context.Context, wallets []string) (clock.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := clock.New()
	for _, w := range wallets {
		if log, ok := s.logs[w]; ok {
			out.Set(w, int64(len(log)))
		}
	}
	return out, nil
}

// Append adds a record for wallet.
func (s *InMemoryStore) Append(_ context.Context, wallet string, payload []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := int64(len(s.logs[wallet])) + 1
	s.logs[wallet] = append(s.logs[wallet], Record{
		Clock:   next,
		Payload: append(json.RawMessage(nil), payload...),
	})
	return next, nil
}

// Export returns records with clock >= from.
func (s *InMemoryStore) Export(_ context.Context, wallet string, from int64, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.logs[wallet]
	if from < 1 {
		from = 1
	}
	if from > int64(len(log)) {
		return nil, nil
	}
	end := int64(len(log))
	if limit > 0 && from-1+int64(limit) < end {
		end = from - 1 + int64(limit)
	}

	// Return copies to avoid external modifications
	out := make([]Record, 0, end-from+1)
	for _, r := range log[from-1 : end] {
		out = append(out, Record{Clock: r.Clock, Payload: append(json.RawMessage(nil), r.Payload...)})
	}
	return out, nil
}

// Import applies records continuing wallet's clock.
func (s *InMemoryStore) Import(_ context.Context, wallet string, records []Record) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.logs[wallet]
	local := int64(len(log))
	for _, r := range records {
		if r.Clock <= local {
			continue
		}
		if r.Clock != local+1 {
			return local, fmt.Errorf("import %s at clock %d (local %d): %w", wallet, r.Clock, local, ErrClockGap)
		}
		log = append(log, Record{Clock: r.Clock, Payload: append(json.RawMessage(nil), r.Payload...)})
		local = r.Clock
		// keep the applied prefix even if a later record has a gap
		s.logs[wallet] = log
	}
	return local, nil
}

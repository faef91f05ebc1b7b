package lockstore

import (
	"context"
	"errors"
	"time"
)

// ErrNoKey is returned by TTL when the key does not exist or has expired.
var ErrNoKey = errors.New("lockstore: no such key")

// NoExpiry is returned by TTL for a key stored without a TTL.
const NoExpiry time.Duration = -1

// Store is the lock store contract. Expired keys behave exactly like missing
// ones.
type Store interface {
	// SetIfAbsent stores value under key unless an unexpired value is
	// present. It reports whether the value was stored. A ttl <= 0 never
	// expires.
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, key string) error
	TTL(ctx context.Context, key string) (time.Duration, error)
	// DeletePrefix removes every key starting with prefix and returns how
	// many were removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

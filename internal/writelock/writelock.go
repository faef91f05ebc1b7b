package writelock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"snapback/internal/lockstore"
)

const (
	// KeyPrefix prefixes every wallet lock key.
	KeyPrefix = "WRITE.WALLET."

	// DefaultTTL is the lock expiry used when Acquire is given no TTL.
	DefaultTTL = 1800 * time.Second
)

// Acquirer names the write path holding a lock.
type Acquirer string

const (
	PrimarySyncFromSecondary Acquirer = "primarySyncFromSecondary"
	SecondarySyncFromPrimary Acquirer = "secondarySyncFromPrimary"
	UserWrite                Acquirer = "userWrite"
)

// Valid reports whether a is a known acquirer.
func (a Acquirer) Valid() bool {
	switch a {
	case PrimarySyncFromSecondary, SecondarySyncFromPrimary, UserWrite:
		return true
	}
	return false
}

// IsSync reports whether a is one of the sync write paths.
func (a Acquirer) IsSync() bool {
	return a == PrimarySyncFromSecondary || a == SecondarySyncFromPrimary
}

var (
	// ErrLockHeld matches every ConflictError.
	ErrLockHeld = errors.New("write lock already held")

	// ErrInvalidAcquirer is returned for an unknown acquirer identity.
	ErrInvalidAcquirer = errors.New("invalid write lock acquirer")
)

// ConflictError is returned by Acquire when the wallet is already locked.
type ConflictError struct {
	Wallet string
	Holder Acquirer
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("[acquireWriteLockForWallet][Wallet: %s] Error: Failed to acquire lock - already held.", e.Wallet)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrLockHeld
}

// Key returns the lock store key of wallet.
func Key(wallet string) string {
	return KeyPrefix + wallet
}

// Lock is the wallet write lock.
type Lock struct {
	store  lockstore.Store
	ttl    time.Duration
	logger *zap.Logger
}

// Opt configures a Lock.
type Opt func(*Lock)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Opt {
	return func(l *Lock) {
		l.logger = logger
	}
}

// WithDefaultTTL overrides DefaultTTL.
func WithDefaultTTL(ttl time.Duration) Opt {
	return func(l *Lock) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// New creates a Lock on store.
func New(store lockstore.Store, opts ...Opt) *Lock {
	l := &Lock{
		store:  store,
		ttl:    DefaultTTL,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire takes the lock for wallet on behalf of acquirer. A ttl <= 0 uses
// the default TTL. When the lock is already held it returns a *ConflictError
// and leaves the existing lock untouched.
func (l *Lock) Acquire(ctx context.Context, wallet string, acquirer Acquirer, ttl time.Duration) error {
	if !acquirer.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidAcquirer, acquirer)
	}
	if ttl <= 0 {
		ttl = l.ttl
	}
	ok, err := l.store.SetIfAbsent(ctx, Key(wallet), string(acquirer), ttl)
	if err != nil {
		return fmt.Errorf("acquire write lock for %s: %w", wallet, err)
	}
	if !ok {
		holder, _ := l.CurrentHolder(ctx, wallet)
		return &ConflictError{Wallet: wallet, Holder: holder}
	}
	l.logger.Debug("write lock acquired",
		zap.String("wallet", wallet),
		zap.String("acquirer", string(acquirer)),
		zap.Duration("ttl", ttl),
	)
	return nil
}

// Release drops the lock for wallet. Releasing an unheld lock is a no-op.
func (l *Lock) Release(ctx context.Context, wallet string) error {
	if err := l.store.Delete(ctx, Key(wallet)); err != nil {
		return fmt.Errorf("release write lock for %s: %w", wallet, err)
	}
	l.logger.Debug("write lock released", zap.String("wallet", wallet))
	return nil
}

// IsHeld reports whether wallet is locked.
func (l *Lock) IsHeld(ctx context.Context, wallet string) (bool, error) {
	_, ok, err := l.store.Get(ctx, Key(wallet))
	if err != nil {
		return false, fmt.Errorf("check write lock for %s: %w", wallet, err)
	}
	return ok, nil
}

// CurrentHolder returns the acquirer holding wallet's lock, or "" when it is
// free.
func (l *Lock) CurrentHolder(ctx context.Context, wallet string) (Acquirer, error) {
	v, ok, err := l.store.Get(ctx, Key(wallet))
	if err != nil {
		return "", fmt.Errorf("get write lock holder for %s: %w", wallet, err)
	}
	if !ok {
		return "", nil
	}
	return Acquirer(v), nil
}

// TTL returns the time left on wallet's lock. It returns
// lockstore.ErrNoKey when the lock is free.
func (l *Lock) TTL(ctx context.Context, wallet string) (time.Duration, error) {
	return l.store.TTL(ctx, Key(wallet))
}

// SyncIsInProgress reports whether wallet is locked by a sync write path.
func (l *Lock) SyncIsInProgress(ctx context.Context, wallet string) (bool, error) {
	holder, err := l.CurrentHolder(ctx, wallet)
	if err != nil {
		return false, err
	}
	return holder.IsSync(), nil
}

// ClearAll removes every wallet write lock and returns how many it removed.
func (l *Lock) ClearAll(ctx context.Context) (int, error) {
	n, err := l.store.DeletePrefix(ctx, KeyPrefix)
	if err != nil {
		return 0, fmt.Errorf("clear write locks: %w", err)
	}
	l.logger.Info("write locks cleared", zap.Int("count", n))
	return n, nil
}

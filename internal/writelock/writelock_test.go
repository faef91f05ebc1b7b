package writelock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"snapback/internal/lockstore"
	"snapback/internal/sqlitedb"
)

func newLock(t *testing.T) (*Lock, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClock()
	return New(lockstore.NewMemoryStore(clock), WithLogger(zaptest.NewLogger(t))), clock
}

func TestLock_AcquireRelease(t *testing.T) {
	ctx := context.Background()
	l, _ := newLock(t)

	held, err := l.IsHeld(ctx, "wallet")
	require.NoError(t, err)
	assert.False(t, held)
	holder, err := l.CurrentHolder(ctx, "wallet")
	require.NoError(t, err)
	assert.Empty(t, holder)

	require.NoError(t, l.Acquire(ctx, "wallet", PrimarySyncFromSecondary, 0))

	ttl, err := l.TTL(ctx, "wallet")
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, ttl)
	held, err = l.IsHeld(ctx, "wallet")
	require.NoError(t, err)
	assert.True(t, held)
	holder, err = l.CurrentHolder(ctx, "wallet")
	require.NoError(t, err)
	assert.Equal(t, PrimarySyncFromSecondary, holder)
	syncing, err := l.SyncIsInProgress(ctx, "wallet")
	require.NoError(t, err)
	assert.True(t, syncing)

	err = l.Acquire(ctx, "wallet", PrimarySyncFromSecondary, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLockHeld))
	assert.EqualError(t, err, "[acquireWriteLockForWallet][Wallet: wallet] Error: Failed to acquire lock - already held.")

	require.NoError(t, l.Release(ctx, "wallet"))
	held, err = l.IsHeld(ctx, "wallet")
	require.NoError(t, err)
	assert.False(t, held)
	syncing, err = l.SyncIsInProgress(ctx, "wallet")
	require.NoError(t, err)
	assert.False(t, syncing)
	_, err = l.TTL(ctx, "wallet")
	assert.ErrorIs(t, err, lockstore.ErrNoKey)
}

func TestLock_ConflictKeepsHolderAndExpiry(t *testing.T) {
	ctx := context.Background()
	l, clock := newLock(t)

	require.NoError(t, l.Acquire(ctx, "W", PrimarySyncFromSecondary, time.Second))

	err := l.Acquire(ctx, "W", SecondarySyncFromPrimary, time.Minute)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "W", conflict.Wallet)
	assert.Equal(t, PrimarySyncFromSecondary, conflict.Holder)

	ttl, err := l.TTL(ctx, "W")
	require.NoError(t, err)
	assert.Equal(t, time.Second, ttl)

	clock.Advance(1100 * time.Millisecond)

	require.NoError(t, l.Acquire(ctx, "W", SecondarySyncFromPrimary, time.Second))
	holder, err := l.CurrentHolder(ctx, "W")
	require.NoError(t, err)
	assert.Equal(t, SecondarySyncFromPrimary, holder)
}

func TestLock_UserWriteIsNotSync(t *testing.T) {
	ctx := context.Background()
	l, _ := newLock(t)

	require.NoError(t, l.Acquire(ctx, "W", UserWrite, 0))
	syncing, err := l.SyncIsInProgress(ctx, "W")
	require.NoError(t, err)
	assert.False(t, syncing)
	held, err := l.IsHeld(ctx, "W")
	require.NoError(t, err)
	assert.True(t, held)
}

func TestLock_InvalidAcquirer(t *testing.T) {
	l, _ := newLock(t)
	err := l.Acquire(context.Background(), "W", Acquirer("someone"), 0)
	assert.ErrorIs(t, err, ErrInvalidAcquirer)
}

func TestLock_ClearAll(t *testing.T) {
	ctx := context.Background()
	db, err := sqlitedb.Open(sqlitedb.Memory)
	require.NoError(t, err)
	defer db.Close()

	store := lockstore.NewSQLiteStore(db, clockwork.NewFakeClock())
	l := New(store, WithDefaultTTL(time.Minute))

	wallets := map[string]Acquirer{
		"wallet1": PrimarySyncFromSecondary,
		"wallet2": SecondarySyncFromPrimary,
		"wallet3": PrimarySyncFromSecondary,
		"wallet4": SecondarySyncFromPrimary,
	}
	for w, a := range wallets {
		require.NoError(t, l.Acquire(ctx, w, a, 0))
	}
	ok, err := store.SetIfAbsent(ctx, "OTHER.KEY", "v", 0)
	require.NoError(t, err)
	require.True(t, ok)

	n, err := l.ClearAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	for w := range wallets {
		syncing, err := l.SyncIsInProgress(ctx, w)
		require.NoError(t, err)
		assert.False(t, syncing, w)
	}
	_, found, err := store.Get(ctx, "OTHER.KEY")
	require.NoError(t, err)
	assert.True(t, found, "keys outside the wallet prefix survive")
}

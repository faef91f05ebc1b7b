package lockstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

// SQLiteStore is a Store on the locks table of a SQLite database. Processes
// sharing the database file share the locks.
type SQLiteStore struct {
	db    *sql.DB
	clock clockwork.Clock
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore wraps db, which must already carry the locks table. A nil
// clock uses the real clock.
func NewSQLiteStore(db *sql.DB, clock clockwork.Clock) *SQLiteStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SQLiteStore{db: db, clock: clock}
}

// An expired row is overwritten in place; a live one is left untouched so
// the statement changes zero rows.
const setIfAbsentSQL = `
INSERT INTO locks (key, value, expires_at) VALUES (?, ?, ?)
ON CONFLICT (key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
WHERE locks.expires_at IS NOT NULL AND locks.expires_at <= ?`

func (s *SQLiteStore) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	now := s.clock.Now()
	var expiresAt sql.NullInt64
	if ttl > 0 {
		expiresAt = sql.NullInt64{Int64: now.Add(ttl).UnixNano(), Valid: true}
	}
	res, err := s.db.ExecContext(ctx, setIfAbsentSQL, key, value, expiresAt, now.UnixNano())
	if err != nil {
		return false, fmt.Errorf("set %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set %s: %w", key, err)
	}
	return n == 1, nil
}

func (s *SQLiteStore) load(ctx context.Context, key string) (string, sql.NullInt64, bool, error) {
	var (
		value     string
		expiresAt sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM locks WHERE key = ? AND (expires_at IS NULL OR expires_at > ?)`,
		key, s.clock.Now().UnixNano(),
	).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", expiresAt, false, nil
	}
	if err != nil {
		return "", expiresAt, false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, expiresAt, true, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, _, ok, err := s.load(ctx, key)
	return value, ok, err
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM locks WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	_, expiresAt, ok, err := s.load(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNoKey
	}
	if !expiresAt.Valid {
		return NoExpiry, nil
	}
	return time.Unix(0, expiresAt.Int64).Sub(s.clock.Now()), nil
}

func (s *SQLiteStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM locks WHERE substr(key, 1, ?) = ?`, len(prefix), prefix)
	if err != nil {
		return 0, fmt.Errorf("delete prefix %s: %w", prefix, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete prefix %s: %w", prefix, err)
	}
	return int(n), nil
}

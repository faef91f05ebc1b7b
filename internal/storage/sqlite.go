package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"snapback/internal/clock"
)

// SQLiteStore is a Store on the wallet tables of a SQLite database opened
// with sqlitedb.Open.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore wraps db.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func clockValue(ctx context.Context, q querier, wallet string) (int64, bool, error) {
	var v int64
	err := q.QueryRowContext(ctx, `SELECT clock FROM wallet_clocks WHERE wallet = ?`, wallet).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return clock.Unreported, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read clock of %s: %w", wallet, err)
	}
	return v, true, nil
}

// ClockValue returns the wallet's clock.
func (s *SQLiteStore) ClockValue(ctx context.Context, wallet string) (int64, bool, error) {
	return clockValue(ctx, s.db, wallet)
}

// ClockValues returns the clocks of the known wallets.
func (s *SQLiteStore) ClockValues(ctx context.Context, wallets []string) (clock.Snapshot, error) {
	out := clock.New()
	if len(wallets) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(wallets)), ",")
	args := make([]any, len(wallets))
	for i, w := range wallets {
		args[i] = w
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT wallet, clock FROM wallet_clocks WHERE wallet IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("read clocks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			w string
			v int64
		)
		if err := rows.Scan(&w, &v); err != nil {
			return nil, fmt.Errorf("scan clock: %w", err)
		}
		out.Set(w, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read clocks: %w", err)
	}
	return out, nil
}

func insertRecord(ctx context.Context, tx *sql.Tx, wallet string, c int64, payload []byte) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO wallet_records (wallet, clock, payload) VALUES (?, ?, ?)`, wallet, c, payload); err != nil {
		return fmt.Errorf("insert record %s/%d: %w", wallet, c, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO wallet_clocks (wallet, clock) VALUES (?, ?)
		 ON CONFLICT (wallet) DO UPDATE SET clock = excluded.clock`, wallet, c); err != nil {
		return fmt.Errorf("update clock of %s: %w", wallet, err)
	}
	return nil
}

// Append adds a record for wallet.
func (s *SQLiteStore) Append(ctx context.Context, wallet string, payload []byte) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	local, _, err := clockValue(ctx, tx, wallet)
	if err != nil {
		return 0, err
	}
	next := max(local, 0) + 1
	if err := insertRecord(ctx, tx, wallet, next, payload); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit append: %w", err)
	}
	return next, nil
}

// Export returns records with clock >= from.
func (s *SQLiteStore) Export(ctx context.Context, wallet string, from int64, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT clock, payload FROM wallet_records WHERE wallet = ? AND clock >= ? ORDER BY clock LIMIT ?`,
		wallet, from, limit)
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", wallet, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Clock, &r.Payload); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("export %s: %w", wallet, err)
	}
	return out, nil
}

// Import applies records continuing wallet's clock. The applied prefix is
// committed even when a later record leaves a gap.
func (s *SQLiteStore) Import(ctx context.Context, wallet string, records []Record) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	local, _, err := clockValue(ctx, tx, wallet)
	if err != nil {
		return 0, err
	}
	local = max(local, 0)

	var gap error
	for _, r := range records {
		if r.Clock <= local {
			continue
		}
		if r.Clock != local+1 {
			gap = fmt.Errorf("import %s at clock %d (local %d): %w", wallet, r.Clock, local, ErrClockGap)
			break
		}
		if err := insertRecord(ctx, tx, wallet, r.Clock, r.Payload); err != nil {
			return 0, err
		}
		local = r.Clock
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return local, gap
}

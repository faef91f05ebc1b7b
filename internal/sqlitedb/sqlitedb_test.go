package sqlitedb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.db")

	db, err := Open(path)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO wallet_clocks (wallet, clock) VALUES ('w', 3)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()

	var clock int64
	require.NoError(t, db.QueryRow(`SELECT clock FROM wallet_clocks WHERE wallet = 'w'`).Scan(&clock))
	require.Equal(t, int64(3), clock)

	var mode string
	require.NoError(t, db.QueryRow(`PRAGMA journal_mode`).Scan(&mode))
	require.Equal(t, "wal", mode)
}

func TestOpen_Memory(t *testing.T) {
	db, err := Open(Memory)
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"locks", "wallet_clocks", "wallet_records"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
	}
}

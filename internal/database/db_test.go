package database

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T, name string, profile DatabaseProfile) *DB {
	t.Helper()
	db, err := New(Config{Path: filepath.Join(t.TempDir(), name+".db"), Profile: profile, Name: name})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func tableExists(t *testing.T, db *DB, table string) bool {
	t.Helper()
	var n int
	err := db.Conn().QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&n)
	require.NoError(t, err)
	return n == 1
}

func TestMigrate_CreatesTablesPerDatabase(t *testing.T) {
	tests := []struct {
		name    string
		profile DatabaseProfile
		tables  []string
	}{
		{NamePortfolio, ProfileRecords, []string{"policies", "slips"}},
		{NameConfig, ProfileRecords, []string{"settings"}},
		{NameCache, ProfileCache, []string{"exchangerate", "usd_rates"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newTestDatabase(t, tt.name, tt.profile)
			require.NoError(t, db.Migrate())
			require.NoError(t, db.Migrate(), "migrations must be re-runnable")
			for _, table := range tt.tables {
				assert.True(t, tableExists(t, db, table), table)
			}
		})
	}
}

func TestMigrate_UnknownNameIsNoop(t *testing.T) {
	db := newTestDatabase(t, "scratch", ProfileRecords)
	assert.NoError(t, db.Migrate())
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	db := newTestDatabase(t, NameConfig, ProfileRecords)
	require.NoError(t, db.Migrate())

	boom := errors.New("boom")
	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO settings (key, value, updated_at) VALUES ('a', '1', 0)"); err != nil {
			return err
		}
		return boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM settings").Scan(&n))
	assert.Equal(t, 0, n)
}

func TestWithTransaction_RecoversPanic(t *testing.T) {
	db := newTestDatabase(t, NameConfig, ProfileRecords)

	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		panic("kaboom")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestWithTransaction_NilConnection(t *testing.T) {
	assert.Error(t, WithTransaction(nil, func(tx *sql.Tx) error { return nil }))
}

func TestVacuumInto_WritesSnapshot(t *testing.T) {
	db := newTestDatabase(t, NameConfig, ProfileRecords)
	require.NoError(t, db.Migrate())
	_, err := db.Conn().Exec("INSERT INTO settings (key, value, updated_at) VALUES ('risk.top_n', '10', 0)")
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "snapshot.db")
	require.NoError(t, db.VacuumInto(context.Background(), dest))

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	snap, err := New(Config{Path: dest, Name: NameConfig})
	require.NoError(t, err)
	defer snap.Close()

	var value string
	require.NoError(t, snap.Conn().QueryRow("SELECT value FROM settings WHERE key = 'risk.top_n'").Scan(&value))
	assert.Equal(t, "10", value)
}

func TestWALCheckpoint(t *testing.T) {
	db := newTestDatabase(t, NamePortfolio, ProfileRecords)
	require.NoError(t, db.Migrate())
	assert.NoError(t, db.WALCheckpoint(""))
	assert.NoError(t, db.QuickCheck(context.Background()))
	assert.Greater(t, db.SizeBytes(), int64(0))
}

// Package testing provides test helpers shared by repository tests.
package testing

import (
	"fmt"
	"os"
	"testing"

	"github.com/mosaic-erp/reinsurance/internal/database"
)

// NewTestDB creates a migrated SQLite database in a temporary file.
// The name selects the schema: "portfolio", "config" or "cache".
// Unknown names yield an empty database. The returned cleanup closes and removes it.
func NewTestDB(t *testing.T, name string) (*database.DB, func()) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", fmt.Sprintf("test_%s_*.db", name))
	if err != nil {
		t.Fatalf("Failed to create temporary database file: %v", err)
	}
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()

	profile := database.ProfileRecords
	if name == database.NameCache {
		profile = database.ProfileCache
	}

	db, err := database.New(database.Config{Path: tmpPath, Profile: profile, Name: name})
	if err != nil {
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	return db, func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
		for _, p := range []string{tmpPath, tmpPath + "-wal", tmpPath + "-shm"} {
			_ = os.Remove(p)
		}
	}
}

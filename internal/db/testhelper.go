package db

import (
	"database/sql"
	"path/filepath"
	"testing"
)

// OpenTestSQLite opens a migrated write/read pool pair on a file in
// t.TempDir(). Most tests only need the write pool and discard readDB.
// Callers must blank-import the sqlite3 driver.
func OpenTestSQLite(t *testing.T) (writeDB, readDB *sql.DB) {
	t.Helper()

	writeDB, readDB, err := OpenSQLitePair(filepath.Join(t.TempDir(), "placedir.sqlite"), 0)
	if err != nil {
		t.Fatalf("open test sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = readDB.Close()
		_ = writeDB.Close()
	})
	if err := RunMigrations(writeDB); err != nil {
		t.Fatalf("migrate test sqlite: %v", err)
	}
	return writeDB, readDB
}

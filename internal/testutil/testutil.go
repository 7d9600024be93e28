// Package testutil carries shared test fixtures: an in-process HTTP client
// for handler tests and a throwaway sqlite store.
package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/ChristChad-mv/careflow-sub000/internal/store/sqlite"
)

// OpenTestDB opens a migrated sqlite database in a temp dir.
func OpenTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "careflow-test.db")
	db, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := sqlite.Migrate(db); err != nil {
		_ = db.Close()
		t.Fatalf("migrate db: %v", err)
	}
	return db, func() {
		_ = db.Close()
	}
}

// OpenTestStore returns a ready sqlite-backed store for one test.
func OpenTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	db, closeFn := OpenTestDB(t)
	t.Cleanup(closeFn)
	return sqlite.NewStore(db)
}

// Package testutil provides fixtures shared by the package tests.
package testutil

import (
	"os"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/academia/storage/database"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
)

// PrepareDB returns an empty in-memory database.
func PrepareDB(t *testing.T) *inmemdb.DB {
	t.Helper()
	return inmemdb.Open()
}

// PrepareSQLDB opens the Postgres database at $TEST_DATABASE_URL with a freshly migrated schema.
// The test is skipped when the variable is not set.
func PrepareSQLDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := database.OpenURL(dbURL)
	if err != nil {
		t.Fatalf("PrepareSQLDB(): %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.RunMigrations(db.DB, "reset"); err != nil {
		t.Fatalf("PrepareSQLDB(): %v", err)
	}
	if err = database.Migrate(db.DB); err != nil {
		t.Fatalf("PrepareSQLDB(): %v", err)
	}
	return db
}

// Package repotest provides migrated throwaway databases for tests.
package repotest

import (
	"context"
	"database/sql"
	"testing"

	"github.com/ledgerly/ledgerly-api/internal/repository"
)

// SQLiteDSN is an in-memory database that stores timestamps in a sortable
// text form and enforces foreign keys.
const SQLiteDSN = ":memory:?_pragma=foreign_keys(1)&_time_format=sqlite"

// NewSQLite returns a migrated in-memory SQLite database that is closed when
// the test finishes.
func NewSQLite(t testing.TB) *repository.DB {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", SQLiteDSN)
	if err != nil {
		t.Fatalf("sql.Open() unexpected error: %v", err)
	}
	// Every connection to :memory: is a separate database.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db := repository.NewDB(sqlDB, repository.SQLite)
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() unexpected error: %v", err)
	}
	return db
}

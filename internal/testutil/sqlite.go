// Package testutil provides database fixtures for tests.
package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/footballdb/football-api/internal/store"
)

// NewTestSQLite opens a migrated SQLite database in a per-test directory.
func NewTestSQLite(t testing.TB) *sql.DB {
	t.Helper()

	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "football.db")
	db, err := store.Open(ctx, store.SQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = store.Migrate(ctx, db, store.SQLite)
	require.NoError(t, err)
	return db
}

// NewTestStore returns a SQLStore over NewTestSQLite.
func NewTestStore(t testing.TB) *store.SQLStore {
	t.Helper()
	return store.New(NewTestSQLite(t), store.SQLite)
}

// SeedToken provisions token in st and fails the test on error.
func SeedToken(t testing.TB, st *store.SQLStore, token string) {
	t.Helper()
	require.NoError(t, st.AddToken(context.Background(), token))
}

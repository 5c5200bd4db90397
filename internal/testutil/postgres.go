//go:build integration

package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/footballdb/football-api/internal/store"
)

// NewTestPostgres starts a disposable PostgreSQL container and applies the
// embedded migrations. The container is terminated when the test finishes.
func NewTestPostgres(t testing.TB) *sql.DB {
	t.Helper()

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("football"),
		tcpostgres.WithUsername("football"),
		tcpostgres.WithPassword("football"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(container)
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := store.Open(ctx, store.Postgres, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = store.Migrate(ctx, db, store.Postgres)
	require.NoError(t, err)
	return db
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/footballdb/football-api/migrations"
)

// MigrationResult reports the schema version after migrations ran.
type MigrationResult struct {
	Version uint
	Dirty   bool
}

// Migrate applies every pending embedded migration for dialect. The caller
// keeps ownership of db.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) (MigrationResult, error) {
	src, err := iofs.New(migrations.FS, string(dialect))
	if err != nil {
		return MigrationResult{}, fmt.Errorf("loading %s migrations: %w", dialect, err)
	}

	var driver database.Driver
	switch dialect {
	case Postgres:
		conn, err := db.Conn(ctx)
		if err != nil {
			return MigrationResult{}, fmt.Errorf("acquiring migration connection: %w", err)
		}
		// Closing the migrator releases conn without closing db.
		driver, err = postgres.WithConnection(ctx, conn, &postgres.Config{})
		if err != nil {
			_ = conn.Close()
			return MigrationResult{}, fmt.Errorf("creating postgres migration driver: %w", err)
		}
	case SQLite:
		driver, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
		if err != nil {
			return MigrationResult{}, fmt.Errorf("creating sqlite migration driver: %w", err)
		}
	default:
		return MigrationResult{}, fmt.Errorf("unsupported migration dialect %q", dialect)
	}

	m, err := migrate.NewWithInstance("iofs", src, string(dialect), driver)
	if err != nil {
		return MigrationResult{}, fmt.Errorf("creating migrator: %w", err)
	}
	if dialect == Postgres {
		defer m.Close()
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return MigrationResult{}, fmt.Errorf("applying migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return MigrationResult{}, fmt.Errorf("reading migration version: %w", err)
	}
	return MigrationResult{Version: version, Dirty: dirty}, nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	// Registers the "postgres" database/sql driver.
	_ "github.com/lib/pq"
	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	"github.com/footballdb/football-api/internal/model"
)

// Dialect selects the SQL flavour and driver used by SQLStore.
type Dialect string

const (
	// Postgres uses lib/pq and $n placeholders.
	Postgres Dialect = "postgres"
	// SQLite uses modernc.org/sqlite and ? placeholders.
	SQLite Dialect = "sqlite"
)

// ParseDialect maps a configured driver name to a Dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch Dialect(strings.ToLower(strings.TrimSpace(driver))) {
	case Postgres:
		return Postgres, nil
	case SQLite:
		return SQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// SQLStore implements Store and TokenAdmin over database/sql.
type SQLStore struct {
	db      *sql.DB
	sb      sq.StatementBuilderType
	dialect Dialect
}

// New creates a store for an open database handle.
func New(db *sql.DB, dialect Dialect) *SQLStore {
	var format sq.PlaceholderFormat = sq.Question
	if dialect == Postgres {
		format = sq.Dollar
	}
	return &SQLStore{
		db:      db,
		sb:      sq.StatementBuilder.PlaceholderFormat(format),
		dialect: dialect,
	}
}

// Open connects to the database and applies per-dialect connection settings.
func Open(ctx context.Context, dialect Dialect, dsn string) (*sql.DB, error) {
	if dialect == SQLite {
		dsn = sqliteDSN(dsn)
	}
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", dialect, err)
	}
	if dialect == SQLite {
		// SQLite allows one writer at a time.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to %s database: %w", dialect, err)
	}
	return db, nil
}

// sqlitePragmas are applied by the driver to every new connection, so a
// connection the pool replaces keeps foreign key enforcement.
var sqlitePragmas = []struct{ name, value string }{
	{name: "foreign_keys", value: "1"},
	{name: "busy_timeout", value: "5000"},
}

// sqliteDSN appends the _pragma parameters modernc.org/sqlite understands,
// leaving any pragma the caller already set untouched.
func sqliteDSN(dsn string) string {
	var params []string
	for _, p := range sqlitePragmas {
		if strings.Contains(dsn, "_pragma="+p.name+"(") {
			continue
		}
		params = append(params, "_pragma="+p.name+"("+p.value+")")
	}
	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

// Dialect reports the SQL flavour the store was built for.
func (s *SQLStore) Dialect() Dialect {
	return s.dialect
}

// Ping checks database connectivity.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Records returns the repository for res.
func (s *SQLStore) Records(res model.Resource) Repository {
	return &recordRepository{store: s, res: res}
}

func rowsAffectedAsInt(res sql.Result, label string) (int, error) {
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading rows affected for %s: %w", label, err)
	}
	if affected < 0 {
		return 0, nil
	}
	return int(affected), nil
}

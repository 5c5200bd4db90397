// Package store defines persistence contracts for football-api and provides
// the SQL implementation used for PostgreSQL and SQLite.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/footballdb/football-api/internal/model"
)

var (
	// ErrNotFound is returned when no row matches the requested id or token.
	ErrNotFound = errors.New("not found")
	// ErrTokenExists is returned when provisioning a token that is already stored.
	ErrTokenExists = errors.New("token already exists")
)

// Store defines the persistence methods the HTTP service needs.
type Store interface {
	// Ping checks DB connectivity for readiness probes.
	Ping(ctx context.Context) error
	// HasToken reports whether token matches a provisioned credential exactly.
	HasToken(ctx context.Context, token string) (bool, error)
	// Records returns the repository for one resource descriptor.
	Records(res model.Resource) Repository
}

// Repository is the CRUD surface shared by every resource.
type Repository interface {
	// List returns one window of records ordered by id, plus the collection size.
	List(ctx context.Context, limit, offset int) ([]model.Record, int, error)
	Get(ctx context.Context, id int64) (model.Record, error)
	Create(ctx context.Context, values []model.Assignment) (int64, error)
	// Replace overwrites every Field Set column of an existing record.
	Replace(ctx context.Context, id int64, values []model.Assignment) error
	Patch(ctx context.Context, update model.PartialUpdate) error
	Delete(ctx context.Context, id int64) error
}

// Token is a provisioned credential as listed by the admin CLI.
type Token struct {
	Token     string
	CreatedAt time.Time
}

// TokenAdmin provisions credentials out of band. The HTTP service never
// writes tokens.
type TokenAdmin interface {
	AddToken(ctx context.Context, token string) error
	ListTokens(ctx context.Context) ([]Token, error)
	RevokeToken(ctx context.Context, token string) error
}

//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/footballdb/football-api/internal/model"
	"github.com/footballdb/football-api/internal/store"
	"github.com/footballdb/football-api/internal/testutil"
)

func newPostgresStore(t *testing.T) *store.SQLStore {
	t.Helper()
	return store.New(testutil.NewTestPostgres(t), store.Postgres)
}

func TestPostgresStore_RecordsCRUD(t *testing.T) {
	st := newPostgresStore(t)
	repo := st.Records(resource(t, "teams"))
	ctx := context.Background()

	require.NoError(t, st.Ping(ctx))

	id, err := repo.Create(ctx, teamValues("Ajax", 1))
	require.NoError(t, err)

	rec, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Ajax", rec["name"])

	require.NoError(t, repo.Replace(ctx, id, teamValues("Ajax", 1)))
	require.NoError(t, repo.Patch(ctx, model.PartialUpdate{
		ID:          id,
		Assignments: []model.Assignment{{Field: "location", Value: "Eindhoven"}},
	}))

	items, total, err := repo.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "Eindhoven", items[0]["location"])

	require.NoError(t, repo.Delete(ctx, id))
	assert.ErrorIs(t, repo.Delete(ctx, id), store.ErrNotFound)
}

func TestPostgresStore_ForeignKeyViolation(t *testing.T) {
	st := newPostgresStore(t)

	_, err := st.Records(resource(t, "player_teams")).Create(context.Background(), []model.Assignment{
		{Field: "player_id", Value: int64(1)},
		{Field: "team_id", Value: int64(1)},
	})
	verr, ok := model.IsValidation(err)
	require.True(t, ok, "expected validation error, got %v", err)
	assert.Equal(t, "Referenced record does not exist.", verr.Message)
}

func TestPostgresStore_NumericOutOfRange(t *testing.T) {
	st := newPostgresStore(t)
	repo := st.Records(resource(t, "teams"))
	ctx := context.Background()

	id, err := repo.Create(ctx, teamValues("Ajax", 1))
	require.NoError(t, err)

	err = repo.Patch(ctx, model.PartialUpdate{
		ID:          id,
		Assignments: []model.Assignment{{Field: "ranking", Value: int64(3000000000)}},
	})
	verr, ok := model.IsValidation(err)
	require.True(t, ok, "expected validation error, got %v", err)
	assert.Equal(t, "Field value is out of range.", verr.Message)
}

func TestPostgresStore_Tokens(t *testing.T) {
	st := newPostgresStore(t)
	ctx := context.Background()

	require.NoError(t, st.AddToken(ctx, "pg-secret"))
	assert.ErrorIs(t, st.AddToken(ctx, "pg-secret"), store.ErrTokenExists)

	ok, err := st.HasToken(ctx, "pg-secret")
	require.NoError(t, err)
	assert.True(t, ok)

	tokens, err := st.ListTokens(ctx)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.False(t, tokens[0].CreatedAt.IsZero())

	require.NoError(t, st.RevokeToken(ctx, "pg-secret"))
}

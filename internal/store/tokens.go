package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

const tokensTable = "tokens"

// HasToken performs an exact-match membership lookup. The empty string never
// matches and does not touch the database.
func (s *SQLStore) HasToken(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	sqlStr, args, err := s.sb.
		Select("1").
		From(tokensTable).
		Where(sq.Eq{"token": token}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("building token lookup query: %w", err)
	}

	var one int
	err = s.db.QueryRowContext(ctx, sqlStr, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("looking up token: %w", err)
	}
	return true, nil
}

// AddToken provisions a new credential.
func (s *SQLStore) AddToken(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("token must not be empty")
	}

	sqlStr, args, err := s.sb.
		Insert(tokensTable).
		Columns("token", "created_at").
		Values(token, time.Now().UTC().Format(time.RFC3339Nano)).
		ToSql()
	if err != nil {
		return fmt.Errorf("building token insert query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if constraintError(err) != nil {
			return ErrTokenExists
		}
		return fmt.Errorf("inserting token: %w", err)
	}
	return nil
}

// ListTokens returns every provisioned credential, oldest first.
func (s *SQLStore) ListTokens(ctx context.Context) ([]Token, error) {
	sqlStr, args, err := s.sb.
		Select("token", "created_at").
		From(tokensTable).
		OrderBy("created_at ASC", "token ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building token list query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tokens: %w", err)
	}
	defer rows.Close()

	items := make([]Token, 0)
	for rows.Next() {
		var item Token
		var created timestampScanner
		if err := rows.Scan(&item.Token, &created); err != nil {
			return nil, fmt.Errorf("scanning token row: %w", err)
		}
		item.CreatedAt = created.Time
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating token rows: %w", err)
	}
	return items, nil
}

// RevokeToken deletes a credential; unknown tokens yield ErrNotFound.
func (s *SQLStore) RevokeToken(ctx context.Context, token string) error {
	sqlStr, args, err := s.sb.
		Delete(tokensTable).
		Where(sq.Eq{"token": token}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building token delete query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("deleting token: %w", err)
	}
	affected, err := rowsAffectedAsInt(res, "token delete")
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// timestampScanner reads created_at from either dialect: PostgreSQL returns a
// time.Time, SQLite returns the RFC 3339 text it was written as.
type timestampScanner struct {
	Time time.Time
}

func (t *timestampScanner) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (t *timestampScanner) parse(v string) error {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if parsed, err := time.Parse(layout, strings.TrimSpace(v)); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("parsing timestamp %q", v)
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/footballdb/football-api/internal/model"
)

const (
	pqForeignKeyViolation = "23503"
	pqUniqueViolation     = "23505"
	pqNumericOutOfRange   = "22003"
)

type recordRepository struct {
	store *SQLStore
	res   model.Resource
}

func (r *recordRepository) columns() []string {
	return append([]string{model.IDField}, r.res.Columns()...)
}

// List returns records ordered by id ascending.
func (r *recordRepository) List(ctx context.Context, limit, offset int) ([]model.Record, int, error) {
	countSQL, countArgs, err := r.store.sb.Select("COUNT(*)").From(r.res.Table).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("building %s count query: %w", r.res.Name, err)
	}

	var total int
	if err := r.store.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting %s: %w", r.res.Name, err)
	}
	if total == 0 || offset >= total {
		return []model.Record{}, total, nil
	}

	query := r.store.sb.
		Select(r.columns()...).
		From(r.res.Table).
		OrderBy(model.IDField + " ASC").
		Limit(uint64(limit)).
		Offset(uint64(offset))

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("building %s list query: %w", r.res.Name, err)
	}

	rows, err := r.store.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing %s: %w", r.res.Name, err)
	}
	defer rows.Close()

	items := make([]model.Record, 0, limit)
	for rows.Next() {
		rec, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating %s rows: %w", r.res.Name, err)
	}

	return items, total, nil
}

func (r *recordRepository) Get(ctx context.Context, id int64) (model.Record, error) {
	sqlStr, args, err := r.store.sb.
		Select(r.columns()...).
		From(r.res.Table).
		Where(sq.Eq{model.IDField: id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building %s get query: %w", r.res.Name, err)
	}

	rec, err := r.scan(r.store.db.QueryRowContext(ctx, sqlStr, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *recordRepository) Create(ctx context.Context, values []model.Assignment) (int64, error) {
	if err := r.checkAssignments(values); err != nil {
		return 0, err
	}

	cols := make([]string, 0, len(values))
	vals := make([]any, 0, len(values))
	for _, a := range values {
		cols = append(cols, a.Field)
		vals = append(vals, a.Value)
	}

	sqlStr, args, err := r.store.sb.
		Insert(r.res.Table).
		Columns(cols...).
		Values(vals...).
		Suffix("RETURNING " + model.IDField).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("building %s insert query: %w", r.res.Name, err)
	}

	var id int64
	if err := r.store.db.QueryRowContext(ctx, sqlStr, args...).Scan(&id); err != nil {
		if verr := constraintError(err); verr != nil {
			return 0, verr
		}
		return 0, fmt.Errorf("inserting %s: %w", r.res.Name, err)
	}
	return id, nil
}

// Replace requires every Field Set column to be assigned.
func (r *recordRepository) Replace(ctx context.Context, id int64, values []model.Assignment) error {
	if err := r.checkAssignments(values); err != nil {
		return err
	}
	if len(values) != len(r.res.Fields) {
		return model.NewValidationError(r.res.Messages.MissingReplaceFields)
	}
	return r.update(ctx, id, values, "replacing")
}

func (r *recordRepository) Patch(ctx context.Context, update model.PartialUpdate) error {
	if err := r.checkAssignments(update.Assignments); err != nil {
		return err
	}
	return r.update(ctx, update.ID, update.Assignments, "patching")
}

func (r *recordRepository) Delete(ctx context.Context, id int64) error {
	sqlStr, args, err := r.store.sb.
		Delete(r.res.Table).
		Where(sq.Eq{model.IDField: id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building %s delete query: %w", r.res.Name, err)
	}

	res, err := r.store.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("deleting %s %d: %w", r.res.Name, id, err)
	}
	affected, err := rowsAffectedAsInt(res, r.res.Name+" delete")
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// update relies on matched-row counts: PostgreSQL and SQLite both report a
// row whose values did not change as affected.
func (r *recordRepository) update(ctx context.Context, id int64, values []model.Assignment, verb string) error {
	query := r.store.sb.Update(r.res.Table).Where(sq.Eq{model.IDField: id})
	for _, a := range values {
		query = query.Set(a.Field, a.Value)
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("building %s update query: %w", r.res.Name, err)
	}

	res, err := r.store.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		if verr := constraintError(err); verr != nil {
			return verr
		}
		return fmt.Errorf("%s %s %d: %w", verb, r.res.Name, id, err)
	}
	affected, err := rowsAffectedAsInt(res, r.res.Name+" update")
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// checkAssignments rejects column names outside the Field Set before they
// can reach a query.
func (r *recordRepository) checkAssignments(values []model.Assignment) error {
	if len(values) == 0 {
		return model.NewValidationError(r.res.Messages.NoFields)
	}
	seen := make(map[string]struct{}, len(values))
	for _, a := range values {
		if _, ok := r.res.Field(a.Field); !ok {
			return &model.ValidationError{
				Field:   a.Field,
				Message: fmt.Sprintf("Unknown field '%s'.", a.Field),
			}
		}
		if _, dup := seen[a.Field]; dup {
			return &model.ValidationError{
				Field:   a.Field,
				Message: fmt.Sprintf("Field '%s' is assigned twice.", a.Field),
			}
		}
		seen[a.Field] = struct{}{}
	}
	return nil
}

func (r *recordRepository) scan(scanner interface {
	Scan(dest ...any) error
}) (model.Record, error) {
	var id int64
	dest := make([]any, 0, len(r.res.Fields)+1)
	dest = append(dest, &id)
	for _, f := range r.res.Fields {
		if f.Kind == model.KindString {
			dest = append(dest, new(sql.NullString))
		} else {
			dest = append(dest, new(sql.NullInt64))
		}
	}

	if err := scanner.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning %s row: %w", r.res.Name, err)
	}

	rec := make(model.Record, len(dest))
	rec[model.IDField] = id
	for i, f := range r.res.Fields {
		switch v := dest[i+1].(type) {
		case *sql.NullString:
			if v.Valid {
				rec[f.Name] = v.String
			} else {
				rec[f.Name] = nil
			}
		case *sql.NullInt64:
			if v.Valid {
				rec[f.Name] = v.Int64
			} else {
				rec[f.Name] = nil
			}
		}
	}
	return rec, nil
}

// constraintError maps integrity violations raised by either driver to a
// client-facing validation error. It returns nil for any other error.
func constraintError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqForeignKeyViolation:
			return model.NewValidationError("Referenced record does not exist.")
		case pqUniqueViolation:
			return model.NewValidationError("Record already exists.")
		case pqNumericOutOfRange:
			return model.NewValidationError("Field value is out of range.")
		}
		return nil
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return model.NewValidationError("Referenced record does not exist.")
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return model.NewValidationError("Record already exists.")
		}
		if liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
			return model.NewValidationError("Record violates a constraint.")
		}
	}
	return nil
}

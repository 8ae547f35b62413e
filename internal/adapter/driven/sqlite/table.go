package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ericfisherdev/aimanager/internal/domain/model"
	"github.com/ericfisherdev/aimanager/internal/domain/port/driven"
)

// table implements the listing, search and delete half of driven.Store once
// for every entity. Repositories embed it and add their own writes.
type table[T any] struct {
	db      *DB
	name    string
	columns string

	// searchable lists the columns Search accepts; an empty field list
	// searches all of them. Encrypted columns never appear here.
	searchable []string

	scan func(s scanner) (*T, error)
}

// FindByID returns the stored row; encrypted columns stay sealed.
func (t table[T]) FindByID(ctx context.Context, id int64) (*T, error) {
	query := "SELECT " + t.columns + " FROM " + t.name + " WHERE id = ?"

	rec, err := t.scan(t.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %d: %w", t.name, id, driven.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %d: %w", t.name, id, err)
	}
	return rec, nil
}

// findOne returns the first row matching where, or ErrNotFound.
func (t table[T]) findOne(ctx context.Context, where string, args ...any) (*T, error) {
	query := "SELECT " + t.columns + " FROM " + t.name + " WHERE " + where + " LIMIT 1"

	rec, err := t.scan(t.db.Reader.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", t.name, driven.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", t.name, err)
	}
	return rec, nil
}

// Delete removes a row and reports whether it existed.
func (t table[T]) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := t.db.Writer.ExecContext(ctx, "DELETE FROM "+t.name+" WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete %s %d: %w", t.name, id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check rows affected: %w", err)
	}
	return rows > 0, nil
}

// update applies set to row id and reports whether the row existed.
func (t table[T]) update(ctx context.Context, id int64, set *setClause) (bool, error) {
	query := "UPDATE " + t.name + " SET " + set.sql() + " WHERE id = ?"

	result, err := t.db.Writer.ExecContext(ctx, query, append(set.args, id)...)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check rows affected: %w", err)
	}
	return rows > 0, nil
}

// insert runs an INSERT and returns the new row id.
func (t table[T]) insert(ctx context.Context, query string, args ...any) (int64, error) {
	result, err := t.db.Writer.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// Count returns the number of rows.
func (t table[T]) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := t.db.Reader.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.name).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", t.name, err)
	}
	return n, nil
}

// Paginate returns one page ordered newest first. The count and the page
// are read in one transaction so they describe the same snapshot.
func (t table[T]) Paginate(ctx context.Context, req model.PageRequest) (model.Page[T], error) {
	req = req.Normalize()

	tx, err := t.db.Reader.BeginTx(ctx, nil)
	if err != nil {
		return model.Page[T]{}, fmt.Errorf("begin %s page: %w", t.name, err)
	}
	defer func() { _ = tx.Rollback() }()

	var total int64
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.name).Scan(&total); err != nil {
		return model.Page[T]{}, fmt.Errorf("count %s: %w", t.name, err)
	}

	query := "SELECT " + t.columns + " FROM " + t.name + " ORDER BY id DESC LIMIT ? OFFSET ?"
	rows, err := tx.QueryContext(ctx, query, req.Limit, req.Offset())
	if err != nil {
		return model.Page[T]{}, fmt.Errorf("page %s: %w", t.name, err)
	}

	items, err := t.collect(rows)
	if err != nil {
		return model.Page[T]{}, err
	}

	return model.NewPage(items, total, req), nil
}

// Search returns rows where any whitespace-separated keyword of term is a
// case-insensitive substring of any of fields, newest first. Each
// (keyword, field) pair binds exactly one parameter.
func (t table[T]) Search(ctx context.Context, term string, fields []string, limit int) ([]T, error) {
	keywords := strings.Fields(term)
	if len(keywords) == 0 {
		return nil, driven.NewValidationError("term", "must not be empty")
	}

	if len(fields) == 0 {
		fields = t.searchable
	}
	for _, f := range fields {
		if !slices.Contains(t.searchable, f) {
			return nil, driven.NewValidationError("fields", fmt.Sprintf("%q is not searchable", f))
		}
	}

	if limit < 1 {
		limit = model.DefaultSearchLimit
	}

	conds := make([]string, 0, len(keywords)*len(fields))
	args := make([]any, 0, len(keywords)*len(fields)+1)
	for _, kw := range keywords {
		pattern := "%" + escapeLike(strings.ToLower(kw)) + "%"
		for _, f := range fields {
			conds = append(conds, foldFunc+"("+f+") LIKE ? ESCAPE '\\'")
			args = append(args, pattern)
		}
	}
	args = append(args, limit)

	query := "SELECT " + t.columns + " FROM " + t.name +
		" WHERE " + strings.Join(conds, " OR ") +
		" ORDER BY id DESC LIMIT ?"

	rows, err := t.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", t.name, err)
	}
	return t.collect(rows)
}

// ListSealedAfter returns up to limit rows with id > afterID in id order.
func (t table[T]) ListSealedAfter(ctx context.Context, afterID int64, limit int) ([]T, error) {
	query := "SELECT " + t.columns + " FROM " + t.name + " WHERE id > ? ORDER BY id LIMIT ?"

	rows, err := t.db.Reader.QueryContext(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list %s after %d: %w", t.name, afterID, err)
	}
	return t.collect(rows)
}

// Truncate deletes every row.
func (t table[T]) Truncate(ctx context.Context) error {
	if _, err := t.db.Writer.ExecContext(ctx, "DELETE FROM "+t.name); err != nil {
		return fmt.Errorf("truncate %s: %w", t.name, err)
	}
	return nil
}

// list runs a query selecting t.columns and collects every row.
func (t table[T]) list(ctx context.Context, where, order string, args ...any) ([]T, error) {
	query := "SELECT " + t.columns + " FROM " + t.name
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY " + order

	rows, err := t.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.name, err)
	}
	return t.collect(rows)
}

func (t table[T]) collect(rows *sql.Rows) ([]T, error) {
	defer rows.Close()

	items := []T{}
	for rows.Next() {
		rec, err := t.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.name, err)
		}
		items = append(items, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", t.name, err)
	}
	return items, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// setClause accumulates column assignments for a partial update.
type setClause struct {
	cols []string
	args []any
}

func (s *setClause) add(col string, v any) {
	s.cols = append(s.cols, col+" = ?")
	s.args = append(s.args, v)
}

func (s *setClause) sql() string {
	return strings.Join(s.cols, ", ")
}

// now is the timestamp written to created_at and updated_at.
func now() string {
	return formatTime(time.Now())
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// stampOrNow formats t, or the current time when t is zero.
func stampOrNow(t time.Time) string {
	if t.IsZero() {
		return now()
	}
	return formatTime(t)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// parseNullTime parses an optional timestamp column; NULL yields zero time.
func parseNullTime(s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	return parseTime(s.String)
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}

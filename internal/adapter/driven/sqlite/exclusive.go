package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ericfisherdev/aimanager/internal/domain/model"
	"github.com/ericfisherdev/aimanager/internal/domain/port/driven"
)

// exclusive maintains the "at most one enabled row" rule of a provider
// table. Every write that enables a row goes through disableAll inside the
// same transaction.
type exclusive struct {
	db    *DB
	table string
}

// SetExclusiveActive disables every row and enables id atomically. When id
// does not exist the transaction rolls back and ErrNotFound is returned.
func (e exclusive) SetExclusiveActive(ctx context.Context, id int64) error {
	err := e.db.withTx(ctx, func(tx *sql.Tx) error {
		ts := now()
		if err := e.disableAll(ctx, tx, ts); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, "UPDATE "+e.table+" SET enabled = 1, updated_at = ? WHERE id = ?", ts, id)
		if err != nil {
			return fmt.Errorf("enable %s %d: %w", e.table, id, err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("check rows affected: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("enable %s %d: %w", e.table, id, driven.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("set active %s: %w", e.table, err)
	}
	return nil
}

// Disable clears the enabled flag of a single row.
func (e exclusive) Disable(ctx context.Context, id int64) (bool, error) {
	result, err := e.db.Writer.ExecContext(ctx, "UPDATE "+e.table+" SET enabled = 0, updated_at = ? WHERE id = ?", now(), id)
	if err != nil {
		return false, fmt.Errorf("disable %s %d: %w", e.table, id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check rows affected: %w", err)
	}
	return rows > 0, nil
}

// CountByStatus returns total and enabled counts in one query.
func (e exclusive) CountByStatus(ctx context.Context) (model.Stats, error) {
	query := "SELECT COUNT(*), COALESCE(SUM(CASE WHEN enabled = 1 THEN 1 ELSE 0 END), 0) FROM " + e.table

	var total, active int64
	if err := e.db.Reader.QueryRowContext(ctx, query).Scan(&total, &active); err != nil {
		return model.Stats{}, fmt.Errorf("count %s by status: %w", e.table, err)
	}
	return model.NewStats(total, active), nil
}

func (e exclusive) disableAll(ctx context.Context, tx *sql.Tx, ts string) error {
	if _, err := tx.ExecContext(ctx, "UPDATE "+e.table+" SET enabled = 0, updated_at = ? WHERE enabled != 0", ts); err != nil {
		return fmt.Errorf("disable all %s: %w", e.table, err)
	}
	return nil
}

// claimName fails with ErrConflict when a row other than self already uses
// name. It runs inside the write transaction so the check and the write
// cannot interleave with another writer.
func (e exclusive) claimName(ctx context.Context, tx *sql.Tx, name string, self int64) error {
	var taken bool
	query := "SELECT EXISTS(SELECT 1 FROM " + e.table + " WHERE name = ? AND id != ?)"
	if err := tx.QueryRowContext(ctx, query, name, self).Scan(&taken); err != nil {
		return fmt.Errorf("check name %q: %w", name, err)
	}
	if taken {
		return fmt.Errorf("name %q already in use: %w", name, driven.ErrConflict)
	}
	return nil
}

// insertExclusive runs an INSERT, first disabling siblings when the new row is
// enabled. A non-empty claim must not name an existing row. Returns the new
// row id.
func (e exclusive) insertExclusive(ctx context.Context, enabled bool, claim string, query string, args ...any) (int64, error) {
	var id int64
	err := e.db.withTx(ctx, func(tx *sql.Tx) error {
		if claim != "" {
			if err := e.claimName(ctx, tx, claim, 0); err != nil {
				return err
			}
		}
		if enabled {
			if err := e.disableAll(ctx, tx, now()); err != nil {
				return err
			}
		}

		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		id, err = result.LastInsertId()
		return err
	})
	return id, err
}

// updateExclusive applies set to row id, first disabling siblings when the update
// enables the row. A non-nil rename must not name another row. A missing id
// rolls back and reports false.
func (e exclusive) updateExclusive(ctx context.Context, id int64, enabling bool, rename *string, set *setClause) (bool, error) {
	query := "UPDATE " + e.table + " SET " + set.sql() + " WHERE id = ?"
	args := append(set.args, id)

	err := e.db.withTx(ctx, func(tx *sql.Tx) error {
		if rename != nil {
			if err := e.claimName(ctx, tx, *rename, id); err != nil {
				return err
			}
		}
		if enabling {
			if err := e.disableAll(ctx, tx, now()); err != nil {
				return err
			}
		}

		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("check rows affected: %w", err)
		}
		if rows == 0 {
			return errNoRowsAffected
		}
		return nil
	})
	if errors.Is(err, errNoRowsAffected) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

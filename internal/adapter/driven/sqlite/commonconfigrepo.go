package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ericfisherdev/aimanager/internal/domain/model"
	"github.com/ericfisherdev/aimanager/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CommonConfigStore = (*CommonConfigRepo)(nil)

// CommonConfigRepo is the SQLite implementation of CommonConfigStore.
type CommonConfigRepo struct {
	table[model.CommonConfig]
}

// NewCommonConfigRepo creates a new CommonConfigRepo backed by the given DB.
func NewCommonConfigRepo(db *DB) *CommonConfigRepo {
	return &CommonConfigRepo{
		table: table[model.CommonConfig]{
			db:         db,
			name:       "common_configs",
			columns:    "id, key, value, description, category, is_active, created_at, updated_at",
			searchable: []string{"key", "value", "description", "category"},
			scan:       scanCommonConfig,
		},
	}
}

// Create inserts a config. A duplicate key returns ErrConflict.
func (r *CommonConfigRepo) Create(ctx context.Context, in model.CommonConfigInput) (int64, error) {
	return r.InsertSealed(ctx, model.CommonConfig{
		Key:         in.Key,
		Value:       in.Value,
		Description: in.Description,
		Category:    in.Category,
		IsActive:    in.IsActive,
	})
}

// InsertSealed inserts c as given. Configs carry no encrypted columns.
func (r *CommonConfigRepo) InsertSealed(ctx context.Context, c model.CommonConfig) (int64, error) {
	const query = `INSERT INTO common_configs (key, value, description, category, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	category := c.Category
	if category == "" {
		category = model.DefaultConfigCategory
	}

	id, err := r.insert(ctx, query, c.Key, c.Value, nullString(c.Description), category, boolInt(c.IsActive),
		stampOrNow(c.CreatedAt), stampOrNow(c.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert common config %q: %w", c.Key, driven.ErrConflict)
		}
		return 0, fmt.Errorf("insert common config %q: %w", c.Key, err)
	}
	return id, nil
}

// FindByKey returns the config stored under key.
func (r *CommonConfigRepo) FindByKey(ctx context.Context, key string) (*model.CommonConfig, error) {
	c, err := r.findOne(ctx, "key = ?", key)
	if err != nil {
		return nil, fmt.Errorf("find common config %q: %w", key, err)
	}
	return c, nil
}

// ListActive returns every active config ordered by category then key.
func (r *CommonConfigRepo) ListActive(ctx context.Context) ([]model.CommonConfig, error) {
	return r.list(ctx, "is_active = 1", "category, key")
}

// ListByCategory returns the configs of one category ordered by key.
func (r *CommonConfigRepo) ListByCategory(ctx context.Context, category string) ([]model.CommonConfig, error) {
	return r.list(ctx, "category = ?", "key", category)
}

// Update applies the non-nil fields of patch. Changing the key onto an
// existing one returns ErrConflict.
func (r *CommonConfigRepo) Update(ctx context.Context, id int64, patch model.CommonConfigPatch) (bool, error) {
	set := &setClause{}
	if patch.Key != nil {
		set.add("key", *patch.Key)
	}
	if patch.Value != nil {
		set.add("value", *patch.Value)
	}
	if patch.Description != nil {
		set.add("description", nullString(*patch.Description))
	}
	if patch.Category != nil {
		set.add("category", *patch.Category)
	}
	if patch.IsActive != nil {
		set.add("is_active", boolInt(*patch.IsActive))
	}
	set.add("updated_at", now())

	ok, err := r.update(ctx, id, set)
	if err != nil {
		if isUniqueViolation(err) {
			return false, fmt.Errorf("update common config %d: %w", id, driven.ErrConflict)
		}
		return false, fmt.Errorf("update common config %d: %w", id, err)
	}
	return ok, nil
}

func scanCommonConfig(s scanner) (*model.CommonConfig, error) {
	var c model.CommonConfig
	var description, category, createdAt, updatedAt sql.NullString

	err := s.Scan(&c.ID, &c.Key, &c.Value, &description, &category, &c.IsActive, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	c.Description = description.String
	c.Category = category.String

	if c.CreatedAt, err = parseNullTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if c.UpdatedAt, err = parseNullTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &c, nil
}

// Package application contains use-case orchestration services.
package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/aimanager/internal/domain/model"
	"github.com/ericfisherdev/aimanager/internal/domain/port/driven"
)

// identified is implemented by every model record.
type identified interface {
	RecordID() int64
	RecordKey() string
}

// records is the part of every entity service that only forwards to the
// store: validation, not-found mapping and logging live here once.
type records[T identified, In, P any] struct {
	store  driven.Store[T, In, P]
	noun   string
	logger *slog.Logger
}

func newRecords[T identified, In, P any](store driven.Store[T, In, P], noun string, logger *slog.Logger) records[T, In, P] {
	return records[T, In, P]{store: store, noun: noun, logger: logger}
}

// Get returns one record as stored.
func (r records[T, In, P]) Get(ctx context.Context, id int64) (*T, error) {
	return r.store.FindByID(ctx, id)
}

// List returns one page of records, newest first.
func (r records[T, In, P]) List(ctx context.Context, req model.PageRequest) (model.Page[T], error) {
	return r.store.Paginate(ctx, req)
}

// Search returns records matching any keyword of term in any of fields.
func (r records[T, In, P]) Search(ctx context.Context, term string, fields []string, limit int) ([]T, error) {
	return r.store.Search(ctx, term, fields, limit)
}

// Count returns the number of stored records.
func (r records[T, In, P]) Count(ctx context.Context) (int64, error) {
	return r.store.Count(ctx)
}

// Delete removes a record. A missing id returns ErrNotFound.
func (r records[T, In, P]) Delete(ctx context.Context, id int64) error {
	ok, err := r.store.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", r.noun, id, err)
	}
	if !ok {
		return fmt.Errorf("%s %d: %w", r.noun, id, driven.ErrNotFound)
	}

	r.logger.Info(r.noun+" deleted", "id", id)
	return nil
}

// create validates in and inserts it.
func (r records[T, In, P]) create(ctx context.Context, in In) (*T, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	id, err := r.store.Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", r.noun, err)
	}

	rec, err := r.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload %s %d: %w", r.noun, id, err)
	}

	r.logger.Info(r.noun+" created", "record", (*rec).RecordKey())
	return rec, nil
}

// update validates patch and applies it. A missing id returns ErrNotFound.
func (r records[T, In, P]) update(ctx context.Context, id int64, patch P) (*T, error) {
	if err := validateInput(patch); err != nil {
		return nil, err
	}

	ok, err := r.store.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update %s %d: %w", r.noun, id, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s %d: %w", r.noun, id, driven.ErrNotFound)
	}

	rec, err := r.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload %s %d: %w", r.noun, id, err)
	}

	r.logger.Info(r.noun+" updated", "record", (*rec).RecordKey())
	return rec, nil
}

package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/aimanager/internal/domain/model"
	"github.com/ericfisherdev/aimanager/internal/domain/port/driven"
)

// providerStore is the shape shared by ClaudeProviderStore and
// CodexProviderStore.
type providerStore[T identified, In, P any] interface {
	driven.Store[T, In, P]
	driven.ExclusiveActivator

	FindByIDDecrypted(ctx context.Context, id int64) (*T, error)
	Current(ctx context.Context) (*T, error)
}

// providers implements the operations common to both provider families.
type providers[T identified, In, P any] struct {
	records[T, In, P]
	store providerStore[T, In, P]
}

func newProviders[T identified, In, P any](store providerStore[T, In, P], noun string, logger *slog.Logger) providers[T, In, P] {
	return providers[T, In, P]{records: newRecords(driven.Store[T, In, P](store), noun, logger), store: store}
}

// Get returns the provider with its token decrypted.
func (s providers[T, In, P]) Get(ctx context.Context, id int64) (*T, error) {
	return s.store.FindByIDDecrypted(ctx, id)
}

// Enable makes id the only enabled provider of its family.
func (s providers[T, In, P]) Enable(ctx context.Context, id int64) error {
	if err := s.store.SetExclusiveActive(ctx, id); err != nil {
		return err
	}
	s.logger.Info(s.noun+" enabled", "id", id)
	return nil
}

// Disable clears the enabled flag of id.
func (s providers[T, In, P]) Disable(ctx context.Context, id int64) error {
	ok, err := s.store.Disable(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s %d: %w", s.noun, id, driven.ErrNotFound)
	}
	s.logger.Info(s.noun+" disabled", "id", id)
	return nil
}

// Current returns the enabled provider with its token decrypted, or
// ErrNotFound. Should several rows be enabled, the most recently updated
// wins and a warning is logged.
func (s providers[T, In, P]) Current(ctx context.Context) (*T, error) {
	p, err := s.store.Current(ctx)
	if err != nil {
		return nil, err
	}

	stats, err := s.store.CountByStatus(ctx)
	if err != nil {
		s.logger.Warn("count "+s.noun+" status", "error", err)
	} else if stats.Active > 1 {
		s.logger.Warn("more than one "+s.noun+" enabled", "active", stats.Active, "chosen", (*p).RecordKey())
	}
	return p, nil
}

// Stats returns the enabled/disabled counts of the family.
func (s providers[T, In, P]) Stats(ctx context.Context) (model.Stats, error) {
	return s.store.CountByStatus(ctx)
}

// ClaudeProviderService manages Claude providers.
type ClaudeProviderService struct {
	providers[model.ClaudeProvider, model.ClaudeProviderInput, model.ClaudeProviderPatch]
}

// NewClaudeProviderService creates a ClaudeProviderService.
func NewClaudeProviderService(store driven.ClaudeProviderStore, logger *slog.Logger) *ClaudeProviderService {
	return &ClaudeProviderService{providers: newProviders[model.ClaudeProvider, model.ClaudeProviderInput, model.ClaudeProviderPatch](store, "claude provider", logger)}
}

// Create fills unset defaults, validates in and stores it. A name already
// in use returns ErrConflict. The returned record carries the sealed token.
func (s *ClaudeProviderService) Create(ctx context.Context, in model.ClaudeProviderInput) (*model.ClaudeProvider, error) {
	if in.Timeout == 0 {
		in.Timeout = model.DefaultProviderTimeout
	}
	if in.Type == "" {
		in.Type = model.DefaultProviderType
	}
	return s.create(ctx, in)
}

// Update applies patch to id. Renaming onto another provider's name returns
// ErrConflict.
func (s *ClaudeProviderService) Update(ctx context.Context, id int64, patch model.ClaudeProviderPatch) (*model.ClaudeProvider, error) {
	return s.update(ctx, id, patch)
}

// CodexProviderService manages Codex providers.
type CodexProviderService struct {
	providers[model.CodexProvider, model.CodexProviderInput, model.CodexProviderPatch]
}

// NewCodexProviderService creates a CodexProviderService.
func NewCodexProviderService(store driven.CodexProviderStore, logger *slog.Logger) *CodexProviderService {
	return &CodexProviderService{providers: newProviders[model.CodexProvider, model.CodexProviderInput, model.CodexProviderPatch](store, "codex provider", logger)}
}

// Create fills unset defaults, validates in and stores it.
func (s *CodexProviderService) Create(ctx context.Context, in model.CodexProviderInput) (*model.CodexProvider, error) {
	if in.Type == "" {
		in.Type = model.DefaultProviderType
	}
	return s.create(ctx, in)
}

// Update applies patch to id.
func (s *CodexProviderService) Update(ctx context.Context, id int64, patch model.CodexProviderPatch) (*model.CodexProvider, error) {
	return s.update(ctx, id, patch)
}

package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/aimanager/internal/domain/model"
	"github.com/ericfisherdev/aimanager/internal/domain/port/driven"
)

// MCPServerService manages MCP server definitions. Names are unique; the
// store reports duplicates as ErrConflict.
type MCPServerService struct {
	records[model.MCPServer, model.MCPServerInput, model.MCPServerPatch]
	store driven.MCPServerStore
}

// NewMCPServerService creates an MCPServerService.
func NewMCPServerService(store driven.MCPServerStore, logger *slog.Logger) *MCPServerService {
	return &MCPServerService{
		records: newRecords(driven.Store[model.MCPServer, model.MCPServerInput, model.MCPServerPatch](store), "mcp server", logger),
		store:   store,
	}
}

// Create stores a server definition. An unset timeout uses the default.
func (s *MCPServerService) Create(ctx context.Context, in model.MCPServerInput) (*model.MCPServer, error) {
	if in.Timeout == 0 {
		in.Timeout = model.DefaultMCPTimeout
	}
	return s.create(ctx, in)
}

// Update applies patch to id.
func (s *MCPServerService) Update(ctx context.Context, id int64, patch model.MCPServerPatch) (*model.MCPServer, error) {
	return s.update(ctx, id, patch)
}

// InstallTemplate registers every server declared by tmpl. Servers whose
// name is already taken are skipped and returned in skipped.
func (s *MCPServerService) InstallTemplate(ctx context.Context, tmpl model.MCPTemplate) (installed []model.MCPServer, skipped []string, err error) {
	inputs, err := templateServers(tmpl)
	if err != nil {
		return nil, nil, driven.NewValidationError("config_content", err.Error())
	}

	for _, in := range inputs {
		srv, err := s.Create(ctx, in)
		if errors.Is(err, driven.ErrConflict) {
			skipped = append(skipped, in.Name)
			continue
		}
		if err != nil {
			return installed, skipped, fmt.Errorf("install %s: %w", in.Name, err)
		}
		installed = append(installed, *srv)
	}

	s.logger.Info("template installed", "template", tmpl.Name, "ai_type", tmpl.AIType,
		"platform", tmpl.PlatformType, "installed", len(installed), "skipped", len(skipped))
	return installed, skipped, nil
}

// GetByName returns the server registered under name.
func (s *MCPServerService) GetByName(ctx context.Context, name string) (*model.MCPServer, error) {
	return s.store.FindByName(ctx, name)
}

// CommonConfigService manages shared key/value settings.
type CommonConfigService struct {
	records[model.CommonConfig, model.CommonConfigInput, model.CommonConfigPatch]
	store  driven.CommonConfigStore
	lookup func(string) string
}

// NewCommonConfigService creates a CommonConfigService. lookup resolves
// ${NAME} references in values; nil uses the process environment.
func NewCommonConfigService(store driven.CommonConfigStore, lookup func(string) string, logger *slog.Logger) *CommonConfigService {
	return &CommonConfigService{
		records: newRecords(driven.Store[model.CommonConfig, model.CommonConfigInput, model.CommonConfigPatch](store), "common config", logger),
		store:   store,
		lookup:  lookup,
	}
}

// Create stores a config. An unset category defaults to "general".
func (s *CommonConfigService) Create(ctx context.Context, in model.CommonConfigInput) (*model.CommonConfig, error) {
	if in.Category == "" {
		in.Category = model.DefaultConfigCategory
	}
	return s.create(ctx, in)
}

// Update applies patch to id.
func (s *CommonConfigService) Update(ctx context.Context, id int64, patch model.CommonConfigPatch) (*model.CommonConfig, error) {
	return s.update(ctx, id, patch)
}

// GetByKey returns the config stored under key.
func (s *CommonConfigService) GetByKey(ctx context.Context, key string) (*model.CommonConfig, error) {
	return s.store.FindByKey(ctx, key)
}

// Resolve returns the value of key with environment references expanded.
func (s *CommonConfigService) Resolve(ctx context.Context, key string) (string, error) {
	c, err := s.store.FindByKey(ctx, key)
	if err != nil {
		return "", err
	}
	return c.ResolvedValue(s.lookup), nil
}

// ListActive returns every active config ordered by category then key.
func (s *CommonConfigService) ListActive(ctx context.Context) ([]model.CommonConfig, error) {
	return s.store.ListActive(ctx)
}

// ListByCategory returns the configs of one category.
func (s *CommonConfigService) ListByCategory(ctx context.Context, category string) ([]model.CommonConfig, error) {
	return s.store.ListByCategory(ctx, category)
}

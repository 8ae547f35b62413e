package driven

import (
	"context"

	"github.com/ericfisherdev/aimanager/internal/domain/model"
)

// AgentGuideStore persists agent guides.
type AgentGuideStore interface {
	Store[model.AgentGuide, model.AgentGuideInput, model.AgentGuidePatch]
	SealedStore[model.AgentGuide]

	ListByType(ctx context.Context, guideType model.GuideType) ([]model.AgentGuide, error)
}

// MCPServerStore persists MCP server definitions. Create returns ErrConflict
// for a duplicate name.
type MCPServerStore interface {
	Store[model.MCPServer, model.MCPServerInput, model.MCPServerPatch]
	SealedStore[model.MCPServer]

	FindByName(ctx context.Context, name string) (*model.MCPServer, error)
}

// CommonConfigStore persists common configs. Create returns ErrConflict for
// a duplicate key.
type CommonConfigStore interface {
	Store[model.CommonConfig, model.CommonConfigInput, model.CommonConfigPatch]
	SealedStore[model.CommonConfig]

	FindByKey(ctx context.Context, key string) (*model.CommonConfig, error)
	ListActive(ctx context.Context) ([]model.CommonConfig, error)
	ListByCategory(ctx context.Context, category string) ([]model.CommonConfig, error)
}

package driven

import (
	"context"

	"github.com/ericfisherdev/aimanager/internal/domain/model"
)

// ClaudeProviderStore persists Claude providers. The token column is always
// sealed; FindByIDDecrypted and Current return plaintext tokens and fail
// with the cipher error when a token cannot be opened.
type ClaudeProviderStore interface {
	Store[model.ClaudeProvider, model.ClaudeProviderInput, model.ClaudeProviderPatch]
	SealedStore[model.ClaudeProvider]
	ExclusiveActivator

	FindByIDDecrypted(ctx context.Context, id int64) (*model.ClaudeProvider, error)
	FindByName(ctx context.Context, name string) (*model.ClaudeProvider, error)

	// Current returns the enabled provider, decrypted. Returns ErrNotFound
	// when none is enabled.
	Current(ctx context.Context) (*model.ClaudeProvider, error)
}

// CodexProviderStore persists Codex providers with the same token rules as
// ClaudeProviderStore.
type CodexProviderStore interface {
	Store[model.CodexProvider, model.CodexProviderInput, model.CodexProviderPatch]
	SealedStore[model.CodexProvider]
	ExclusiveActivator

	FindByIDDecrypted(ctx context.Context, id int64) (*model.CodexProvider, error)
	FindByName(ctx context.Context, name string) (*model.CodexProvider, error)
	Current(ctx context.Context) (*model.CodexProvider, error)
}

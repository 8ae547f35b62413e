package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ericfisherdev/aimanager/internal/domain/model"
	"github.com/ericfisherdev/aimanager/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CodexProviderStore = (*CodexProviderRepo)(nil)

const codexProviderColumns = `id, name, url, token, type, enabled, created_at, updated_at`

// CodexProviderRepo is the SQLite implementation of CodexProviderStore.
type CodexProviderRepo struct {
	table[model.CodexProvider]
	exclusive

	db     *DB
	cipher driven.SecretCipher
}

// NewCodexProviderRepo creates a CodexProviderRepo backed by db that seals
// tokens with cipher.
func NewCodexProviderRepo(db *DB, cipher driven.SecretCipher) *CodexProviderRepo {
	return &CodexProviderRepo{
		table: table[model.CodexProvider]{
			db:         db,
			name:       "codex_providers",
			columns:    codexProviderColumns,
			searchable: []string{"name", "url", "type"},
			scan:       scanCodexProvider,
		},
		exclusive: exclusive{db: db, table: "codex_providers"},
		db:        db,
		cipher:    cipher,
	}
}

// Create seals the plaintext token and inserts the provider.
func (r *CodexProviderRepo) Create(ctx context.Context, in model.CodexProviderInput) (int64, error) {
	token, err := r.cipher.EncryptString(in.Token)
	if err != nil {
		return 0, fmt.Errorf("seal token for codex provider %q: %w", in.Name, err)
	}

	return r.insertNamed(ctx, in.Name, model.CodexProvider{
		Name:    in.Name,
		URL:     in.URL,
		Token:   token,
		Type:    in.Type,
		Enabled: in.Enabled,
	})
}

// InsertSealed inserts p with its token stored verbatim. Copies keep
// duplicate names, so no name check is made.
func (r *CodexProviderRepo) InsertSealed(ctx context.Context, p model.CodexProvider) (int64, error) {
	return r.insertNamed(ctx, "", p)
}

// insertNamed writes p; a non-empty claim must not name an existing provider.
func (r *CodexProviderRepo) insertNamed(ctx context.Context, claim string, p model.CodexProvider) (int64, error) {
	const query = `INSERT INTO codex_providers (name, url, token, type, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	providerType := p.Type
	if providerType == "" {
		providerType = model.DefaultProviderType
	}

	id, err := r.insertExclusive(ctx, p.Enabled, claim, query,
		p.Name, p.URL, p.Token, string(providerType), boolInt(p.Enabled),
		stampOrNow(p.CreatedAt), stampOrNow(p.UpdatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert codex provider %q: %w", p.Name, err)
	}
	return id, nil
}

// FindByIDDecrypted returns the provider with its token opened.
func (r *CodexProviderRepo) FindByIDDecrypted(ctx context.Context, id int64) (*model.CodexProvider, error) {
	p, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.open(p)
}

// FindByName returns the provider with the given name, token sealed.
func (r *CodexProviderRepo) FindByName(ctx context.Context, name string) (*model.CodexProvider, error) {
	p, err := r.findOne(ctx, "name = ?", name)
	if err != nil {
		return nil, fmt.Errorf("find codex provider %q: %w", name, err)
	}
	return p, nil
}

// Current returns the enabled provider with its token opened.
func (r *CodexProviderRepo) Current(ctx context.Context) (*model.CodexProvider, error) {
	p, err := r.findOne(ctx, "enabled = 1 ORDER BY updated_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("current codex provider: %w", err)
	}
	return r.open(p)
}

// Update applies the non-nil fields of patch; see ClaudeProviderRepo.Update.
func (r *CodexProviderRepo) Update(ctx context.Context, id int64, patch model.CodexProviderPatch) (bool, error) {
	set := &setClause{}
	if patch.Name != nil {
		set.add("name", *patch.Name)
	}
	if patch.URL != nil {
		set.add("url", *patch.URL)
	}
	if patch.Token != nil {
		token, err := r.cipher.EncryptString(*patch.Token)
		if err != nil {
			return false, fmt.Errorf("seal token for codex provider %d: %w", id, err)
		}
		set.add("token", token)
	}
	if patch.Type != nil {
		set.add("type", string(*patch.Type))
	}
	if patch.Enabled != nil {
		set.add("enabled", boolInt(*patch.Enabled))
	}
	set.add("updated_at", now())

	enabling := patch.Enabled != nil && *patch.Enabled
	ok, err := r.updateExclusive(ctx, id, enabling, patch.Name, set)
	if err != nil {
		return false, fmt.Errorf("update codex provider %d: %w", id, err)
	}
	return ok, nil
}

func (r *CodexProviderRepo) open(p *model.CodexProvider) (*model.CodexProvider, error) {
	token, err := r.cipher.DecryptString(p.Token)
	if err != nil {
		return nil, fmt.Errorf("open token for codex provider %d: %w", p.ID, err)
	}
	p.Token = token
	return p, nil
}

func scanCodexProvider(s scanner) (*model.CodexProvider, error) {
	var p model.CodexProvider
	var providerType, createdAt, updatedAt sql.NullString

	err := s.Scan(&p.ID, &p.Name, &p.URL, &p.Token, &providerType, &p.Enabled, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	p.Type = model.ProviderType(providerType.String)
	if p.CreatedAt, err = parseNullTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if p.UpdatedAt, err = parseNullTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &p, nil
}

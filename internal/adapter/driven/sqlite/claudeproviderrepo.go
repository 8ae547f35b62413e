package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ericfisherdev/aimanager/internal/domain/model"
	"github.com/ericfisherdev/aimanager/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ClaudeProviderStore = (*ClaudeProviderRepo)(nil)

const claudeProviderColumns = `id, name, url, token, timeout, auto_update, type, enabled,
	opus_model, sonnet_model, haiku_model, created_at, updated_at`

// ClaudeProviderRepo is the SQLite implementation of ClaudeProviderStore.
// The token column only ever holds tokens sealed by cipher.
type ClaudeProviderRepo struct {
	table[model.ClaudeProvider]
	exclusive

	db     *DB
	cipher driven.SecretCipher
}

// NewClaudeProviderRepo creates a ClaudeProviderRepo backed by db that seals
// tokens with cipher.
func NewClaudeProviderRepo(db *DB, cipher driven.SecretCipher) *ClaudeProviderRepo {
	return &ClaudeProviderRepo{
		table: table[model.ClaudeProvider]{
			db:         db,
			name:       "claude_providers",
			columns:    claudeProviderColumns,
			searchable: []string{"name", "url", "opus_model", "sonnet_model", "haiku_model"},
			scan:       scanClaudeProvider,
		},
		exclusive: exclusive{db: db, table: "claude_providers"},
		db:        db,
		cipher:    cipher,
	}
}

// Create seals the plaintext token and inserts the provider. When in.Enabled
// is set every other provider is disabled in the same transaction.
func (r *ClaudeProviderRepo) Create(ctx context.Context, in model.ClaudeProviderInput) (int64, error) {
	token, err := r.cipher.EncryptString(in.Token)
	if err != nil {
		return 0, fmt.Errorf("seal token for claude provider %q: %w", in.Name, err)
	}

	return r.insertNamed(ctx, in.Name, model.ClaudeProvider{
		Name:        in.Name,
		URL:         in.URL,
		Token:       token,
		Timeout:     in.Timeout,
		AutoUpdate:  in.AutoUpdate,
		Type:        in.Type,
		Enabled:     in.Enabled,
		OpusModel:   in.OpusModel,
		SonnetModel: in.SonnetModel,
		HaikuModel:  in.HaikuModel,
	})
}

// InsertSealed inserts p with its token stored verbatim. Copies keep
// duplicate names, so no name check is made.
func (r *ClaudeProviderRepo) InsertSealed(ctx context.Context, p model.ClaudeProvider) (int64, error) {
	return r.insertNamed(ctx, "", p)
}

// insertNamed writes p; a non-empty claim must not name an existing provider.
func (r *ClaudeProviderRepo) insertNamed(ctx context.Context, claim string, p model.ClaudeProvider) (int64, error) {
	const query = `INSERT INTO claude_providers
		(name, url, token, timeout, auto_update, type, enabled, opus_model, sonnet_model, haiku_model, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = model.DefaultProviderTimeout
	}
	providerType := p.Type
	if providerType == "" {
		providerType = model.DefaultProviderType
	}

	id, err := r.insertExclusive(ctx, p.Enabled, claim, query,
		p.Name, p.URL, p.Token, timeout, boolInt(p.AutoUpdate), string(providerType), boolInt(p.Enabled),
		nullString(p.OpusModel), nullString(p.SonnetModel), nullString(p.HaikuModel),
		stampOrNow(p.CreatedAt), stampOrNow(p.UpdatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert claude provider %q: %w", p.Name, err)
	}
	return id, nil
}

// FindByIDDecrypted returns the provider with its token opened.
func (r *ClaudeProviderRepo) FindByIDDecrypted(ctx context.Context, id int64) (*model.ClaudeProvider, error) {
	p, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.open(p)
}

// FindByName returns the provider with the given name, token sealed.
func (r *ClaudeProviderRepo) FindByName(ctx context.Context, name string) (*model.ClaudeProvider, error) {
	p, err := r.findOne(ctx, "name = ?", name)
	if err != nil {
		return nil, fmt.Errorf("find claude provider %q: %w", name, err)
	}
	return p, nil
}

// Current returns the enabled provider with its token opened. If a foreign
// writer left several rows enabled the most recently updated one wins.
func (r *ClaudeProviderRepo) Current(ctx context.Context) (*model.ClaudeProvider, error) {
	p, err := r.findOne(ctx, "enabled = 1 ORDER BY updated_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("current claude provider: %w", err)
	}
	return r.open(p)
}

// Update applies the non-nil fields of patch. A supplied token is sealed
// into a fresh token. Enabling the provider disables every other one in the
// same transaction. Returns false when id does not exist.
func (r *ClaudeProviderRepo) Update(ctx context.Context, id int64, patch model.ClaudeProviderPatch) (bool, error) {
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
			return false, fmt.Errorf("seal token for claude provider %d: %w", id, err)
		}
		set.add("token", token)
	}
	if patch.Timeout != nil {
		set.add("timeout", *patch.Timeout)
	}
	if patch.AutoUpdate != nil {
		set.add("auto_update", boolInt(*patch.AutoUpdate))
	}
	if patch.Type != nil {
		set.add("type", string(*patch.Type))
	}
	if patch.Enabled != nil {
		set.add("enabled", boolInt(*patch.Enabled))
	}
	if patch.OpusModel != nil {
		set.add("opus_model", nullString(*patch.OpusModel))
	}
	if patch.SonnetModel != nil {
		set.add("sonnet_model", nullString(*patch.SonnetModel))
	}
	if patch.HaikuModel != nil {
		set.add("haiku_model", nullString(*patch.HaikuModel))
	}
	set.add("updated_at", now())

	enabling := patch.Enabled != nil && *patch.Enabled
	ok, err := r.updateExclusive(ctx, id, enabling, patch.Name, set)
	if err != nil {
		return false, fmt.Errorf("update claude provider %d: %w", id, err)
	}
	return ok, nil
}

func (r *ClaudeProviderRepo) open(p *model.ClaudeProvider) (*model.ClaudeProvider, error) {
	token, err := r.cipher.DecryptString(p.Token)
	if err != nil {
		return nil, fmt.Errorf("open token for claude provider %d: %w", p.ID, err)
	}
	p.Token = token
	return p, nil
}

func scanClaudeProvider(s scanner) (*model.ClaudeProvider, error) {
	var p model.ClaudeProvider
	var (
		timeout, autoUpdate  sql.NullInt64
		providerType         sql.NullString
		opus, sonnet, haiku  sql.NullString
		createdAt, updatedAt sql.NullString
	)

	err := s.Scan(&p.ID, &p.Name, &p.URL, &p.Token, &timeout, &autoUpdate, &providerType, &p.Enabled,
		&opus, &sonnet, &haiku, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	p.Timeout = model.DefaultProviderTimeout
	if timeout.Valid {
		p.Timeout = timeout.Int64
	}
	p.AutoUpdate = !autoUpdate.Valid || autoUpdate.Int64 != 0
	p.Type = model.ProviderType(providerType.String)
	p.OpusModel = opus.String
	p.SonnetModel = sonnet.String
	p.HaikuModel = haiku.String

	if p.CreatedAt, err = parseNullTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if p.UpdatedAt, err = parseNullTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &p, nil
}

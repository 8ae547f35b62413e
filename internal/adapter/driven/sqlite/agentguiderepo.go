package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ericfisherdev/aimanager/internal/domain/model"
	"github.com/ericfisherdev/aimanager/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.AgentGuideStore = (*AgentGuideRepo)(nil)

// AgentGuideRepo is the SQLite implementation of AgentGuideStore.
type AgentGuideRepo struct {
	table[model.AgentGuide]
}

// NewAgentGuideRepo creates a new AgentGuideRepo backed by the given DB.
func NewAgentGuideRepo(db *DB) *AgentGuideRepo {
	return &AgentGuideRepo{
		table: table[model.AgentGuide]{
			db:         db,
			name:       "agent_guides",
			columns:    "id, name, type, text, created_at, updated_at",
			searchable: []string{"name", "text"},
			scan:       scanAgentGuide,
		},
	}
}

// Create inserts a guide.
func (r *AgentGuideRepo) Create(ctx context.Context, in model.AgentGuideInput) (int64, error) {
	return r.InsertSealed(ctx, model.AgentGuide{Name: in.Name, Type: in.Type, Text: in.Text})
}

// InsertSealed inserts g as given. Guides carry no encrypted columns.
func (r *AgentGuideRepo) InsertSealed(ctx context.Context, g model.AgentGuide) (int64, error) {
	const query = `INSERT INTO agent_guides (name, type, text, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`

	guideType := g.Type
	if guideType == "" {
		guideType = model.GuideTypeAnd
	}

	id, err := r.insert(ctx, query, g.Name, string(guideType), g.Text, stampOrNow(g.CreatedAt), stampOrNow(g.UpdatedAt))
	if err != nil {
		return 0, fmt.Errorf("insert agent guide %q: %w", g.Name, err)
	}
	return id, nil
}

// Update applies the non-nil fields of patch.
func (r *AgentGuideRepo) Update(ctx context.Context, id int64, patch model.AgentGuidePatch) (bool, error) {
	set := &setClause{}
	if patch.Name != nil {
		set.add("name", *patch.Name)
	}
	if patch.Type != nil {
		set.add("type", string(*patch.Type))
	}
	if patch.Text != nil {
		set.add("text", *patch.Text)
	}
	set.add("updated_at", now())

	ok, err := r.update(ctx, id, set)
	if err != nil {
		return false, fmt.Errorf("update agent guide %d: %w", id, err)
	}
	return ok, nil
}

// ListByType returns every guide of the given type, newest first.
func (r *AgentGuideRepo) ListByType(ctx context.Context, guideType model.GuideType) ([]model.AgentGuide, error) {
	return r.list(ctx, "type = ?", "id DESC", string(guideType))
}

func scanAgentGuide(s scanner) (*model.AgentGuide, error) {
	var g model.AgentGuide
	var guideType, createdAt, updatedAt sql.NullString

	if err := s.Scan(&g.ID, &g.Name, &guideType, &g.Text, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	g.Type = model.GuideType(guideType.String)

	var err error
	if g.CreatedAt, err = parseNullTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if g.UpdatedAt, err = parseNullTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &g, nil
}

package model

import (
	"fmt"
	"time"
)

// AgentGuide is a Markdown instruction file (CLAUDE.md, AGENTS.md) kept
// in the store and written out for an assistant.
type AgentGuide struct {
	ID        int64
	Name      string
	Type      GuideType
	Text      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RecordID returns the row identity.
func (g AgentGuide) RecordID() int64 { return g.ID }

// RecordKey identifies the row in reports.
func (g AgentGuide) RecordKey() string { return fmt.Sprintf("id=%d name=%s", g.ID, g.Name) }

// AgentGuideInput carries the fields for creating an agent guide.
type AgentGuideInput struct {
	Name string    `json:"name" validate:"required,notblank,max=200"`
	Type GuideType `json:"type" validate:"oneof=only and"`
	Text string    `json:"text" validate:"required,notblank,max=100000"`
}

// AgentGuidePatch is a partial update of an agent guide.
type AgentGuidePatch struct {
	Name *string    `json:"name" validate:"omitempty,notblank,max=200"`
	Type *GuideType `json:"type" validate:"omitempty,oneof=only and"`
	Text *string    `json:"text" validate:"omitempty,notblank,max=100000"`
}

package model

import (
	"fmt"
	"os"
	"time"
)

// DefaultConfigCategory is used when a common config is created without one.
const DefaultConfigCategory = "general"

// CommonConfig is a shared key/value setting. Value may reference
// environment variables as ${NAME}.
type CommonConfig struct {
	ID          int64
	Key         string
	Value       string
	Description string
	Category    string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RecordID returns the row identity.
func (c CommonConfig) RecordID() int64 { return c.ID }

// RecordKey identifies the row in reports without exposing its value.
func (c CommonConfig) RecordKey() string { return fmt.Sprintf("id=%d key=%s", c.ID, c.Key) }

// ResolvedValue expands ${NAME} and $NAME references using lookup. Unknown
// names expand to the empty string. A nil lookup uses the process environment.
func (c CommonConfig) ResolvedValue(lookup func(string) string) string {
	if lookup == nil {
		lookup = os.Getenv
	}
	return os.Expand(c.Value, lookup)
}

// CommonConfigInput carries the fields for creating a common config.
type CommonConfigInput struct {
	Key         string `json:"key" validate:"required,notblank,max=100"`
	Value       string `json:"value" validate:"max=10000"`
	Description string `json:"description" validate:"max=1000"`
	Category    string `json:"category" validate:"omitempty,notblank,max=50"`
	IsActive    bool   `json:"is_active"`
}

// CommonConfigPatch is a partial update of a common config.
type CommonConfigPatch struct {
	Key         *string `json:"key" validate:"omitempty,notblank,max=100"`
	Value       *string `json:"value" validate:"omitempty,max=10000"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Category    *string `json:"category" validate:"omitempty,notblank,max=50"`
	IsActive    *bool   `json:"is_active"`
}

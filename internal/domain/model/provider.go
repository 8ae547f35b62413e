package model

import (
	"fmt"
	"time"
)

// Default values applied to providers when the caller leaves them unset.
const (
	DefaultProviderTimeout int64 = 30000
	DefaultProviderType          = ProviderTypePublicWelfare
)

// ClaudeProvider is an API endpoint plus credential for Claude Code. Token
// holds ciphertext on records read through the sealed view and plaintext on
// records read through a decrypting method.
type ClaudeProvider struct {
	ID          int64
	Name        string
	URL         string
	Token       string
	Timeout     int64
	AutoUpdate  bool
	Type        ProviderType
	Enabled     bool
	OpusModel   string
	SonnetModel string
	HaikuModel  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RecordID returns the row identity.
func (p ClaudeProvider) RecordID() int64 { return p.ID }

// RecordKey identifies the row in reports without exposing its token.
func (p ClaudeProvider) RecordKey() string { return fmt.Sprintf("id=%d name=%s", p.ID, p.Name) }

// ClaudeProviderInput carries the fields for creating a Claude provider.
// Token is plaintext.
type ClaudeProviderInput struct {
	Name        string       `json:"name" validate:"required,notblank,max=100"`
	URL         string       `json:"url" validate:"required,httpurl"`
	Token       string       `json:"token" validate:"required,notblank"`
	Timeout     int64        `json:"timeout" validate:"gt=0"`
	AutoUpdate  bool         `json:"auto_update"`
	Type        ProviderType `json:"type" validate:"oneof=paid public_welfare"`
	Enabled     bool         `json:"enabled"`
	OpusModel   string       `json:"opus_model" validate:"max=200"`
	SonnetModel string       `json:"sonnet_model" validate:"max=200"`
	HaikuModel  string       `json:"haiku_model" validate:"max=200"`
}

// ClaudeProviderPatch is a partial update; nil fields keep their stored value.
// A non-nil Token is plaintext and is always re-sealed into a fresh token.
type ClaudeProviderPatch struct {
	Name        *string       `json:"name" validate:"omitempty,notblank,max=100"`
	URL         *string       `json:"url" validate:"omitempty,httpurl"`
	Token       *string       `json:"token" validate:"omitempty,notblank"`
	Timeout     *int64        `json:"timeout" validate:"omitempty,gt=0"`
	AutoUpdate  *bool         `json:"auto_update"`
	Type        *ProviderType `json:"type" validate:"omitempty,oneof=paid public_welfare"`
	Enabled     *bool         `json:"enabled"`
	OpusModel   *string       `json:"opus_model" validate:"omitempty,max=200"`
	SonnetModel *string       `json:"sonnet_model" validate:"omitempty,max=200"`
	HaikuModel  *string       `json:"haiku_model" validate:"omitempty,max=200"`
}

// CodexProvider is an API endpoint plus credential for Codex.
type CodexProvider struct {
	ID        int64
	Name      string
	URL       string
	Token     string
	Type      ProviderType
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RecordID returns the row identity.
func (p CodexProvider) RecordID() int64 { return p.ID }

// RecordKey identifies the row in reports without exposing its token.
func (p CodexProvider) RecordKey() string { return fmt.Sprintf("id=%d name=%s", p.ID, p.Name) }

// CodexProviderInput carries the fields for creating a Codex provider.
type CodexProviderInput struct {
	Name    string       `json:"name" validate:"required,notblank,max=100"`
	URL     string       `json:"url" validate:"required,httpurl"`
	Token   string       `json:"token" validate:"required,notblank"`
	Type    ProviderType `json:"type" validate:"oneof=paid public_welfare"`
	Enabled bool         `json:"enabled"`
}

// CodexProviderPatch is a partial update of a Codex provider.
type CodexProviderPatch struct {
	Name    *string       `json:"name" validate:"omitempty,notblank,max=100"`
	URL     *string       `json:"url" validate:"omitempty,httpurl"`
	Token   *string       `json:"token" validate:"omitempty,notblank"`
	Type    *ProviderType `json:"type" validate:"omitempty,oneof=paid public_welfare"`
	Enabled *bool         `json:"enabled"`
}

// Stats summarises how many rows of a provider family are enabled.
type Stats struct {
	Total      int64
	Active     int64
	Inactive   int64
	ActiveRate float64
}

// NewStats computes Inactive and ActiveRate from the two counts.
func NewStats(total, active int64) Stats {
	s := Stats{Total: total, Active: active, Inactive: total - active}
	if total > 0 {
		s.ActiveRate = float64(active) / float64(total)
	}
	return s
}

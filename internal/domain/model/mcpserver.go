package model

import (
	"fmt"
	"time"
)

// DefaultMCPTimeout is the server start-up timeout in milliseconds.
const DefaultMCPTimeout int64 = 30000

// MCPServer describes how an assistant launches or reaches an MCP server.
// Args and Env are persisted as JSON text.
type MCPServer struct {
	ID        int64
	Name      string
	Type      MCPServerType
	Timeout   int64
	Command   string
	Args      []string
	Env       map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RecordID returns the row identity.
func (s MCPServer) RecordID() int64 { return s.ID }

// RecordKey identifies the row in reports.
func (s MCPServer) RecordKey() string { return fmt.Sprintf("id=%d name=%s", s.ID, s.Name) }

// MCPServerInput carries the fields for registering an MCP server.
type MCPServerInput struct {
	Name    string            `json:"name" validate:"required,notblank,max=100"`
	Type    MCPServerType     `json:"type" validate:"omitempty,oneof=stdio sse http"`
	Timeout int64             `json:"timeout" validate:"gt=0"`
	Command string            `json:"command" validate:"required,notblank"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env" validate:"omitempty,dive,keys,required,endkeys"`
}

// MCPServerPatch is a partial update of an MCP server. A non-nil Env
// replaces the whole map; an empty map clears it.
type MCPServerPatch struct {
	Name    *string            `json:"name" validate:"omitempty,notblank,max=100"`
	Type    *MCPServerType     `json:"type" validate:"omitempty,oneof=stdio sse http"`
	Timeout *int64             `json:"timeout" validate:"omitempty,gt=0"`
	Command *string            `json:"command" validate:"omitempty,notblank"`
	Args    *[]string          `json:"args"`
	Env     *map[string]string `json:"env"`
}

package model

// TransferVersion is written into every exported document.
const TransferVersion = "2.0.0"

// TransferDocument is the JSON interchange format shared with other
// implementations of this application. Integer flags (0/1) and optional
// fields mirror the on-disk schema so documents from older exporters decode
// unchanged.
type TransferDocument struct {
	Version         string                  `json:"version"`
	ExportedAt      string                  `json:"exported_at,omitempty"`
	ClaudeProviders []TransferClaudeProvider `json:"claude_providers"`
	CodexProviders  []TransferCodexProvider  `json:"codex_providers"`
	AgentGuides     []TransferAgentGuide     `json:"agent_guides"`
	MCPServers      []TransferMCPServer      `json:"mcp_servers"`
	CommonConfigs   []TransferCommonConfig   `json:"common_configs"`
}

// TransferClaudeProvider is a Claude provider in a transfer document.
type TransferClaudeProvider struct {
	ID          *int64  `json:"id,omitempty"`
	Name        string  `json:"name"`
	URL         string  `json:"url"`
	Token       string  `json:"token"`
	Timeout     *int64  `json:"timeout,omitempty"`
	AutoUpdate  *int64  `json:"auto_update,omitempty"`
	Type        *string `json:"type,omitempty"`
	Enabled     *int64  `json:"enabled,omitempty"`
	OpusModel   *string `json:"opus_model,omitempty"`
	SonnetModel *string `json:"sonnet_model,omitempty"`
	HaikuModel  *string `json:"haiku_model,omitempty"`
	CreatedAt   *string `json:"created_at,omitempty"`
	UpdatedAt   *string `json:"updated_at,omitempty"`
}

// TransferCodexProvider is a Codex provider in a transfer document.
type TransferCodexProvider struct {
	ID        *int64  `json:"id,omitempty"`
	Name      string  `json:"name"`
	URL       string  `json:"url"`
	Token     string  `json:"token"`
	Type      *string `json:"type,omitempty"`
	Enabled   *int64  `json:"enabled,omitempty"`
	CreatedAt *string `json:"created_at,omitempty"`
	UpdatedAt *string `json:"updated_at,omitempty"`
}

// TransferAgentGuide is an agent guide in a transfer document.
type TransferAgentGuide struct {
	ID        *int64  `json:"id,omitempty"`
	Name      string  `json:"name"`
	Type      *string `json:"type,omitempty"`
	Text      string  `json:"text"`
	CreatedAt *string `json:"created_at,omitempty"`
	UpdatedAt *string `json:"updated_at,omitempty"`
}

// TransferMCPServer is an MCP server in a transfer document.
type TransferMCPServer struct {
	ID        *int64            `json:"id,omitempty"`
	Name      string            `json:"name"`
	Type      *string           `json:"type,omitempty"`
	Timeout   *int64            `json:"timeout,omitempty"`
	Command   string            `json:"command"`
	Args      []string          `json:"args"`
	Env       map[string]string `json:"env,omitempty"`
	CreatedAt *string           `json:"created_at,omitempty"`
	UpdatedAt *string           `json:"updated_at,omitempty"`
}

// TransferCommonConfig is a common config in a transfer document.
type TransferCommonConfig struct {
	ID          *int64  `json:"id,omitempty"`
	Key         string  `json:"key"`
	Value       string  `json:"value"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	IsActive    *int64  `json:"is_active,omitempty"`
	CreatedAt   *string `json:"created_at,omitempty"`
	UpdatedAt   *string `json:"updated_at,omitempty"`
}

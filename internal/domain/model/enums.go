package model

// ProviderType classifies how a provider is billed.
type ProviderType string

const (
	ProviderTypePaid          ProviderType = "paid"
	ProviderTypePublicWelfare ProviderType = "public_welfare"
)

// GuideType controls how an agent guide is combined with other guides.
type GuideType string

const (
	GuideTypeOnly GuideType = "only" // Replaces every other guide.
	GuideTypeAnd  GuideType = "and"  // Appended alongside other guides.
)

// MCPServerType is the transport an MCP server speaks.
type MCPServerType string

const (
	MCPServerTypeStdio MCPServerType = "stdio"
	MCPServerTypeSSE   MCPServerType = "sse"
	MCPServerTypeHTTP  MCPServerType = "http"
)

// AIType identifies the assistant a configuration targets.
type AIType string

const (
	AITypeClaude AIType = "claude"
	AITypeCodex  AIType = "codex"
)

// PlatformType identifies the operating system family a template targets.
type PlatformType string

const (
	PlatformUnix    PlatformType = "unix"
	PlatformWindows PlatformType = "windows"
)

// EntityType names a persisted table. Migration reports are keyed by it.
type EntityType string

const (
	EntityClaudeProviders EntityType = "claude_providers"
	EntityCodexProviders  EntityType = "codex_providers"
	EntityAgentGuides     EntityType = "agent_guides"
	EntityMCPServers      EntityType = "mcp_servers"
	EntityCommonConfigs   EntityType = "common_configs"
)

// EntityOrder is the fixed order in which entity types are migrated,
// imported and exported.
var EntityOrder = []EntityType{
	EntityClaudeProviders,
	EntityCodexProviders,
	EntityAgentGuides,
	EntityMCPServers,
	EntityCommonConfigs,
}

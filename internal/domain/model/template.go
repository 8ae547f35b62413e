package model

// MCPTemplate is a built-in, versioned MCP server configuration snippet for
// one assistant and platform. ConfigContent is what the assistant expects
// in its MCP configuration file: a JSON object for Claude, a TOML table for
// Codex.
type MCPTemplate struct {
	Name          string
	Version       string
	AIType        AIType
	PlatformType  PlatformType
	ConfigContent string
	Description   string
	Category      string
	Tags          []string
}

// TemplateFilter narrows a template listing. Zero fields match everything.
type TemplateFilter struct {
	AIType       AIType
	PlatformType PlatformType
	Category     string
}

// Matches reports whether t passes the filter.
func (f TemplateFilter) Matches(t MCPTemplate) bool {
	if f.AIType != "" && t.AIType != f.AIType {
		return false
	}
	if f.PlatformType != "" && t.PlatformType != f.PlatformType {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	return true
}

package application

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/ericfisherdev/aimanager/internal/domain/model"
	"github.com/ericfisherdev/aimanager/internal/domain/port/driven"
)

//go:embed templates.yaml
var builtinTemplates []byte

type templateFile struct {
	Templates []templateEntry `yaml:"templates"`
}

type templateEntry struct {
	Name         string   `yaml:"name"`
	Version      string   `yaml:"version"`
	AIType       string   `yaml:"ai_type"`
	PlatformType string   `yaml:"platform_type"`
	Category     string   `yaml:"category"`
	Tags         []string `yaml:"tags"`
	Description  string   `yaml:"description"`
	Config       string   `yaml:"config"`
}

// claudeServerEntry is one value of a Claude "mcpServers" object.
type claudeServerEntry struct {
	Type    string            `json:"type"`
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env"`
	Timeout int64             `json:"timeout"`
}

// codexConfig is the part of a Codex config.toml that declares MCP servers.
type codexConfig struct {
	MCPServers map[string]codexServerEntry `toml:"mcp_servers"`
}

type codexServerEntry struct {
	Type             string            `toml:"type"`
	Command          string            `toml:"command"`
	Args             []string          `toml:"args"`
	Env              map[string]string `toml:"env"`
	StartupTimeoutMS int64             `toml:"startup_timeout_ms"`
}

// TemplateCatalog is a read-only set of MCP server templates, keyed by
// name, assistant and platform.
type TemplateCatalog struct {
	templates []model.MCPTemplate
}

// NewTemplateCatalog loads the built-in templates.
func NewTemplateCatalog() (*TemplateCatalog, error) {
	return LoadTemplateCatalog(builtinTemplates)
}

// LoadTemplateCatalog parses a YAML template document. Every template's
// config must parse in its assistant's format and declare at least one
// server.
func LoadTemplateCatalog(data []byte) (*TemplateCatalog, error) {
	var file templateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	seen := make(map[string]bool, len(file.Templates))
	templates := make([]model.MCPTemplate, 0, len(file.Templates))
	for i, e := range file.Templates {
		t := model.MCPTemplate{
			Name:          strings.TrimSpace(e.Name),
			Version:       e.Version,
			AIType:        model.AIType(e.AIType),
			PlatformType:  model.PlatformType(e.PlatformType),
			ConfigContent: strings.TrimSpace(e.Config),
			Description:   e.Description,
			Category:      e.Category,
			Tags:          e.Tags,
		}
		if t.Name == "" {
			return nil, fmt.Errorf("template %d: name is required", i)
		}
		if t.PlatformType != model.PlatformUnix && t.PlatformType != model.PlatformWindows {
			return nil, fmt.Errorf("template %q: unknown platform %q", t.Name, e.PlatformType)
		}

		if _, err := templateServers(t); err != nil {
			return nil, fmt.Errorf("template %q (%s/%s): %w", t.Name, t.AIType, t.PlatformType, err)
		}

		k := templateKey(t.Name, t.AIType, t.PlatformType)
		if seen[k] {
			return nil, fmt.Errorf("template %q (%s/%s) declared twice", t.Name, t.AIType, t.PlatformType)
		}
		seen[k] = true
		templates = append(templates, t)
	}

	return &TemplateCatalog{templates: templates}, nil
}

func templateKey(name string, ai model.AIType, platform model.PlatformType) string {
	return string(ai) + "/" + string(platform) + "/" + strings.ToLower(name)
}

// List returns the templates passing filter in catalog order.
func (c *TemplateCatalog) List(filter model.TemplateFilter) []model.MCPTemplate {
	out := make([]model.MCPTemplate, 0, len(c.templates))
	for _, t := range c.templates {
		if filter.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}

// Get returns the template with the given name for one assistant and
// platform. Names compare case-insensitively.
func (c *TemplateCatalog) Get(name string, ai model.AIType, platform model.PlatformType) (*model.MCPTemplate, error) {
	k := templateKey(strings.TrimSpace(name), ai, platform)
	for _, t := range c.templates {
		if templateKey(t.Name, t.AIType, t.PlatformType) == k {
			t := t
			return &t, nil
		}
	}
	return nil, fmt.Errorf("template %q for %s/%s: %w", name, ai, platform, driven.ErrNotFound)
}

// Categories returns the distinct template categories, sorted.
func (c *TemplateCatalog) Categories() []string {
	set := make(map[string]struct{})
	for _, t := range c.templates {
		if t.Category != "" {
			set[t.Category] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for cat := range set {
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}

// templateServers decodes the servers a template declares, sorted by name.
func templateServers(t model.MCPTemplate) ([]model.MCPServerInput, error) {
	var out []model.MCPServerInput

	switch t.AIType {
	case model.AITypeClaude:
		var servers map[string]claudeServerEntry
		if err := json.Unmarshal([]byte(t.ConfigContent), &servers); err != nil {
			return nil, fmt.Errorf("config is not a JSON object: %w", err)
		}
		for name, s := range servers {
			out = append(out, serverInput(name, s.Type, s.Command, s.Args, s.Env, s.Timeout))
		}
	case model.AITypeCodex:
		var cfg codexConfig
		if err := toml.Unmarshal([]byte(t.ConfigContent), &cfg); err != nil {
			return nil, fmt.Errorf("config is not valid TOML: %w", err)
		}
		for name, s := range cfg.MCPServers {
			out = append(out, serverInput(name, s.Type, s.Command, s.Args, s.Env, s.StartupTimeoutMS))
		}
	default:
		return nil, fmt.Errorf("unknown ai type %q", t.AIType)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("config declares no servers")
	}
	for _, in := range out {
		if in.Command == "" {
			return nil, fmt.Errorf("server %q has no command", in.Name)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func serverInput(name, typ, command string, args []string, env map[string]string, timeout int64) model.MCPServerInput {
	in := model.MCPServerInput{
		Name:    name,
		Type:    model.MCPServerType(typ),
		Timeout: timeout,
		Command: command,
		Args:    args,
		Env:     env,
	}
	if in.Type == "" {
		in.Type = model.MCPServerTypeStdio
	}
	if in.Timeout <= 0 {
		in.Timeout = model.DefaultMCPTimeout
	}
	if len(in.Env) == 0 {
		in.Env = nil
	}
	return in
}

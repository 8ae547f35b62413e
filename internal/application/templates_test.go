package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/aimanager/internal/domain/model"
	"github.com/ericfisherdev/aimanager/internal/domain/port/driven"
)

func TestNewTemplateCatalog_Builtin(t *testing.T) {
	catalog, err := NewTemplateCatalog()
	require.NoError(t, err)

	all := catalog.List(model.TemplateFilter{})
	require.NotEmpty(t, all)

	for _, tmpl := range all {
		servers, err := templateServers(tmpl)
		require.NoError(t, err, "template %s %s/%s", tmpl.Name, tmpl.AIType, tmpl.PlatformType)
		for _, s := range servers {
			assert.NotEmpty(t, s.Command)
			assert.Positive(t, s.Timeout)
		}
		assert.NotContains(t, tmpl.ConfigContent, "--key", "templates must not embed credentials")
	}

	for _, ai := range []model.AIType{model.AITypeClaude, model.AITypeCodex} {
		for _, platform := range []model.PlatformType{model.PlatformUnix, model.PlatformWindows} {
			list := catalog.List(model.TemplateFilter{AIType: ai, PlatformType: platform})
			assert.NotEmpty(t, list, "%s/%s", ai, platform)
		}
	}
}

func TestTemplateCatalog_ListFilters(t *testing.T) {
	catalog, err := NewTemplateCatalog()
	require.NoError(t, err)

	docs := catalog.List(model.TemplateFilter{Category: "documentation"})
	require.NotEmpty(t, docs)
	for _, tmpl := range docs {
		assert.Equal(t, "Context7", tmpl.Name)
	}

	windows := catalog.List(model.TemplateFilter{AIType: model.AITypeClaude, PlatformType: model.PlatformWindows})
	for _, tmpl := range windows {
		assert.Contains(t, tmpl.ConfigContent, `"cmd"`)
	}

	assert.Empty(t, catalog.List(model.TemplateFilter{Category: "nope"}))
}

func TestTemplateCatalog_Get(t *testing.T) {
	catalog, err := NewTemplateCatalog()
	require.NoError(t, err)

	tmpl, err := catalog.Get("context7", model.AITypeClaude, model.PlatformUnix)
	require.NoError(t, err)
	assert.Equal(t, "Context7", tmpl.Name)
	assert.Equal(t, "1.0.0", tmpl.Version)

	_, err = catalog.Get("Shrimp Task Manager", model.AITypeCodex, model.PlatformUnix)
	require.ErrorIs(t, err, driven.ErrNotFound)
}

func TestTemplateCatalog_Categories(t *testing.T) {
	catalog, err := NewTemplateCatalog()
	require.NoError(t, err)

	cats := catalog.Categories()
	assert.IsNonDecreasing(t, cats)
	assert.Contains(t, cats, "documentation")
	assert.Contains(t, cats, "tools")
}

func TestTemplateServers_Codex(t *testing.T) {
	catalog, err := NewTemplateCatalog()
	require.NoError(t, err)

	tmpl, err := catalog.Get("Exa", model.AITypeCodex, model.PlatformUnix)
	require.NoError(t, err)

	servers, err := templateServers(*tmpl)
	require.NoError(t, err)
	require.Len(t, servers, 1)
	assert.Equal(t, "exa", servers[0].Name)
	assert.Equal(t, model.MCPServerTypeStdio, servers[0].Type)
	assert.Equal(t, model.DefaultMCPTimeout, servers[0].Timeout)
	assert.Equal(t, map[string]string{"EXA_API_KEY": "${EXA_API_KEY}"}, servers[0].Env)
}

func TestLoadTemplateCatalog_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "not yaml",
			yaml: "templates: [",
		},
		{
			name: "missing name",
			yaml: `
templates:
  - ai_type: claude
    platform_type: unix
    config: '{"a": {"command": "x"}}'
`,
		},
		{
			name: "unknown platform",
			yaml: `
templates:
  - name: a
    ai_type: claude
    platform_type: plan9
    config: '{"a": {"command": "x"}}'
`,
		},
		{
			name: "unknown ai type",
			yaml: `
templates:
  - name: a
    ai_type: gemini
    platform_type: unix
    config: '{"a": {"command": "x"}}'
`,
		},
		{
			name: "claude config not json",
			yaml: `
templates:
  - name: a
    ai_type: claude
    platform_type: unix
    config: '[mcp_servers.a]'
`,
		},
		{
			name: "codex config not toml",
			yaml: `
templates:
  - name: a
    ai_type: codex
    platform_type: unix
    config: '{"a": {"command": "x"}}'
`,
		},
		{
			name: "no servers",
			yaml: `
templates:
  - name: a
    ai_type: claude
    platform_type: unix
    config: '{}'
`,
		},
		{
			name: "server without command",
			yaml: `
templates:
  - name: a
    ai_type: claude
    platform_type: unix
    config: '{"a": {"type": "stdio"}}'
`,
		},
		{
			name: "duplicate",
			yaml: `
templates:
  - name: a
    ai_type: claude
    platform_type: unix
    config: '{"a": {"command": "x"}}'
  - name: A
    ai_type: claude
    platform_type: unix
    config: '{"a": {"command": "y"}}'
`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadTemplateCatalog([]byte(tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadTemplateCatalog_SameNameOtherPlatform(t *testing.T) {
	catalog, err := LoadTemplateCatalog([]byte(`
templates:
  - name: a
    ai_type: claude
    platform_type: unix
    category: tools
    config: '{"a": {"command": "npx"}}'
  - name: a
    ai_type: claude
    platform_type: windows
    category: tools
    config: '{"a": {"command": "cmd", "args": ["/c", "npx"]}}'
`))
	require.NoError(t, err)
	assert.Len(t, catalog.List(model.TemplateFilter{}), 2)
	assert.Equal(t, []string{"tools"}, catalog.Categories())
}

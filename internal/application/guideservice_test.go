package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/aimanager/internal/domain/model"
	"github.com/ericfisherdev/aimanager/internal/domain/port/driven"
)

func TestRenderGuide_EmptyInput(t *testing.T) {
	assert.Equal(t, "", RenderGuide(""))
}

func TestRenderGuide_Headings(t *testing.T) {
	result := RenderGuide("# Project rules\n\nAlways run the tests.")
	assert.Contains(t, result, "<h1")
	assert.Contains(t, result, "Project rules</h1>")
	assert.Contains(t, result, "<p>Always run the tests.</p>")
}

func TestRenderGuide_InlineCode(t *testing.T) {
	result := RenderGuide("use `go test ./...`")
	assert.Contains(t, result, "<code>go test ./...</code>")
}

func TestRenderGuide_CodeBlock(t *testing.T) {
	result := RenderGuide("```sh\nmake lint\n```")
	assert.Contains(t, result, "<code")
	assert.Contains(t, result, "make lint")
}

func TestRenderGuide_SanitizesScript(t *testing.T) {
	result := RenderGuide(`<script>alert("xss")</script>`)
	assert.NotContains(t, result, "<script>")
}

func TestRenderGuide_GFMTable(t *testing.T) {
	result := RenderGuide("| a | b |\n|---|---|\n| 1 | 2 |")
	assert.Contains(t, result, "<table>")
	assert.Contains(t, result, "<td>1</td>")
}

func TestAgentGuideService_CreateDefaultsType(t *testing.T) {
	stores := newTestStores(t, testKeyA)
	svc := NewAgentGuideService(stores.guides, discardLogger())
	ctx := context.Background()

	g, err := svc.Create(ctx, model.AgentGuideInput{Name: "CLAUDE.md", Text: "# Rules"})
	require.NoError(t, err)
	assert.Equal(t, model.GuideTypeAnd, g.Type)
	assert.NotZero(t, g.ID)

	html, err := svc.Preview(ctx, g.ID)
	require.NoError(t, err)
	assert.Contains(t, html, "Rules</h1>")
}

func TestAgentGuideService_Validation(t *testing.T) {
	stores := newTestStores(t, testKeyA)
	svc := NewAgentGuideService(stores.guides, discardLogger())
	ctx := context.Background()

	_, err := svc.Create(ctx, model.AgentGuideInput{Name: "  ", Text: "x", Type: model.GuideTypeOnly})
	require.ErrorIs(t, err, driven.ErrValidation)

	_, err = svc.ListByType(ctx, "sometimes")
	require.ErrorIs(t, err, driven.ErrValidation)

	_, err = svc.Preview(ctx, 404)
	require.ErrorIs(t, err, driven.ErrNotFound)
}

func TestAgentGuideService_UpdateAndDelete(t *testing.T) {
	stores := newTestStores(t, testKeyA)
	svc := NewAgentGuideService(stores.guides, discardLogger())
	ctx := context.Background()

	g, err := svc.Create(ctx, model.AgentGuideInput{Name: "AGENTS.md", Text: "v1", Type: model.GuideTypeOnly})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, g.ID, model.AgentGuidePatch{Text: ptr("v2")})
	require.NoError(t, err)
	assert.Equal(t, "v2", updated.Text)
	assert.Equal(t, "AGENTS.md", updated.Name)

	only, err := svc.ListByType(ctx, model.GuideTypeOnly)
	require.NoError(t, err)
	require.Len(t, only, 1)

	require.NoError(t, svc.Delete(ctx, g.ID))
	require.ErrorIs(t, svc.Delete(ctx, g.ID), driven.ErrNotFound)

	_, err = svc.Update(ctx, g.ID, model.AgentGuidePatch{Text: ptr("v3")})
	require.ErrorIs(t, err, driven.ErrNotFound)
}

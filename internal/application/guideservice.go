package application

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/ericfisherdev/aimanager/internal/domain/model"
	"github.com/ericfisherdev/aimanager/internal/domain/port/driven"
)

var (
	mdRenderer    goldmark.Markdown
	htmlSanitizer *bluemonday.Policy
)

func init() {
	mdRenderer = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)

	htmlSanitizer = bluemonday.UGCPolicy()
}

// RenderGuide converts guide Markdown to sanitized HTML.
// Returns empty string for empty input.
func RenderGuide(src string) string {
	if src == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(src), &buf); err != nil {
		return htmlSanitizer.Sanitize(src)
	}

	return htmlSanitizer.Sanitize(buf.String())
}

// AgentGuideService manages agent guides.
type AgentGuideService struct {
	records[model.AgentGuide, model.AgentGuideInput, model.AgentGuidePatch]
	store driven.AgentGuideStore
}

// NewAgentGuideService creates an AgentGuideService.
func NewAgentGuideService(store driven.AgentGuideStore, logger *slog.Logger) *AgentGuideService {
	return &AgentGuideService{
		records: newRecords(driven.Store[model.AgentGuide, model.AgentGuideInput, model.AgentGuidePatch](store), "agent guide", logger),
		store:   store,
	}
}

// Create stores a guide. An unset type defaults to "and".
func (s *AgentGuideService) Create(ctx context.Context, in model.AgentGuideInput) (*model.AgentGuide, error) {
	if in.Type == "" {
		in.Type = model.GuideTypeAnd
	}
	return s.create(ctx, in)
}

// Update applies patch to id.
func (s *AgentGuideService) Update(ctx context.Context, id int64, patch model.AgentGuidePatch) (*model.AgentGuide, error) {
	return s.update(ctx, id, patch)
}

// ListByType returns the guides of one type, newest first.
func (s *AgentGuideService) ListByType(ctx context.Context, guideType model.GuideType) ([]model.AgentGuide, error) {
	if guideType != model.GuideTypeOnly && guideType != model.GuideTypeAnd {
		return nil, driven.NewValidationError("type", "must be one of: only, and")
	}
	return s.store.ListByType(ctx, guideType)
}

// Preview renders the guide's Markdown as sanitized HTML.
func (s *AgentGuideService) Preview(ctx context.Context, id int64) (string, error) {
	g, err := s.store.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	return RenderGuide(g.Text), nil
}

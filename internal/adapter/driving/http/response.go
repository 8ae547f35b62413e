package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ericfisherdev/aimanager/internal/application"
	"github.com/ericfisherdev/aimanager/internal/domain/model"
	"github.com/ericfisherdev/aimanager/internal/domain/port/driven"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeServiceError maps a service error onto a status code. Only
// unexpected errors are logged; their text never reaches the client.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error, noun, op string) {
	var verr *driven.ValidationError
	switch {
	case errors.As(err, &verr):
		resp := errorResponse{Error: "validation failed", Fields: make([]fieldErrorResponse, 0, len(verr.Fields))}
		for _, f := range verr.Fields {
			resp.Fields = append(resp.Fields, fieldErrorResponse{Field: f.Field, Reason: f.Reason})
		}
		writeJSON(w, http.StatusBadRequest, resp)
	case errors.Is(err, driven.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation failed")
	case errors.Is(err, driven.ErrNotFound):
		writeError(w, http.StatusNotFound, noun+" not found")
	case errors.Is(err, driven.ErrConflict):
		writeError(w, http.StatusConflict, noun+" conflicts with an existing record")
	default:
		logger.Error("failed to "+op+" "+noun, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error  string               `json:"error"`
	Fields []fieldErrorResponse `json:"fields,omitempty"`
}

type fieldErrorResponse struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// PageResponse is one page of a listing.
type PageResponse[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

func toPageResponse[T, R any](p model.Page[T], conv func(T) R) PageResponse[R] {
	items := make([]R, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, conv(it))
	}
	return PageResponse[R]{
		Items:      items,
		Total:      p.Total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: p.TotalPages,
	}
}

func toSliceResponse[T, R any](in []T, conv func(T) R) []R {
	out := make([]R, 0, len(in))
	for _, it := range in {
		out = append(out, conv(it))
	}
	return out
}

// ClaudeProviderResponse is the JSON representation of a Claude provider.
// Token is only present on single-record reads.
type ClaudeProviderResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	Token       string `json:"token,omitempty"`
	Timeout     int64  `json:"timeout"`
	AutoUpdate  bool   `json:"auto_update"`
	Type        string `json:"type"`
	Enabled     bool   `json:"enabled"`
	OpusModel   string `json:"opus_model"`
	SonnetModel string `json:"sonnet_model"`
	HaikuModel  string `json:"haiku_model"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func toClaudeProviderResponse(p model.ClaudeProvider) ClaudeProviderResponse {
	return ClaudeProviderResponse{
		ID:          p.ID,
		Name:        p.Name,
		URL:         p.URL,
		Timeout:     p.Timeout,
		AutoUpdate:  p.AutoUpdate,
		Type:        string(p.Type),
		Enabled:     p.Enabled,
		OpusModel:   p.OpusModel,
		SonnetModel: p.SonnetModel,
		HaikuModel:  p.HaikuModel,
		CreatedAt:   formatTime(p.CreatedAt),
		UpdatedAt:   formatTime(p.UpdatedAt),
	}
}

func toClaudeProviderDetail(p model.ClaudeProvider) ClaudeProviderResponse {
	resp := toClaudeProviderResponse(p)
	resp.Token = p.Token
	return resp
}

// CodexProviderResponse is the JSON representation of a Codex provider.
type CodexProviderResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	Token     string `json:"token,omitempty"`
	Type      string `json:"type"`
	Enabled   bool   `json:"enabled"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toCodexProviderResponse(p model.CodexProvider) CodexProviderResponse {
	return CodexProviderResponse{
		ID:        p.ID,
		Name:      p.Name,
		URL:       p.URL,
		Type:      string(p.Type),
		Enabled:   p.Enabled,
		CreatedAt: formatTime(p.CreatedAt),
		UpdatedAt: formatTime(p.UpdatedAt),
	}
}

func toCodexProviderDetail(p model.CodexProvider) CodexProviderResponse {
	resp := toCodexProviderResponse(p)
	resp.Token = p.Token
	return resp
}

// StatsResponse is the enabled/disabled summary of a provider family.
type StatsResponse struct {
	Total      int64   `json:"total"`
	Active     int64   `json:"active"`
	Inactive   int64   `json:"inactive"`
	ActiveRate float64 `json:"active_rate"`
}

func toStatsResponse(s model.Stats) StatsResponse {
	return StatsResponse{Total: s.Total, Active: s.Active, Inactive: s.Inactive, ActiveRate: s.ActiveRate}
}

// AgentGuideResponse is the JSON representation of an agent guide.
type AgentGuideResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toAgentGuideResponse(g model.AgentGuide) AgentGuideResponse {
	return AgentGuideResponse{
		ID:        g.ID,
		Name:      g.Name,
		Type:      string(g.Type),
		Text:      g.Text,
		CreatedAt: formatTime(g.CreatedAt),
		UpdatedAt: formatTime(g.UpdatedAt),
	}
}

// GuidePreviewResponse carries a guide rendered to sanitized HTML.
type GuidePreviewResponse struct {
	ID   int64  `json:"id"`
	HTML string `json:"html"`
}

// MCPServerResponse is the JSON representation of an MCP server.
type MCPServerResponse struct {
	ID        int64             `json:"id"`
	Name      string            `json:"name"`
	Type      string            `json:"type"`
	Timeout   int64             `json:"timeout"`
	Command   string            `json:"command"`
	Args      []string          `json:"args"`
	Env       map[string]string `json:"env"`
	CreatedAt string            `json:"created_at"`
	UpdatedAt string            `json:"updated_at"`
}

func toMCPServerResponse(s model.MCPServer) MCPServerResponse {
	args := s.Args
	if args == nil {
		args = []string{}
	}
	env := s.Env
	if env == nil {
		env = map[string]string{}
	}
	return MCPServerResponse{
		ID:        s.ID,
		Name:      s.Name,
		Type:      string(s.Type),
		Timeout:   s.Timeout,
		Command:   s.Command,
		Args:      args,
		Env:       env,
		CreatedAt: formatTime(s.CreatedAt),
		UpdatedAt: formatTime(s.UpdatedAt),
	}
}

// CommonConfigResponse is the JSON representation of a common config.
type CommonConfigResponse struct {
	ID          int64  `json:"id"`
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description"`
	Category    string `json:"category"`
	IsActive    bool   `json:"is_active"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func toCommonConfigResponse(c model.CommonConfig) CommonConfigResponse {
	return CommonConfigResponse{
		ID:          c.ID,
		Key:         c.Key,
		Value:       c.Value,
		Description: c.Description,
		Category:    c.Category,
		IsActive:    c.IsActive,
		CreatedAt:   formatTime(c.CreatedAt),
		UpdatedAt:   formatTime(c.UpdatedAt),
	}
}

// ResolvedConfigResponse is a config value with environment references
// expanded.
type ResolvedConfigResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// TemplateResponse is the JSON representation of a built-in MCP template.
type TemplateResponse struct {
	Name          string   `json:"name"`
	Version       string   `json:"version"`
	AIType        string   `json:"ai_type"`
	PlatformType  string   `json:"platform_type"`
	ConfigContent string   `json:"config_content"`
	Description   string   `json:"description"`
	Category      string   `json:"category"`
	Tags          []string `json:"tags"`
}

func toTemplateResponse(t model.MCPTemplate) TemplateResponse {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return TemplateResponse{
		Name:          t.Name,
		Version:       t.Version,
		AIType:        string(t.AIType),
		PlatformType:  string(t.PlatformType),
		ConfigContent: t.ConfigContent,
		Description:   t.Description,
		Category:      t.Category,
		Tags:          tags,
	}
}

// InstallTemplateResponse lists what a template install registered.
type InstallTemplateResponse struct {
	Installed []MCPServerResponse `json:"installed"`
	Skipped   []string            `json:"skipped"`
}

// HealthResponse is the JSON representation of a health check.
type HealthResponse struct {
	Status     string                    `json:"status"`
	Time       string                    `json:"time"`
	Components []ComponentHealthResponse `json:"components"`
}

// ComponentHealthResponse is the state of one dependency.
type ComponentHealthResponse struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func toHealthResponse(r application.HealthReport) HealthResponse {
	resp := HealthResponse{
		Status:     string(r.Status),
		Time:       formatTime(r.CheckedAt),
		Components: make([]ComponentHealthResponse, 0, len(r.Components)),
	}
	for _, c := range r.Components {
		resp.Components = append(resp.Components, ComponentHealthResponse{
			Name:   c.Name,
			Status: string(c.Status),
			Detail: c.Detail,
		})
	}
	return resp
}

// ReportResponse summarises an import run.
type ReportResponse struct {
	RunID     string                `json:"run_id"`
	Attempted int                   `json:"attempted"`
	Migrated  int                   `json:"migrated"`
	Failed    int                   `json:"failed"`
	Entities  []EntityStatsResponse `json:"entities"`
}

// EntityStatsResponse is the outcome for one entity type.
type EntityStatsResponse struct {
	Entity        string                `json:"entity"`
	Attempted     int                   `json:"attempted"`
	Migrated      int                   `json:"migrated"`
	Failed        int                   `json:"failed"`
	Errors        []RecordErrorResponse `json:"errors"`
	ErrorsDropped int                   `json:"errors_dropped"`
}

// RecordErrorResponse names a record that was not imported.
type RecordErrorResponse struct {
	Key   string `json:"key"`
	Cause string `json:"cause"`
}

func toReportResponse(r *model.MigrationReport) ReportResponse {
	attempted, migrated, failed := r.Totals()
	resp := ReportResponse{
		RunID:     r.RunID,
		Attempted: attempted,
		Migrated:  migrated,
		Failed:    failed,
		Entities:  make([]EntityStatsResponse, 0, len(r.Entities)),
	}
	for _, s := range r.Entities {
		es := EntityStatsResponse{
			Entity:        string(s.Entity),
			Attempted:     s.Attempted,
			Migrated:      s.Migrated,
			Failed:        s.Failed,
			Errors:        make([]RecordErrorResponse, 0, len(s.Errors)),
			ErrorsDropped: s.ErrorsDropped,
		}
		for _, e := range s.Errors {
			es.Errors = append(es.Errors, RecordErrorResponse{Key: e.Key, Cause: e.Cause})
		}
		resp.Entities = append(resp.Entities, es)
	}
	return resp
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

package httphandler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ericfisherdev/aimanager/internal/application"
	"github.com/ericfisherdev/aimanager/internal/domain/model"
)

// Services groups the application services the API serves.
type Services struct {
	ClaudeProviders *application.ClaudeProviderService
	CodexProviders  *application.CodexProviderService
	AgentGuides     *application.AgentGuideService
	MCPServers      *application.MCPServerService
	CommonConfigs   *application.CommonConfigService
	Templates       *application.TemplateCatalog
	Transfer        *application.TransferService
	Health          *application.HealthService
}

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	svc    Services
	logger *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(svc Services, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// providerService is implemented by both provider services on top of CRUD.
type providerService[T any] interface {
	Enable(ctx context.Context, id int64) error
	Disable(ctx context.Context, id int64) error
	Current(ctx context.Context) (*T, error)
	Stats(ctx context.Context) (model.Stats, error)
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	claude := &resource[model.ClaudeProvider, model.ClaudeProviderInput, model.ClaudeProviderPatch, ClaudeProviderResponse]{
		svc:    h.svc.ClaudeProviders,
		noun:   "claude provider",
		list:   toClaudeProviderResponse,
		detail: toClaudeProviderDetail,
		// auto_update defaults to on when the body omits it.
		newInput: func() model.ClaudeProviderInput { return model.ClaudeProviderInput{AutoUpdate: true} },
		logger:   h.logger,
	}
	claude.register(mux, "/api/v1/claude-providers")
	registerProviderRoutes(mux, "/api/v1/claude-providers", h.svc.ClaudeProviders, claude.noun, toClaudeProviderDetail, h.logger)

	codex := &resource[model.CodexProvider, model.CodexProviderInput, model.CodexProviderPatch, CodexProviderResponse]{
		svc:    h.svc.CodexProviders,
		noun:   "codex provider",
		list:   toCodexProviderResponse,
		detail: toCodexProviderDetail,
		logger: h.logger,
	}
	codex.register(mux, "/api/v1/codex-providers")
	registerProviderRoutes(mux, "/api/v1/codex-providers", h.svc.CodexProviders, codex.noun, toCodexProviderDetail, h.logger)

	guides := &resource[model.AgentGuide, model.AgentGuideInput, model.AgentGuidePatch, AgentGuideResponse]{
		svc:    h.svc.AgentGuides,
		noun:   "agent guide",
		list:   toAgentGuideResponse,
		detail: toAgentGuideResponse,
		logger: h.logger,
	}
	guides.register(mux, "/api/v1/agent-guides")
	mux.HandleFunc("GET /api/v1/agent-guides/by-type", h.ListGuidesByType)
	mux.HandleFunc("GET /api/v1/agent-guides/{id}/preview", h.PreviewGuide)

	servers := &resource[model.MCPServer, model.MCPServerInput, model.MCPServerPatch, MCPServerResponse]{
		svc:    h.svc.MCPServers,
		noun:   "mcp server",
		list:   toMCPServerResponse,
		detail: toMCPServerResponse,
		logger: h.logger,
	}
	servers.register(mux, "/api/v1/mcp-servers")

	configs := &resource[model.CommonConfig, model.CommonConfigInput, model.CommonConfigPatch, CommonConfigResponse]{
		svc:    h.svc.CommonConfigs,
		noun:   "common config",
		list:   toCommonConfigResponse,
		detail: toCommonConfigResponse,
		// is_active defaults to on when the body omits it.
		newInput: func() model.CommonConfigInput { return model.CommonConfigInput{IsActive: true} },
		logger:   h.logger,
	}
	configs.register(mux, "/api/v1/common-configs")
	mux.HandleFunc("GET /api/v1/common-configs/active", h.ListActiveConfigs)
	mux.HandleFunc("GET /api/v1/common-configs/by-category/{category}", h.ListConfigsByCategory)
	mux.HandleFunc("GET /api/v1/common-configs/by-key/{key}/resolved", h.ResolveConfig)

	mux.HandleFunc("GET /api/v1/templates", h.ListTemplates)
	mux.HandleFunc("GET /api/v1/templates/categories", h.ListTemplateCategories)
	mux.HandleFunc("POST /api/v1/templates/install", h.InstallTemplate)

	mux.HandleFunc("GET /api/v1/export", h.Export)
	mux.HandleFunc("POST /api/v1/import", h.Import)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// registerProviderRoutes adds the activation routes shared by both provider
// families. Current returns the decrypted token.
func registerProviderRoutes[T, R any](
	mux *http.ServeMux,
	base string,
	svc providerService[T],
	noun string,
	detail func(T) R,
	logger *slog.Logger,
) {
	mux.HandleFunc("POST "+base+"/{id}/enable", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if err := svc.Enable(r.Context(), id); err != nil {
			writeServiceError(w, logger, err, noun, "enable")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST "+base+"/{id}/disable", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if err := svc.Disable(r.Context(), id); err != nil {
			writeServiceError(w, logger, err, noun, "disable")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET "+base+"/current", func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.Current(r.Context())
		if err != nil {
			writeServiceError(w, logger, err, "enabled "+noun, "get current")
			return
		}
		writeJSON(w, http.StatusOK, detail(*p))
	})

	mux.HandleFunc("GET "+base+"/stats", func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.Stats(r.Context())
		if err != nil {
			writeServiceError(w, logger, err, noun, "count")
			return
		}
		writeJSON(w, http.StatusOK, toStatsResponse(stats))
	})
}

// ListGuidesByType returns every guide of the ?type= query parameter.
func (h *Handler) ListGuidesByType(w http.ResponseWriter, r *http.Request) {
	guides, err := h.svc.AgentGuides.ListByType(r.Context(), model.GuideType(r.URL.Query().Get("type")))
	if err != nil {
		writeServiceError(w, h.logger, err, "agent guide", "list")
		return
	}

	writeJSON(w, http.StatusOK, toSliceResponse(guides, toAgentGuideResponse))
}

// PreviewGuide returns a guide rendered to sanitized HTML.
func (h *Handler) PreviewGuide(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	html, err := h.svc.AgentGuides.Preview(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err, "agent guide", "preview")
		return
	}

	writeJSON(w, http.StatusOK, GuidePreviewResponse{ID: id, HTML: html})
}

// ListActiveConfigs returns every active common config.
func (h *Handler) ListActiveConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := h.svc.CommonConfigs.ListActive(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "common config", "list")
		return
	}

	writeJSON(w, http.StatusOK, toSliceResponse(configs, toCommonConfigResponse))
}

// ListConfigsByCategory returns the configs of one category.
func (h *Handler) ListConfigsByCategory(w http.ResponseWriter, r *http.Request) {
	configs, err := h.svc.CommonConfigs.ListByCategory(r.Context(), r.PathValue("category"))
	if err != nil {
		writeServiceError(w, h.logger, err, "common config", "list")
		return
	}

	writeJSON(w, http.StatusOK, toSliceResponse(configs, toCommonConfigResponse))
}

// ResolveConfig returns a config value with environment references expanded.
func (h *Handler) ResolveConfig(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	value, err := h.svc.CommonConfigs.Resolve(r.Context(), key)
	if err != nil {
		writeServiceError(w, h.logger, err, "common config", "resolve")
		return
	}

	writeJSON(w, http.StatusOK, ResolvedConfigResponse{Key: key, Value: value})
}

// ListTemplates returns the built-in templates, filtered by the ai_type,
// platform_type and category query parameters.
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.TemplateFilter{
		AIType:       model.AIType(q.Get("ai_type")),
		PlatformType: model.PlatformType(q.Get("platform_type")),
		Category:     q.Get("category"),
	}

	writeJSON(w, http.StatusOK, toSliceResponse(h.svc.Templates.List(filter), toTemplateResponse))
}

// ListTemplateCategories returns the distinct template categories.
func (h *Handler) ListTemplateCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Templates.Categories())
}

// InstallTemplateRequest selects the template to install.
type InstallTemplateRequest struct {
	Name         string `json:"name"`
	AIType       string `json:"ai_type"`
	PlatformType string `json:"platform_type"`
}

// InstallTemplate registers the MCP servers a template declares.
func (h *Handler) InstallTemplate(w http.ResponseWriter, r *http.Request) {
	var req InstallTemplateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	tmpl, err := h.svc.Templates.Get(req.Name, model.AIType(req.AIType), model.PlatformType(req.PlatformType))
	if err != nil {
		writeServiceError(w, h.logger, err, "template", "get")
		return
	}

	installed, skipped, err := h.svc.MCPServers.InstallTemplate(r.Context(), *tmpl)
	if err != nil {
		writeServiceError(w, h.logger, err, "mcp server", "install template")
		return
	}

	if skipped == nil {
		skipped = []string{}
	}
	writeJSON(w, http.StatusCreated, InstallTemplateResponse{
		Installed: toSliceResponse(installed, toMCPServerResponse),
		Skipped:   skipped,
	})
}

// Export returns the whole store as a transfer document with plaintext
// tokens.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.Transfer.Export(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "export", "build")
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="aimanager-export.json"`)
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, doc)
}

// Import writes a transfer document with plaintext tokens. ?replace=true
// empties every table first.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	var doc model.TransferDocument
	if !decodeBody(w, r, &doc) {
		return
	}

	opts := application.ImportOptions{Replace: r.URL.Query().Get("replace") == "true"}
	report, err := h.svc.Transfer.Import(r.Context(), &doc, opts)
	if err != nil {
		writeServiceError(w, h.logger, err, "import", "run")
		return
	}

	writeJSON(w, http.StatusOK, toReportResponse(report))
}

// Health reports database and key health. A failing component answers 503.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.svc.Health == nil {
		writeJSON(w, http.StatusOK, HealthResponse{
			Status:     string(application.HealthOK),
			Time:       time.Now().UTC().Format(time.RFC3339),
			Components: []ComponentHealthResponse{},
		})
		return
	}

	report := h.svc.Health.Check(r.Context())
	status := http.StatusOK
	if report.Status == application.HealthFailing {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, toHealthResponse(report))
}

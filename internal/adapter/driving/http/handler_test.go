package httphandler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/aimanager/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/aimanager/internal/adapter/driving/http"
	"github.com/ericfisherdev/aimanager/internal/application"
	"github.com/ericfisherdev/aimanager/internal/fernet"
)

const testKey = "Jw4Ff1BWLnSykdfXDVOuEJCG6m9dyST5B1VhU_qg0fI="

// testServer is a mux backed by a real migrated database in a temp dir.
type testServer struct {
	mux http.Handler
	db  *sqlite.DB
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupServer(t *testing.T) *testServer {
	t.Helper()

	db, err := sqlite.NewDB(context.Background(), filepath.Join(t.TempDir(), "aimanager.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.RunMigrations(db.Writer))

	key, err := fernet.ParseKey(testKey)
	require.NoError(t, err)
	cipher := fernet.NewCipher(key)

	logger := discardLogger()
	claude := sqlite.NewClaudeProviderRepo(db, cipher)
	codex := sqlite.NewCodexProviderRepo(db, cipher)
	guides := sqlite.NewAgentGuideRepo(db)
	servers := sqlite.NewMCPServerRepo(db)
	configs := sqlite.NewCommonConfigRepo(db)

	catalog, err := application.NewTemplateCatalog()
	require.NoError(t, err)

	env := map[string]string{"API_HOST": "api.example.com"}
	svc := httphandler.Services{
		ClaudeProviders: application.NewClaudeProviderService(claude, logger),
		CodexProviders:  application.NewCodexProviderService(codex, logger),
		AgentGuides:     application.NewAgentGuideService(guides, logger),
		MCPServers:      application.NewMCPServerService(servers, logger),
		CommonConfigs:   application.NewCommonConfigService(configs, func(k string) string { return env[k] }, logger),
		Templates:       catalog,
		Transfer: application.NewTransferService(application.TransferStores{
			ClaudeProviders: claude,
			CodexProviders:  codex,
			AgentGuides:     guides,
			MCPServers:      servers,
			CommonConfigs:   configs,
		}, cipher, logger),
		Health: application.NewHealthService(db, cipher, key.IsDerived()),
	}

	h := httphandler.NewHandler(svc, logger)
	return &testServer{mux: httphandler.NewServeMux(h, logger), db: db}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, r)
	if r != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	err := json.NewDecoder(rec.Body).Decode(v)
	require.NoError(t, err)
}

func claudeBody(name string) map[string]any {
	return map[string]any{
		"name":  name,
		"url":   "https://api.example.com",
		"token": "sk-" + name,
	}
}

// createClaude posts a provider and returns its id.
func (s *testServer) createClaude(t *testing.T, name string) int64 {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/claude-providers", claudeBody(name))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp map[string]any
	decodeJSON(t, rec, &resp)
	return int64(resp["id"].(float64))
}

// --- Tests ---

func TestCreateClaudeProvider(t *testing.T) {
	srv := setupServer(t)

	rec := srv.do(t, http.MethodPost, "/api/v1/claude-providers", claudeBody("primary"))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]any
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "primary", resp["name"])
	assert.Equal(t, true, resp["auto_update"])
	assert.Equal(t, float64(30000), resp["timeout"])
	assert.Equal(t, "public_welfare", resp["type"])
	assert.Equal(t, false, resp["enabled"])
	assert.NotContains(t, resp, "token")
	assert.NotEmpty(t, resp["created_at"])
}

func TestCreateClaudeProvider_ExplicitAutoUpdateOff(t *testing.T) {
	srv := setupServer(t)

	body := claudeBody("manual")
	body["auto_update"] = false
	rec := srv.do(t, http.MethodPost, "/api/v1/claude-providers", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]any
	decodeJSON(t, rec, &resp)
	assert.Equal(t, false, resp["auto_update"])
}

func TestCreateClaudeProvider_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantError  string
		wantField  string
	}{
		{
			name:       "malformed json",
			body:       `{"name":`,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid request body",
		},
		{
			name:       "missing url",
			body:       map[string]any{"name": "x", "token": "sk"},
			wantStatus: http.StatusBadRequest,
			wantError:  "validation failed",
			wantField:  "url",
		},
		{
			name:       "bad type",
			body:       map[string]any{"name": "x", "url": "https://a.example.com", "token": "sk", "type": "free"},
			wantStatus: http.StatusBadRequest,
			wantError:  "validation failed",
			wantField:  "type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := setupServer(t)
			rec := srv.do(t, http.MethodPost, "/api/v1/claude-providers", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp struct {
				Error  string `json:"error"`
				Fields []struct {
					Field  string `json:"field"`
					Reason string `json:"reason"`
				} `json:"fields"`
			}
			decodeJSON(t, rec, &resp)
			assert.Equal(t, tt.wantError, resp.Error)

			if tt.wantField != "" {
				var names []string
				for _, f := range resp.Fields {
					names = append(names, f.Field)
					assert.NotEmpty(t, f.Reason)
				}
				assert.Contains(t, names, tt.wantField)
			}
		})
	}
}

func TestCreateClaudeProvider_Conflict(t *testing.T) {
	srv := setupServer(t)
	srv.createClaude(t, "dup")

	rec := srv.do(t, http.MethodPost, "/api/v1/claude-providers", claudeBody("dup"))
	assert.Equal(t, http.StatusConflict, rec.Code)

	var resp map[string]string
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "claude provider conflicts with an existing record", resp["error"])
}

func TestCreateClaudeProvider_BodyTooLarge(t *testing.T) {
	srv := setupServer(t)

	body := `{"name":"` + strings.Repeat("a", 5<<20) + `"}`
	rec := srv.do(t, http.MethodPost, "/api/v1/claude-providers", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestGetClaudeProvider(t *testing.T) {
	srv := setupServer(t)
	id := srv.createClaude(t, "primary")

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantError  string
	}{
		{
			name:       "found",
			path:       fmt.Sprintf("/api/v1/claude-providers/%d", id),
			wantStatus: http.StatusOK,
		},
		{
			name:       "not found",
			path:       "/api/v1/claude-providers/999",
			wantStatus: http.StatusNotFound,
			wantError:  "claude provider not found",
		},
		{
			name:       "non-numeric id",
			path:       "/api/v1/claude-providers/abc",
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid id",
		},
		{
			name:       "zero id",
			path:       "/api/v1/claude-providers/0",
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp map[string]any
			decodeJSON(t, rec, &resp)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, resp["error"])
				return
			}
			assert.Equal(t, "sk-primary", resp["token"])
			assert.Equal(t, "primary", resp["name"])
		})
	}
}

func TestListClaudeProviders(t *testing.T) {
	srv := setupServer(t)
	for _, name := range []string{"one", "two", "three"} {
		srv.createClaude(t, name)
	}

	t.Run("first page", func(t *testing.T) {
		rec := srv.do(t, http.MethodGet, "/api/v1/claude-providers?page=1&limit=2", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Items      []map[string]any `json:"items"`
			Total      int64            `json:"total"`
			Page       int              `json:"page"`
			Limit      int              `json:"limit"`
			TotalPages int              `json:"total_pages"`
		}
		decodeJSON(t, rec, &resp)
		assert.Len(t, resp.Items, 2)
		assert.Equal(t, int64(3), resp.Total)
		assert.Equal(t, 1, resp.Page)
		assert.Equal(t, 2, resp.Limit)
		assert.Equal(t, 2, resp.TotalPages)
		for _, item := range resp.Items {
			assert.NotContains(t, item, "token")
		}
	})

	t.Run("empty listing is an empty array", func(t *testing.T) {
		empty := setupServer(t)
		rec := empty.do(t, http.MethodGet, "/api/v1/claude-providers", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]any
		decodeJSON(t, rec, &resp)
		items, ok := resp["items"].([]any)
		require.True(t, ok)
		assert.Empty(t, items)
	})

	t.Run("huge page is empty", func(t *testing.T) {
		rec := srv.do(t, http.MethodGet, "/api/v1/claude-providers?page=461168601842739790&limit=20", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Items []map[string]any `json:"items"`
			Total int64            `json:"total"`
		}
		decodeJSON(t, rec, &resp)
		assert.Empty(t, resp.Items)
		assert.Equal(t, int64(3), resp.Total)
	})

	for _, q := range []string{"page=0", "limit=-1", "page=abc"} {
		t.Run("invalid "+q, func(t *testing.T) {
			rec := srv.do(t, http.MethodGet, "/api/v1/claude-providers?"+q, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSearchClaudeProviders(t *testing.T) {
	srv := setupServer(t)
	srv.createClaude(t, "alpha")
	srv.createClaude(t, "beta")

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantNames  []string
	}{
		{name: "case folded keyword", query: "q=ALPHA", wantStatus: http.StatusOK, wantNames: []string{"alpha"}},
		{name: "any keyword", query: "q=alpha+beta", wantStatus: http.StatusOK, wantNames: []string{"alpha", "beta"}},
		{name: "field restricted", query: "q=example&fields=name", wantStatus: http.StatusOK, wantNames: nil},
		{name: "token field refused", query: "q=sk&fields=token", wantStatus: http.StatusBadRequest},
		{name: "bad limit", query: "q=alpha&limit=x", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, http.MethodGet, "/api/v1/claude-providers/search?"+tt.query, nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp []map[string]any
			decodeJSON(t, rec, &resp)
			var names []string
			for _, p := range resp {
				names = append(names, p["name"].(string))
			}
			assert.ElementsMatch(t, tt.wantNames, names)
		})
	}
}

func TestUpdateAndDeleteClaudeProvider(t *testing.T) {
	srv := setupServer(t)
	id := srv.createClaude(t, "primary")
	srv.createClaude(t, "secondary")
	path := fmt.Sprintf("/api/v1/claude-providers/%d", id)

	rec := srv.do(t, http.MethodPut, path, map[string]any{"timeout": 5000, "token": "sk-rotated"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	decodeJSON(t, rec, &resp)
	assert.Equal(t, float64(5000), resp["timeout"])
	assert.Equal(t, "primary", resp["name"])

	rec = srv.do(t, http.MethodGet, path, nil)
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "sk-rotated", resp["token"])

	rec = srv.do(t, http.MethodPut, path, map[string]any{"name": "secondary"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = srv.do(t, http.MethodPut, "/api/v1/claude-providers/999", map[string]any{"timeout": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = srv.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClaudeProviderActivation(t *testing.T) {
	srv := setupServer(t)
	first := srv.createClaude(t, "first")
	second := srv.createClaude(t, "second")

	rec := srv.do(t, http.MethodGet, "/api/v1/claude-providers/current", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var errResp map[string]string
	decodeJSON(t, rec, &errResp)
	assert.Equal(t, "enabled claude provider not found", errResp["error"])

	rec = srv.do(t, http.MethodPost, fmt.Sprintf("/api/v1/claude-providers/%d/enable", first), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = srv.do(t, http.MethodPost, fmt.Sprintf("/api/v1/claude-providers/%d/enable", second), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/v1/claude-providers/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var current map[string]any
	decodeJSON(t, rec, &current)
	assert.Equal(t, float64(second), current["id"])
	assert.Equal(t, "sk-second", current["token"])

	rec = srv.do(t, http.MethodGet, "/api/v1/claude-providers/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats map[string]float64
	decodeJSON(t, rec, &stats)
	assert.Equal(t, map[string]float64{"total": 2, "active": 1, "inactive": 1, "active_rate": 0.5}, stats)

	rec = srv.do(t, http.MethodPost, fmt.Sprintf("/api/v1/claude-providers/%d/disable", second), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = srv.do(t, http.MethodGet, "/api/v1/claude-providers/current", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/v1/claude-providers/999/enable", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCodexProviderRoutes(t *testing.T) {
	srv := setupServer(t)

	rec := srv.do(t, http.MethodPost, "/api/v1/codex-providers", map[string]any{
		"name":    "codex",
		"url":     "https://codex.example.com",
		"token":   "sk-codex",
		"type":    "paid",
		"enabled": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]any
	decodeJSON(t, rec, &created)
	assert.Equal(t, "paid", created["type"])
	assert.Equal(t, true, created["enabled"])

	rec = srv.do(t, http.MethodGet, "/api/v1/codex-providers/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var current map[string]any
	decodeJSON(t, rec, &current)
	assert.Equal(t, "sk-codex", current["token"])
}

func TestAgentGuideRoutes(t *testing.T) {
	srv := setupServer(t)

	rec := srv.do(t, http.MethodPost, "/api/v1/agent-guides", map[string]any{
		"name": "style",
		"text": "# Rules\n\n<script>alert(1)</script>\n\nUse `gofmt`.",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var guide map[string]any
	decodeJSON(t, rec, &guide)
	assert.Equal(t, "and", guide["type"])
	id := int64(guide["id"].(float64))

	t.Run("preview sanitizes", func(t *testing.T) {
		rec := srv.do(t, http.MethodGet, fmt.Sprintf("/api/v1/agent-guides/%d/preview", id), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]any
		decodeJSON(t, rec, &resp)
		html := resp["html"].(string)
		assert.Contains(t, html, "<h1")
		assert.Contains(t, html, "<code>gofmt</code>")
		assert.NotContains(t, html, "<script>")
	})

	t.Run("preview missing guide", func(t *testing.T) {
		rec := srv.do(t, http.MethodGet, "/api/v1/agent-guides/999/preview", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("by type", func(t *testing.T) {
		rec := srv.do(t, http.MethodGet, "/api/v1/agent-guides/by-type?type=and", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp []map[string]any
		decodeJSON(t, rec, &resp)
		assert.Len(t, resp, 1)

		rec = srv.do(t, http.MethodGet, "/api/v1/agent-guides/by-type?type=only", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		decodeJSON(t, rec, &resp)
		assert.Empty(t, resp)

		rec = srv.do(t, http.MethodGet, "/api/v1/agent-guides/by-type?type=other", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestMCPServerRoutes(t *testing.T) {
	srv := setupServer(t)

	rec := srv.do(t, http.MethodPost, "/api/v1/mcp-servers", map[string]any{
		"name":    "fetch",
		"command": "uvx",
		"args":    []string{"mcp-server-fetch"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]any
	decodeJSON(t, rec, &resp)
	assert.Equal(t, float64(30000), resp["timeout"])
	assert.Equal(t, []any{"mcp-server-fetch"}, resp["args"])
	env, ok := resp["env"].(map[string]any)
	require.True(t, ok, "env renders as an object")
	assert.Empty(t, env)

	rec = srv.do(t, http.MethodPost, "/api/v1/mcp-servers", map[string]any{"name": "fetch", "command": "npx"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCommonConfigRoutes(t *testing.T) {
	srv := setupServer(t)

	rec := srv.do(t, http.MethodPost, "/api/v1/common-configs", map[string]any{
		"key":      "base_url",
		"value":    "https://${API_HOST}/v1",
		"category": "network",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]any
	decodeJSON(t, rec, &created)
	assert.Equal(t, true, created["is_active"])

	rec = srv.do(t, http.MethodPost, "/api/v1/common-configs", map[string]any{
		"key":       "retired",
		"value":     "x",
		"category":  "network",
		"is_active": false,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("active", func(t *testing.T) {
		rec := srv.do(t, http.MethodGet, "/api/v1/common-configs/active", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp []map[string]any
		decodeJSON(t, rec, &resp)
		require.Len(t, resp, 1)
		assert.Equal(t, "base_url", resp[0]["key"])
	})

	t.Run("by category", func(t *testing.T) {
		rec := srv.do(t, http.MethodGet, "/api/v1/common-configs/by-category/network", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp []map[string]any
		decodeJSON(t, rec, &resp)
		assert.Len(t, resp, 2)
	})

	t.Run("resolved", func(t *testing.T) {
		rec := srv.do(t, http.MethodGet, "/api/v1/common-configs/by-key/base_url/resolved", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]string
		decodeJSON(t, rec, &resp)
		assert.Equal(t, map[string]string{"key": "base_url", "value": "https://api.example.com/v1"}, resp)
	})

	t.Run("resolved missing key", func(t *testing.T) {
		rec := srv.do(t, http.MethodGet, "/api/v1/common-configs/by-key/nope/resolved", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestTemplateRoutes(t *testing.T) {
	srv := setupServer(t)

	t.Run("filtered list", func(t *testing.T) {
		rec := srv.do(t, http.MethodGet, "/api/v1/templates?ai_type=codex&platform_type=unix", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp []map[string]any
		decodeJSON(t, rec, &resp)
		require.NotEmpty(t, resp)
		for _, tmpl := range resp {
			assert.Equal(t, "codex", tmpl["ai_type"])
			assert.Equal(t, "unix", tmpl["platform_type"])
		}
	})

	t.Run("categories", func(t *testing.T) {
		rec := srv.do(t, http.MethodGet, "/api/v1/templates/categories", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp []string
		decodeJSON(t, rec, &resp)
		assert.Contains(t, resp, "documentation")
	})

	t.Run("install then skip", func(t *testing.T) {
		body := map[string]any{"name": "context7", "ai_type": "claude", "platform_type": "unix"}

		rec := srv.do(t, http.MethodPost, "/api/v1/templates/install", body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var resp struct {
			Installed []map[string]any `json:"installed"`
			Skipped   []string         `json:"skipped"`
		}
		decodeJSON(t, rec, &resp)
		require.Len(t, resp.Installed, 1)
		assert.Empty(t, resp.Skipped)

		rec = srv.do(t, http.MethodPost, "/api/v1/templates/install", body)
		require.Equal(t, http.StatusCreated, rec.Code)
		decodeJSON(t, rec, &resp)
		assert.Empty(t, resp.Installed)
		assert.Len(t, resp.Skipped, 1)
	})

	t.Run("unknown template", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/api/v1/templates/install",
			map[string]any{"name": "nope", "ai_type": "claude", "platform_type": "unix"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestExportImport(t *testing.T) {
	src := setupServer(t)
	src.createClaude(t, "primary")

	rec := src.do(t, http.MethodGet, "/api/v1/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	exported := rec.Body.String()
	assert.Contains(t, exported, `"token":"sk-primary"`)

	dst := setupServer(t)
	rec = dst.do(t, http.MethodPost, "/api/v1/import", exported)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report struct {
		Attempted int `json:"attempted"`
		Migrated  int `json:"migrated"`
		Failed    int `json:"failed"`
	}
	decodeJSON(t, rec, &report)
	assert.Equal(t, 1, report.Attempted)
	assert.Equal(t, 1, report.Migrated)
	assert.Equal(t, 0, report.Failed)

	rec = dst.do(t, http.MethodGet, "/api/v1/claude-providers/search?q=primary", nil)
	var found []map[string]any
	decodeJSON(t, rec, &found)
	assert.Len(t, found, 1)

	t.Run("replace", func(t *testing.T) {
		rec := dst.do(t, http.MethodPost, "/api/v1/import?replace=true", exported)
		require.Equal(t, http.StatusOK, rec.Code)
		decodeJSON(t, rec, &report)
		assert.Equal(t, 1, report.Migrated)
	})

	t.Run("unsupported version", func(t *testing.T) {
		rec := dst.do(t, http.MethodPost, "/api/v1/import", map[string]any{"version": "9.0.0"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		srv := setupServer(t)
		rec := srv.do(t, http.MethodGet, "/api/v1/health", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Status     string `json:"status"`
			Time       string `json:"time"`
			Components []struct {
				Name   string `json:"name"`
				Status string `json:"status"`
			} `json:"components"`
		}
		decodeJSON(t, rec, &resp)
		assert.Equal(t, "ok", resp.Status)
		assert.NotEmpty(t, resp.Time)
		assert.Len(t, resp.Components, 2)
	})

	t.Run("closed database", func(t *testing.T) {
		srv := setupServer(t)
		require.NoError(t, srv.db.Close())

		rec := srv.do(t, http.MethodGet, "/api/v1/health", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var resp map[string]any
		decodeJSON(t, rec, &resp)
		assert.Equal(t, "failing", resp["status"])
	})

	t.Run("no health service", func(t *testing.T) {
		h := httphandler.NewHandler(httphandler.Services{}, discardLogger())
		mux := httphandler.NewServeMux(h, discardLogger())

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]any
		decodeJSON(t, rec, &resp)
		assert.Equal(t, "ok", resp["status"])
	})
}

func TestRequestIDHeader(t *testing.T) {
	srv := setupServer(t)

	rec := srv.do(t, http.MethodGet, "/api/v1/health", nil)
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	srv.mux.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("x", 65))
	rec = httptest.NewRecorder()
	srv.mux.ServeHTTP(rec, req)
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)
}

func TestNilServicePanicIsRecovered(t *testing.T) {
	// Every service is nil, so the first dereference panics inside the handler.
	h := httphandler.NewHandler(httphandler.Services{}, discardLogger())
	mux := httphandler.NewServeMux(h, discardLogger())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/templates", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp map[string]string
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "internal server error", resp["error"])
}

package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/aimanager/internal/domain/model"
	"github.com/ericfisherdev/aimanager/internal/domain/port/driven"
	"github.com/ericfisherdev/aimanager/internal/fernet"
)

// TransferStores are the stores a TransferService reads and writes.
type TransferStores struct {
	ClaudeProviders driven.ClaudeProviderStore
	CodexProviders  driven.CodexProviderStore
	AgentGuides     driven.AgentGuideStore
	MCPServers      driven.MCPServerStore
	CommonConfigs   driven.CommonConfigStore
}

// ImportOptions controls TransferService.Import.
type ImportOptions struct {
	// SourceKey, when set, means provider tokens in the document are sealed
	// under this key. Otherwise they are plaintext.
	SourceKey *fernet.Key

	// Replace empties every table before importing.
	Replace bool
}

// TransferService moves the whole store to and from a TransferDocument.
type TransferService struct {
	stores TransferStores
	cipher driven.SecretCipher
	logger *slog.Logger
	now    func() time.Time
}

// NewTransferService creates a TransferService. cipher is the key the
// stores seal tokens with.
func NewTransferService(stores TransferStores, cipher driven.SecretCipher, logger *slog.Logger) *TransferService {
	return &TransferService{stores: stores, cipher: cipher, logger: logger, now: time.Now}
}

// supportedTransferVersion reports whether a document of version v can be
// imported. Major versions 1 and 2 share the record layout.
func supportedTransferVersion(v string) bool {
	major, _, _ := strings.Cut(strings.TrimPrefix(v, "v"), ".")
	return major == "1" || major == "2"
}

// Import writes every record of doc, best-effort: a record that fails is
// counted in the report and the rest continue. Missing provider fields get
// the same defaults as Create.
func (s *TransferService) Import(ctx context.Context, doc *model.TransferDocument, opts ImportOptions) (*model.MigrationReport, error) {
	if !supportedTransferVersion(doc.Version) {
		return nil, driven.NewValidationError("version", "unsupported transfer document version")
	}

	open := func(token string) (string, error) { return token, nil }
	if opts.SourceKey != nil {
		open = fernet.NewCipher(opts.SourceKey).DecryptString
	}

	if opts.Replace {
		if err := s.truncateAll(ctx); err != nil {
			return nil, err
		}
	}

	report := &model.MigrationReport{RunID: uuid.NewString(), StartedAt: s.now().UTC()}
	log := s.logger.With("run_id", report.RunID)

	steps := []func() error{
		func() error {
			return importRows(ctx, log, report.Entity(model.EntityClaudeProviders), doc.ClaudeProviders, claudeRecordKey,
				func(r model.TransferClaudeProvider) error { return s.importClaude(ctx, r, open) })
		},
		func() error {
			return importRows(ctx, log, report.Entity(model.EntityCodexProviders), doc.CodexProviders, codexRecordKey,
				func(r model.TransferCodexProvider) error { return s.importCodex(ctx, r, open) })
		},
		func() error {
			return importRows(ctx, log, report.Entity(model.EntityAgentGuides), doc.AgentGuides, guideRecordKey,
				func(r model.TransferAgentGuide) error { return s.importGuide(ctx, r) })
		},
		func() error {
			return importRows(ctx, log, report.Entity(model.EntityMCPServers), doc.MCPServers, mcpRecordKey,
				func(r model.TransferMCPServer) error { return s.importMCPServer(ctx, r) })
		},
		func() error {
			return importRows(ctx, log, report.Entity(model.EntityCommonConfigs), doc.CommonConfigs, configRecordKey,
				func(r model.TransferCommonConfig) error { return s.importConfig(ctx, r) })
		},
	}

	for _, step := range steps {
		if err := step(); err != nil {
			report.FinishedAt = s.now().UTC()
			return report, err
		}
	}
	report.FinishedAt = s.now().UTC()

	attempted, migrated, failed := report.Totals()
	log.Info("import finished", "version", doc.Version, "replace", opts.Replace,
		"attempted", attempted, "migrated", migrated, "failed", failed)
	return report, nil
}

func (s *TransferService) truncateAll(ctx context.Context) error {
	truncate := []struct {
		entity model.EntityType
		store  interface{ Truncate(context.Context) error }
	}{
		{model.EntityClaudeProviders, s.stores.ClaudeProviders},
		{model.EntityCodexProviders, s.stores.CodexProviders},
		{model.EntityAgentGuides, s.stores.AgentGuides},
		{model.EntityMCPServers, s.stores.MCPServers},
		{model.EntityCommonConfigs, s.stores.CommonConfigs},
	}
	for _, t := range truncate {
		if err := t.store.Truncate(ctx); err != nil {
			return fmt.Errorf("clear %s: %w", t.entity, err)
		}
	}
	s.logger.Warn("import replaced existing data")
	return nil
}

// importRows feeds each record to insert and counts the outcome. Only
// cancellation stops it early.
func importRows[R any](
	ctx context.Context,
	log *slog.Logger,
	stats *model.EntityStats,
	rows []R,
	key func(int, R) string,
	insert func(R) error,
) error {
	for i, r := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := insert(r); err != nil {
			stats.RecordFailure(key(i, r), failureCause(err))
			log.Warn("record not imported", "entity", stats.Entity, "record", key(i, r), "error", err)
			continue
		}
		stats.RecordSuccess()
	}
	return nil
}

func (s *TransferService) importClaude(ctx context.Context, r model.TransferClaudeProvider, open func(string) (string, error)) error {
	plain, err := open(r.Token)
	if err != nil {
		return fmt.Errorf("open token: %w", err)
	}

	in := model.ClaudeProviderInput{
		Name:        r.Name,
		URL:         r.URL,
		Token:       plain,
		Timeout:     deref(r.Timeout, model.DefaultProviderTimeout),
		AutoUpdate:  deref(r.AutoUpdate, 1) != 0,
		Type:        model.ProviderType(deref(r.Type, string(model.DefaultProviderType))),
		Enabled:     deref(r.Enabled, 0) != 0,
		OpusModel:   deref(r.OpusModel, ""),
		SonnetModel: deref(r.SonnetModel, ""),
		HaikuModel:  deref(r.HaikuModel, ""),
	}
	if err := validateInput(in); err != nil {
		return err
	}

	token, err := s.cipher.EncryptString(plain)
	if err != nil {
		return fmt.Errorf("seal token: %w", err)
	}

	_, err = s.stores.ClaudeProviders.InsertSealed(ctx, model.ClaudeProvider{
		Name:        in.Name,
		URL:         in.URL,
		Token:       token,
		Timeout:     in.Timeout,
		AutoUpdate:  in.AutoUpdate,
		Type:        in.Type,
		Enabled:     in.Enabled,
		OpusModel:   in.OpusModel,
		SonnetModel: in.SonnetModel,
		HaikuModel:  in.HaikuModel,
		CreatedAt:   parseTransferTime(r.CreatedAt),
		UpdatedAt:   parseTransferTime(r.UpdatedAt),
	})
	return err
}

func (s *TransferService) importCodex(ctx context.Context, r model.TransferCodexProvider, open func(string) (string, error)) error {
	plain, err := open(r.Token)
	if err != nil {
		return fmt.Errorf("open token: %w", err)
	}

	in := model.CodexProviderInput{
		Name:    r.Name,
		URL:     r.URL,
		Token:   plain,
		Type:    model.ProviderType(deref(r.Type, string(model.DefaultProviderType))),
		Enabled: deref(r.Enabled, 0) != 0,
	}
	if err := validateInput(in); err != nil {
		return err
	}

	token, err := s.cipher.EncryptString(plain)
	if err != nil {
		return fmt.Errorf("seal token: %w", err)
	}

	_, err = s.stores.CodexProviders.InsertSealed(ctx, model.CodexProvider{
		Name:      in.Name,
		URL:       in.URL,
		Token:     token,
		Type:      in.Type,
		Enabled:   in.Enabled,
		CreatedAt: parseTransferTime(r.CreatedAt),
		UpdatedAt: parseTransferTime(r.UpdatedAt),
	})
	return err
}

func (s *TransferService) importGuide(ctx context.Context, r model.TransferAgentGuide) error {
	in := model.AgentGuideInput{
		Name: r.Name,
		Type: model.GuideType(deref(r.Type, string(model.GuideTypeAnd))),
		Text: r.Text,
	}
	if err := validateInput(in); err != nil {
		return err
	}

	_, err := s.stores.AgentGuides.InsertSealed(ctx, model.AgentGuide{
		Name:      in.Name,
		Type:      in.Type,
		Text:      in.Text,
		CreatedAt: parseTransferTime(r.CreatedAt),
		UpdatedAt: parseTransferTime(r.UpdatedAt),
	})
	return err
}

func (s *TransferService) importMCPServer(ctx context.Context, r model.TransferMCPServer) error {
	in := model.MCPServerInput{
		Name:    r.Name,
		Type:    model.MCPServerType(deref(r.Type, "")),
		Timeout: deref(r.Timeout, model.DefaultMCPTimeout),
		Command: r.Command,
		Args:    r.Args,
		Env:     r.Env,
	}
	if err := validateInput(in); err != nil {
		return err
	}

	_, err := s.stores.MCPServers.InsertSealed(ctx, model.MCPServer{
		Name:      in.Name,
		Type:      in.Type,
		Timeout:   in.Timeout,
		Command:   in.Command,
		Args:      in.Args,
		Env:       in.Env,
		CreatedAt: parseTransferTime(r.CreatedAt),
		UpdatedAt: parseTransferTime(r.UpdatedAt),
	})
	return err
}

func (s *TransferService) importConfig(ctx context.Context, r model.TransferCommonConfig) error {
	in := model.CommonConfigInput{
		Key:         r.Key,
		Value:       r.Value,
		Description: deref(r.Description, ""),
		Category:    deref(r.Category, model.DefaultConfigCategory),
		IsActive:    deref(r.IsActive, 1) != 0,
	}
	if err := validateInput(in); err != nil {
		return err
	}

	_, err := s.stores.CommonConfigs.InsertSealed(ctx, model.CommonConfig{
		Key:         in.Key,
		Value:       in.Value,
		Description: in.Description,
		Category:    in.Category,
		IsActive:    in.IsActive,
		CreatedAt:   parseTransferTime(r.CreatedAt),
		UpdatedAt:   parseTransferTime(r.UpdatedAt),
	})
	return err
}

// Export reads every table into a TransferDocument with plaintext tokens.
// A token that cannot be opened aborts the export.
func (s *TransferService) Export(ctx context.Context) (*model.TransferDocument, error) {
	doc := &model.TransferDocument{
		Version:         model.TransferVersion,
		ExportedAt:      s.now().UTC().Format(time.RFC3339),
		ClaudeProviders: []model.TransferClaudeProvider{},
		CodexProviders:  []model.TransferCodexProvider{},
		AgentGuides:     []model.TransferAgentGuide{},
		MCPServers:      []model.TransferMCPServer{},
		CommonConfigs:   []model.TransferCommonConfig{},
	}

	err := walkSealed(ctx, driven.SealedStore[model.ClaudeProvider](s.stores.ClaudeProviders), DefaultBatchSize, func(p model.ClaudeProvider) error {
		token, err := s.cipher.DecryptString(p.Token)
		if err != nil {
			return fmt.Errorf("open token of claude provider %s: %w", p.RecordKey(), err)
		}
		doc.ClaudeProviders = append(doc.ClaudeProviders, model.TransferClaudeProvider{
			ID:          &p.ID,
			Name:        p.Name,
			URL:         p.URL,
			Token:       token,
			Timeout:     &p.Timeout,
			AutoUpdate:  flag(p.AutoUpdate),
			Type:        optional(string(p.Type)),
			Enabled:     flag(p.Enabled),
			OpusModel:   optional(p.OpusModel),
			SonnetModel: optional(p.SonnetModel),
			HaikuModel:  optional(p.HaikuModel),
			CreatedAt:   stamp(p.CreatedAt),
			UpdatedAt:   stamp(p.UpdatedAt),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("export claude providers: %w", err)
	}

	err = walkSealed(ctx, driven.SealedStore[model.CodexProvider](s.stores.CodexProviders), DefaultBatchSize, func(p model.CodexProvider) error {
		token, err := s.cipher.DecryptString(p.Token)
		if err != nil {
			return fmt.Errorf("open token of codex provider %s: %w", p.RecordKey(), err)
		}
		doc.CodexProviders = append(doc.CodexProviders, model.TransferCodexProvider{
			ID:        &p.ID,
			Name:      p.Name,
			URL:       p.URL,
			Token:     token,
			Type:      optional(string(p.Type)),
			Enabled:   flag(p.Enabled),
			CreatedAt: stamp(p.CreatedAt),
			UpdatedAt: stamp(p.UpdatedAt),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("export codex providers: %w", err)
	}

	err = walkSealed(ctx, driven.SealedStore[model.AgentGuide](s.stores.AgentGuides), DefaultBatchSize, func(g model.AgentGuide) error {
		doc.AgentGuides = append(doc.AgentGuides, model.TransferAgentGuide{
			ID:        &g.ID,
			Name:      g.Name,
			Type:      optional(string(g.Type)),
			Text:      g.Text,
			CreatedAt: stamp(g.CreatedAt),
			UpdatedAt: stamp(g.UpdatedAt),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("export agent guides: %w", err)
	}

	err = walkSealed(ctx, driven.SealedStore[model.MCPServer](s.stores.MCPServers), DefaultBatchSize, func(m model.MCPServer) error {
		args := m.Args
		if args == nil {
			args = []string{}
		}
		doc.MCPServers = append(doc.MCPServers, model.TransferMCPServer{
			ID:        &m.ID,
			Name:      m.Name,
			Type:      optional(string(m.Type)),
			Timeout:   &m.Timeout,
			Command:   m.Command,
			Args:      args,
			Env:       m.Env,
			CreatedAt: stamp(m.CreatedAt),
			UpdatedAt: stamp(m.UpdatedAt),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("export mcp servers: %w", err)
	}

	err = walkSealed(ctx, driven.SealedStore[model.CommonConfig](s.stores.CommonConfigs), DefaultBatchSize, func(c model.CommonConfig) error {
		doc.CommonConfigs = append(doc.CommonConfigs, model.TransferCommonConfig{
			ID:          &c.ID,
			Key:         c.Key,
			Value:       c.Value,
			Description: optional(c.Description),
			Category:    optional(c.Category),
			IsActive:    flag(c.IsActive),
			CreatedAt:   stamp(c.CreatedAt),
			UpdatedAt:   stamp(c.UpdatedAt),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("export common configs: %w", err)
	}

	s.logger.Info("export finished",
		"claude_providers", len(doc.ClaudeProviders),
		"codex_providers", len(doc.CodexProviders),
		"agent_guides", len(doc.AgentGuides),
		"mcp_servers", len(doc.MCPServers),
		"common_configs", len(doc.CommonConfigs),
	)
	return doc, nil
}

func claudeRecordKey(i int, r model.TransferClaudeProvider) string {
	return transferKey(i, r.ID, "name", r.Name)
}

func codexRecordKey(i int, r model.TransferCodexProvider) string {
	return transferKey(i, r.ID, "name", r.Name)
}

func guideRecordKey(i int, r model.TransferAgentGuide) string {
	return transferKey(i, r.ID, "name", r.Name)
}

func mcpRecordKey(i int, r model.TransferMCPServer) string {
	return transferKey(i, r.ID, "name", r.Name)
}

func configRecordKey(i int, r model.TransferCommonConfig) string {
	return transferKey(i, r.ID, "key", r.Key)
}

// transferKey identifies a document record by its source id when present,
// else by its position.
func transferKey(i int, id *int64, label, name string) string {
	if id != nil {
		return fmt.Sprintf("id=%d %s=%s", *id, label, name)
	}
	return fmt.Sprintf("index=%d %s=%s", i, label, name)
}

func deref[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func flag(b bool) *int64 {
	var v int64
	if b {
		v = 1
	}
	return &v
}

func stamp(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

// parseTransferTime accepts the timestamp layouts written by SQLite and by
// other exporters. Unparseable or missing values yield the zero time, which
// the store replaces with the import time.
func parseTransferTime(s *string) time.Time {
	if s == nil {
		return time.Time{}
	}

	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, *s); err == nil {
			return t
		}
	}
	return time.Time{}
}

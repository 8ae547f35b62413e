package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	sqliteadapter "github.com/ericfisherdev/aimanager/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/aimanager/internal/adapter/driving/http"
	"github.com/ericfisherdev/aimanager/internal/application"
	"github.com/ericfisherdev/aimanager/internal/config"
	"github.com/ericfisherdev/aimanager/internal/domain/model"
	"github.com/ericfisherdev/aimanager/internal/fernet"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)
	logger.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"log_level", cfg.LogLevel,
		"token_ttl", cfg.TokenTTL,
	)
	if cfg.SecretKey.IsDerived() {
		logger.Warn("AIMANAGER_SECRET_KEY is a passphrase, not a generated key; run aimanagerctl keygen for a stronger one")
	}

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()
	logger.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	version, _, err := sqliteadapter.SchemaVersion(db.Writer)
	if err != nil {
		return err
	}
	logger.Info("migrations complete", "schema_version", version)

	// 5. Build the cipher and check it can round-trip before serving.
	cipher := fernet.NewCipher(cfg.SecretKey, fernet.WithTTL(cfg.TokenTTL))
	if err := cipher.Validate(); err != nil {
		return err
	}

	// 6. Wire adapters.
	claudeStore := sqliteadapter.NewClaudeProviderRepo(db, cipher)
	codexStore := sqliteadapter.NewCodexProviderRepo(db, cipher)
	guideStore := sqliteadapter.NewAgentGuideRepo(db)
	mcpStore := sqliteadapter.NewMCPServerRepo(db)
	configStore := sqliteadapter.NewCommonConfigRepo(db)

	// 7. Create application services.
	catalog, err := application.NewTemplateCatalog()
	if err != nil {
		return err
	}

	services := httphandler.Services{
		ClaudeProviders: application.NewClaudeProviderService(claudeStore, logger),
		CodexProviders:  application.NewCodexProviderService(codexStore, logger),
		AgentGuides:     application.NewAgentGuideService(guideStore, logger),
		MCPServers:      application.NewMCPServerService(mcpStore, logger),
		CommonConfigs:   application.NewCommonConfigService(configStore, nil, logger),
		Templates:       catalog,
		Transfer: application.NewTransferService(application.TransferStores{
			ClaudeProviders: claudeStore,
			CodexProviders:  codexStore,
			AgentGuides:     guideStore,
			MCPServers:      mcpStore,
			CommonConfigs:   configStore,
		}, cipher, logger),
		Health: application.NewHealthService(db, cipher, cfg.SecretKey.IsDerived()),
	}

	// 8. Create HTTP handler with middleware applied.
	handler := httphandler.NewServeMux(httphandler.NewHandler(services, logger), logger)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	logger.Info("aimanager started", "listen_addr", cfg.ListenAddr, "templates", len(catalog.List(model.TemplateFilter{})))

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	logger.Info("shutting down")

	// 10. Graceful shutdown with 10s timeout to drain in-flight requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// Command aimanagerctl is the operator tool for an aimanager database: key
// generation, key rotation, import/export and key checks.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	sqliteadapter "github.com/ericfisherdev/aimanager/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/aimanager/internal/application"
	"github.com/ericfisherdev/aimanager/internal/config"
	"github.com/ericfisherdev/aimanager/internal/domain/model"
	"github.com/ericfisherdev/aimanager/internal/fernet"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "aimanagerctl",
		Short: "Operate an aimanager database",
		Long: `aimanagerctl manages the encryption key and the data of an aimanager database.

Configuration is read from the same AIMANAGER_* environment variables as the
server (AIMANAGER_DB_PATH, AIMANAGER_SECRET_KEY, AIMANAGER_OLD_SECRET_KEY, ...),
including an optional .env file.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newKeygenCmd(),
		newRekeyCmd(),
		newImportCmd(),
		newExportCmd(),
		newCheckKeyCmd(),
	)
	return root
}

// env is what every data command needs: configuration, a logger on stderr
// and the cipher for AIMANAGER_SECRET_KEY.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	cipher *fernet.Cipher
}

func loadEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := cfg.NewLogger(cmd.ErrOrStderr())
	if cfg.SecretKey.IsDerived() {
		logger.Warn("AIMANAGER_SECRET_KEY is a passphrase, not a generated key")
	}
	return &env{
		cfg:    cfg,
		logger: logger,
		cipher: fernet.NewCipher(cfg.SecretKey, fernet.WithTTL(cfg.TokenTTL)),
	}, nil
}

// openDB opens path and brings its schema up to date.
func openDB(ctx context.Context, path string) (*sqliteadapter.DB, error) {
	db, err := sqliteadapter.NewDB(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// stores binds every repository of db to cipher.
type stores struct {
	claude  *sqliteadapter.ClaudeProviderRepo
	codex   *sqliteadapter.CodexProviderRepo
	guides  *sqliteadapter.AgentGuideRepo
	servers *sqliteadapter.MCPServerRepo
	configs *sqliteadapter.CommonConfigRepo
}

func newStores(db *sqliteadapter.DB, cipher *fernet.Cipher) stores {
	return stores{
		claude:  sqliteadapter.NewClaudeProviderRepo(db, cipher),
		codex:   sqliteadapter.NewCodexProviderRepo(db, cipher),
		guides:  sqliteadapter.NewAgentGuideRepo(db),
		servers: sqliteadapter.NewMCPServerRepo(db),
		configs: sqliteadapter.NewCommonConfigRepo(db),
	}
}

func (s stores) migration() application.MigrationStores {
	return application.MigrationStores{
		ClaudeProviders: s.claude,
		CodexProviders:  s.codex,
		AgentGuides:     s.guides,
		MCPServers:      s.servers,
		CommonConfigs:   s.configs,
	}
}

func (s stores) transfer() application.TransferStores {
	return application.TransferStores{
		ClaudeProviders: s.claude,
		CodexProviders:  s.codex,
		AgentGuides:     s.guides,
		MCPServers:      s.servers,
		CommonConfigs:   s.configs,
	}
}

func closeDB(logger *slog.Logger, db *sqliteadapter.DB) {
	if err := db.Close(); err != nil {
		logger.Error("error closing database", "error", err, "path", db.Path())
	}
}

// printReport writes a human-readable summary of a migration report.
func printReport(w io.Writer, report *model.MigrationReport) {
	attempted, migrated, failed := report.Totals()
	mode := ""
	if report.DryRun {
		mode = " (dry run)"
	}
	fmt.Fprintf(w, "run %s%s: attempted=%d migrated=%d failed=%d\n", report.RunID, mode, attempted, migrated, failed)

	for _, s := range report.Entities {
		fmt.Fprintf(w, "  %-16s attempted=%d migrated=%d failed=%d\n", s.Entity, s.Attempted, s.Migrated, s.Failed)
		for _, re := range s.Errors {
			fmt.Fprintf(w, "    %s: %s\n", re.Key, re.Cause)
		}
		if s.ErrorsDropped > 0 {
			fmt.Fprintf(w, "    ... %d more\n", s.ErrorsDropped)
		}
	}
}

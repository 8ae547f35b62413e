package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/aimanager/internal/application"
	"github.com/ericfisherdev/aimanager/internal/domain/model"
	"github.com/ericfisherdev/aimanager/internal/fernet"
)

func newImportCmd() *cobra.Command {
	var (
		sourceKey string
		replace   bool
	)

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a transfer document into the database",
		Long: `Reads a JSON transfer document and writes every record into AIMANAGER_DB_PATH.
Provider tokens in the document are plaintext unless --source-key names the
key they are sealed with. Records that fail are reported and the rest continue.

Examples:
  # Merge an export into the current database
  aimanagerctl import backup.json

  # Replace the whole database with a document sealed under another key
  aimanagerctl import backup.json --replace --source-key "$OLD_KEY"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			var doc model.TransferDocument
			if err := json.Unmarshal(raw, &doc); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			opts := application.ImportOptions{Replace: replace}
			if sourceKey != "" {
				key, err := fernet.ParseKey(sourceKey)
				if err != nil {
					return fmt.Errorf("--source-key: %w", err)
				}
				opts.SourceKey = key
			}

			ctx := cmd.Context()
			db, err := openDB(ctx, e.cfg.DBPath)
			if err != nil {
				return err
			}
			defer closeDB(e.logger, db)

			svc := application.NewTransferService(newStores(db, e.cipher).transfer(), e.cipher, e.logger)
			report, err := svc.Import(ctx, &doc, opts)
			if err != nil {
				return err
			}

			printReport(cmd.OutOrStdout(), report)
			return application.CheckReport(report)
		},
	}

	cmd.Flags().StringVar(&sourceKey, "source-key", "", "key the document's tokens are sealed with")
	cmd.Flags().BoolVar(&replace, "replace", false, "empty every table before importing")
	return cmd
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [FILE]",
		Short: "Export the database as a transfer document",
		Long: `Writes every record of AIMANAGER_DB_PATH as a JSON transfer document with
plaintext provider tokens, to FILE or to stdout. The file is created with
mode 0600.

Examples:
  aimanagerctl export backup.json
  aimanagerctl export | jq .claude_providers`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			db, err := openDB(ctx, e.cfg.DBPath)
			if err != nil {
				return err
			}
			defer closeDB(e.logger, db)

			svc := application.NewTransferService(newStores(db, e.cipher).transfer(), e.cipher, e.logger)
			doc, err := svc.Export(ctx)
			if err != nil {
				return err
			}

			if len(args) == 0 {
				return writeDocument(cmd.OutOrStdout(), doc)
			}

			f, err := os.OpenFile(args[0], os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
			if err != nil {
				return err
			}
			if err := writeDocument(f, doc); err != nil {
				_ = f.Close()
				return err
			}
			return f.Close()
		},
	}
}

func writeDocument(w io.Writer, doc *model.TransferDocument) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

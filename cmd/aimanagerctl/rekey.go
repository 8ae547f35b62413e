package main

import (
	"errors"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/aimanager/internal/application"
	"github.com/ericfisherdev/aimanager/internal/fernet"
)

func newRekeyCmd() *cobra.Command {
	var (
		fromDB string
		toDB   string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "rekey",
		Short: "Copy a database, re-sealing provider tokens under a new key",
		Long: `Copies every table from --from-db to --to-db. Provider tokens are opened
with AIMANAGER_OLD_SECRET_KEY and sealed again with AIMANAGER_SECRET_KEY;
everything else is copied unchanged. Rows that fail are reported and the
rest continue. The source database is never written.

Examples:
  # Check that every token opens with the old key
  aimanagerctl rekey --from-db aimanager.db --dry-run

  # Rotate into a fresh database
  aimanagerctl rekey --from-db aimanager.db --to-db aimanager-new.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			if e.cfg.OldSecretKey == nil {
				return errors.New("AIMANAGER_OLD_SECRET_KEY is required for rekey")
			}
			if fromDB == "" {
				fromDB = e.cfg.DBPath
			}
			if !dryRun {
				if toDB == "" {
					return errors.New("--to-db is required unless --dry-run is set")
				}
				if samePath(fromDB, toDB) {
					return errors.New("--to-db must differ from --from-db")
				}
			}

			ctx := cmd.Context()
			src, err := openDB(ctx, fromDB)
			if err != nil {
				return err
			}
			defer closeDB(e.logger, src)

			from := fernet.NewCipher(e.cfg.OldSecretKey)
			srcStores := newStores(src, from).migration()

			var dstStores application.MigrationStores
			if !dryRun {
				dst, err := openDB(ctx, toDB)
				if err != nil {
					return err
				}
				defer closeDB(e.logger, dst)
				dstStores = newStores(dst, e.cipher).migration()
			}

			migrator := application.NewReKeyMigrator(from, e.cipher, e.logger)
			report, err := migrator.Run(ctx, srcStores, dstStores, dryRun)
			if err != nil {
				return err
			}

			printReport(cmd.OutOrStdout(), report)
			return application.CheckReport(report)
		},
	}

	cmd.Flags().StringVar(&fromDB, "from-db", "", "source database (default AIMANAGER_DB_PATH)")
	cmd.Flags().StringVar(&toDB, "to-db", "", "destination database, created when missing")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "open and re-seal every token without writing anything")
	return cmd
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

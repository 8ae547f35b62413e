package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/aimanager/internal/application"
)

func newCheckKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-key",
		Short: "Verify that AIMANAGER_SECRET_KEY opens every stored token",
		Long: `Opens every Claude and Codex provider token in AIMANAGER_DB_PATH with
AIMANAGER_SECRET_KEY. Exits non-zero and names the first record whose token
does not open.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			if err := e.cipher.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			db, err := openDB(ctx, e.cfg.DBPath)
			if err != nil {
				return err
			}
			defer closeDB(e.logger, db)

			checked, err := application.VerifyTokens(ctx, e.cipher, newStores(db, e.cipher).migration())
			if err != nil {
				return fmt.Errorf("key check failed after %d tokens: %w", checked, err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "ok: %d tokens open with the configured key\n", checked)
			return err
		},
	}
}

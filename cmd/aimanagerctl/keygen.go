package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/aimanager/internal/fernet"
)

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Print a new random secret key",
		Long: `Prints a freshly generated 32-byte key in canonical URL-safe base64.

Examples:
  # Generate a key for AIMANAGER_SECRET_KEY
  aimanagerctl keygen`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := fernet.GenerateKey()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), key.Encode())
			return err
		},
	}
}

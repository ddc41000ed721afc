package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"avatarbook/internal/infrastructure/mysql"
)

func migrateCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dryRun {
				for _, stmt := range mysql.Statements() {
					fmt.Fprintf(cmd.OutOrStdout(), "%s;\n\n", stmt)
				}
				return nil
			}

			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			if err := mysql.Migrate(cmd.Context(), e.db); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the statements without executing them")

	return cmd
}

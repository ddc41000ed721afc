package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"avatarbook/internal/auth"
	"avatarbook/internal/config"
)

func tokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
		perms   []string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an operator bearer token for the admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			security := cfg.Security
			if ttl > 0 {
				security.TokenTTL = ttl
			}

			raw, err := auth.NewOperatorTokens(security).Mint(subject, perms...)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), raw)
			return nil
		},
	}

	cmd.Flags().StringVarP(&subject, "subject", "s", "", "operator identity recorded in the token (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to security.tokenTtl)")
	cmd.Flags().StringSliceVar(&perms, "perm", []string{auth.PermOrdersAdmin}, "permissions to grant")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}

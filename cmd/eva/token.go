package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/argenfuego/eva/internal/auth"
	"github.com/argenfuego/eva/internal/config"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an operator token for the /debug endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			operator, _ := cmd.Flags().GetString("operator")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			cfg, err := config.Load(configPath(cmd))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if ttl <= 0 {
				ttl = config.Duration(cfg.Auth.TokenTTL, 24*time.Hour)
			}
			signed, expiresAt, err := auth.GenerateToken(operator, cfg.Auth.JWTSecret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().String("operator", "operator", "subject recorded in the token")
	cmd.Flags().Duration("ttl", 0, "token lifetime (default auth.token_ttl)")
	return cmd
}

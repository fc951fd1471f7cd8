package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/argenfuego/eva/internal/db"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the Postgres session schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := provideConfig(configPath(cmd))
			if err != nil {
				return err
			}
			log := provideLogger(cfg)
			if err := db.Migrate(log, cfg.Postgres); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

// Command eva runs the Argenfuego lead-capture assistant.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/argenfuego/eva/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "eva",
		Short: "Eva - Argenfuego lead-capture assistant",
		Long: `Eva answers fire-safety questions from the Argenfuego knowledge base,
captures sales leads from the conversation and emails them to the sales inbox.

Examples:
  eva serve
  eva chat --user demo "quiero cotizar matafuegos"
  eva migrate
  eva token --operator ops`,
		Version:       version.GetInfo(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "path to the TOML config file (default $CONFIG_PATH or config.toml)")

	root.AddCommand(
		newServeCmd(),
		newChatCmd(),
		newMigrateCmd(),
		newTokenCmd(),
		newVersionCmd(),
	)
	return root
}

func configPath(cmd *cobra.Command) string {
	if f := cmd.Flag("config"); f != nil && strings.TrimSpace(f.Value.String()) != "" {
		return f.Value.String()
	}
	return os.Getenv("CONFIG_PATH")
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.GetInfo())
		},
	}
}

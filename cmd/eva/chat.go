package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/argenfuego/eva/internal/pipeline"
	"github.com/argenfuego/eva/internal/session"
)

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [message...]",
		Short: "Run messages through the full pipeline",
		Long: `Processes one or more turns as the given user and prints each reply.
Positional arguments form the first turn; every --message adds another turn
in the same session. With the memory backend the session lives only for this
process, so use several turns or --skip-welcome to reach retrieval and
generation.

Examples:
  eva chat --user demo "hola"
  eva chat --user demo -m "hola" -m "quiero cotizar matafuegos, soy Juan, juan@x.com"
  eva chat --skip-welcome "¿qué extintor va en una cocina?"`,
		RunE: runChat,
	}
	cmd.Flags().StringP("user", "u", "cli_user", "session key to process the message as")
	cmd.Flags().StringArrayP("message", "m", nil, "additional turn, repeatable")
	cmd.Flags().Bool("skip-welcome", false, "mark the session as already greeted before the first turn")
	cmd.Flags().Duration("timeout", 2*time.Minute, "overall deadline for all turns")
	cmd.Flags().Bool("verbose", false, "also print the final state and turn id")
	return cmd
}

// chatTurns joins positional args into the first turn and appends the
// --message values.
func chatTurns(args, messages []string) []string {
	var turns []string
	if joined := strings.TrimSpace(strings.Join(args, " ")); joined != "" {
		turns = append(turns, joined)
	}
	for _, m := range messages {
		if m = strings.TrimSpace(m); m != "" {
			turns = append(turns, m)
		}
	}
	return turns
}

func runChat(cmd *cobra.Command, args []string) error {
	user, _ := cmd.Flags().GetString("user")
	messages, _ := cmd.Flags().GetStringArray("message")
	skipWelcome, _ := cmd.Flags().GetBool("skip-welcome")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	verbose, _ := cmd.Flags().GetBool("verbose")

	turns := chatTurns(args, messages)
	if len(turns) == 0 {
		return errors.New("at least one message is required")
	}

	var (
		orch  *pipeline.Orchestrator
		store session.Store
	)
	app := fx.New(coreModule(configPath(cmd)), fx.Populate(&orch, &store))
	if err := app.Err(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = app.Stop(context.Background()) }()

	opts := chatOptions{user: user, skipWelcome: skipWelcome, verbose: verbose}
	return runTurns(ctx, cmd.OutOrStdout(), orch, store, opts, turns)
}

type turnProcessor interface {
	Process(ctx context.Context, userID, text string) pipeline.Result
}

type chatOptions struct {
	user        string
	skipWelcome bool
	verbose     bool
}

func runTurns(ctx context.Context, out io.Writer, proc turnProcessor, store session.Store, opts chatOptions, turns []string) error {
	if opts.skipWelcome {
		if _, err := store.IsFirstInteraction(ctx, opts.user); err != nil {
			return fmt.Errorf("skip welcome: %w", err)
		}
	}
	for _, text := range turns {
		res := proc.Process(ctx, opts.user, text)
		if len(turns) > 1 {
			fmt.Fprintf(out, "> %s\n", text)
		}
		fmt.Fprintln(out, res.Reply)
		if opts.verbose {
			fmt.Fprintf(out, "state=%s lead_dispatched=%t turn_id=%s\n", res.State, res.LeadDispatched, res.TurnID)
		}
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/gozephyr/kvstore/internal/repl"
	"github.com/gozephyr/kvstore/log"
	"github.com/gozephyr/kvstore/snapshot"
	"github.com/spf13/cobra"
)

var prompt string

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Read commands from standard input",
	Long: `repl reads one command per line from standard input and prints the
result to standard output. Type HELP for the list of commands.`,
	Args: cobra.NoArgs,
	RunE: runREPL,
}

func init() {
	replCmd.Flags().StringVar(&prompt, "prompt", "> ", "prompt printed before each command")
	rootCmd.Flags().AddFlagSet(replCmd.Flags())
	rootCmd.AddCommand(replCmd)
}

func runREPL(cmd *cobra.Command, _ []string) error {
	s, err := newStore(nil)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	opts := []repl.Option{
		repl.WithPrompt(prompt),
		repl.WithLogger(log.Default()),
	}
	if cfg.Snapshot.Compress {
		opts = append(opts, repl.WithSnapshotOptions(snapshot.WithCompression(-1)))
	}

	runErr := repl.New(s, opts...).Run(ctx, os.Stdin, os.Stdout)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	if err := saveSnapshot(s); err != nil {
		return err
	}
	return runErr
}

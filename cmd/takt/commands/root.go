// Package commands implements the takt CLI.
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/valksor/go-taktwerk/internal/config"
	"github.com/valksor/go-taktwerk/internal/log"
)

var (
	cfg *config.Config

	// Global flags.
	verbose bool
	quiet   bool
	jsonLog bool
)

var rootCmd = &cobra.Command{
	Use:   "takt",
	Short: "Event-driven AI development workflow automation",
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	Long: `Takt drives a work item through triage, grooming, implementation,
review, and merge. Each invocation decodes one tracker event, reads the
item fresh, runs the workflow machine to a terminal state, and verifies
the tracker reached the predicted state.

Quick Start:
  takt run event.json    Handle one tracker event
  takt plan event.json   Show the decision and action plan, no effects
  takt version           Print version information`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env first so token resolution and overrides see it.
		if err := config.LoadDotEnvFromCwd(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load .takt/.env: %v\n", err)
		}

		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		cfg, err = config.Load(cwd)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		log.Configure(log.Options{
			Verbose: verbose,
			Level:   log.ParseLevel(cfg.Log.Level),
			JSON:    jsonLog || cfg.Log.Format == "json",
		})

		log.Debug("initialized", "backend", cfg.Tracker.Backend, "verbose", verbose)

		return nil
	},
}

// Execute runs the root command with signal handling.
func Execute() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().BoolVar(&jsonLog, "json-log", false, "Emit structured JSON logs")
}

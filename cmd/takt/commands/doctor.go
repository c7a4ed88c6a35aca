package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/valksor/go-taktwerk/internal/config"
	"github.com/valksor/go-taktwerk/internal/log"
	"github.com/valksor/go-taktwerk/internal/tracker/github"
	"github.com/valksor/go-taktwerk/internal/tracker/gitlab"
	"github.com/valksor/go-taktwerk/internal/validation"
)

var (
	doctorFormat string
	doctorStrict bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the takt setup for problems",
	Long: `Doctor inspects the settings file, tracker credentials, and agent
availability, and reports every finding instead of stopping at the
first. It runs even when the configuration is too broken for the
other commands to start.`,
	// The root hook loads and validates the config, which is exactly
	// what may be broken here. Only bring up .env and logging.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnvFromCwd(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load .takt/.env: %v\n", err)
		}
		log.Configure(log.Options{Verbose: verbose})
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}

		result := validation.New(cwd, validation.Options{Strict: doctorStrict}).
			WithTokenProbe(probeToken).
			WithAgentProbe(func(cfg *config.Config) error {
				_, err := buildAgent(cfg)
				return err
			}).
			Check()

		fmt.Fprint(cmd.OutOrStdout(), result.Format(doctorFormat))
		if !result.Valid {
			return fmt.Errorf("setup check failed with %d error(s)", result.Errors)
		}
		return nil
	},
}

func probeToken(cfg *config.Config) error {
	switch cfg.Tracker.Backend {
	case github.Backend:
		_, err := github.ResolveToken(cfg.Tracker.Token)
		return err
	case gitlab.Backend:
		_, err := gitlab.ResolveToken(cfg.Tracker.Token)
		return err
	}
	return fmt.Errorf("unknown tracker backend %q", cfg.Tracker.Backend)
}

func init() {
	doctorCmd.Flags().StringVar(&doctorFormat, "format", "text", "Output format (text or json)")
	doctorCmd.Flags().BoolVar(&doctorStrict, "strict", false, "Treat warnings as errors")
	rootCmd.AddCommand(doctorCmd)
}

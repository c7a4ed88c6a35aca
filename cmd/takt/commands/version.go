package commands

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/valksor/go-taktwerk/internal/config"
	"github.com/valksor/go-taktwerk/internal/log"
	"github.com/valksor/go-taktwerk/internal/tracker/github"
	"github.com/valksor/go-taktwerk/internal/update"
)

// Build-time variables set via ldflags
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

var versionCheck bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	// Version must work without a complete configuration; skip the root
	// hook's config load and only bring up .env for token resolution.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = config.LoadDotEnvFromCwd()
		log.Configure(log.Options{Verbose: verbose})
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "takt %s\n", Version)
		_, _ = fmt.Fprintf(out, "  Commit: %s\n", Commit)
		_, _ = fmt.Fprintf(out, "  Built:  %s\n", BuildTime)
		_, _ = fmt.Fprintf(out, "  Go:     %s\n", runtime.Version())

		if !versionCheck {
			return nil
		}

		// A token raises the rate limit but is not required here.
		token, _ := github.ResolveToken("")
		status, err := update.NewChecker(token).Check(cmd.Context(), update.Options{
			CurrentVersion: Version,
		})
		switch {
		case errors.Is(err, update.ErrDevBuild):
			_, _ = fmt.Fprintln(out, "\nDev build, skipping release check.")
			return nil
		case errors.Is(err, update.ErrUpToDate):
			_, _ = fmt.Fprintf(out, "\nUp to date (latest release is %s).\n", status.LatestVersion)
			return nil
		case err != nil:
			return fmt.Errorf("release check: %w", err)
		}

		_, _ = fmt.Fprintf(out, "\nUpdate available: %s -> %s\n", Version, status.LatestVersion)
		_, _ = fmt.Fprintf(out, "  %s\n", status.ReleaseURL)
		if status.AssetURL != "" {
			_, _ = fmt.Fprintf(out, "  %s\n", status.AssetURL)
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "Check GitHub releases for a newer version")
	rootCmd.AddCommand(versionCmd)
}

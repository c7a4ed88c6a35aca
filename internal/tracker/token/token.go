// Package token resolves tracker credentials from the conventional
// sources in a fixed priority order.
package token

import (
	"errors"
	"os"
)

// ErrNoToken is returned when no source yields a credential.
var ErrNoToken = errors.New("no token found")

// Sources lists where one backend's credential may come from. Zero
// fields are skipped.
type Sources struct {
	// Backend names the TAKT_{BACKEND}_TOKEN variable. Uppercase
	// ("GITHUB", "GITLAB").
	Backend string

	// EnvVars are the backend's conventional variables (GITHUB_TOKEN).
	EnvVars []string

	// ConfigToken is the value from the settings file.
	ConfigToken string

	// CLIFallback reads a token from a local CLI tool (gh, glab).
	CLIFallback func() string
}

// Resolve walks the sources in priority order: the takt-specific
// variable, the backend's conventional variables, the settings file,
// then the CLI fallback. Returns ErrNoToken when nothing yields a
// value.
func Resolve(s Sources) (string, error) {
	if s.Backend != "" {
		if tok := os.Getenv("TAKT_" + s.Backend + "_TOKEN"); tok != "" {
			return tok, nil
		}
	}
	for _, name := range s.EnvVars {
		if tok := os.Getenv(name); tok != "" {
			return tok, nil
		}
	}
	if s.ConfigToken != "" {
		return s.ConfigToken, nil
	}
	if s.CLIFallback != nil {
		if tok := s.CLIFallback(); tok != "" {
			return tok, nil
		}
	}
	return "", ErrNoToken
}

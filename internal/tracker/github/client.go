package github

import (
	"context"
	"errors"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/google/go-github/v67/github"
	"golang.org/x/oauth2"

	"github.com/valksor/go-taktwerk/internal/tracker/token"
	"github.com/valksor/go-taktwerk/internal/tracker/trackererr"
)

// ptr is a helper to create a pointer to a value
func ptr[T any](v T) *T {
	return &v
}

// NewClient creates an authenticated GitHub API client.
func NewClient(tok string) *github.Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok})
	tc := oauth2.NewClient(context.Background(), ts)
	return github.NewClient(tc)
}

// ResolveToken finds the GitHub token: TAKT_GITHUB_TOKEN, then
// GITHUB_TOKEN, the settings file, and finally `gh auth token`.
func ResolveToken(configToken string) (string, error) {
	return token.Resolve(token.Sources{
		Backend:     "GITHUB",
		EnvVars:     []string{"GITHUB_TOKEN"},
		ConfigToken: configToken,
		CLIFallback: getGHCLIToken,
	})
}

// getGHCLIToken attempts to get the token from the gh CLI
func getGHCLIToken() string {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "gh", "auth", "token")
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// wrapAPIError converts go-github errors into the shared tracker taxonomy.
func wrapAPIError(err error) error {
	if err == nil {
		return nil
	}
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return trackererr.WrapHTTP(Backend, ghErr.Response.StatusCode, err)
	}
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return trackererr.WrapHTTP(Backend, http.StatusTooManyRequests, err)
	}
	return trackererr.WrapHTTP(Backend, 0, err)
}

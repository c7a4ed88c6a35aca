package token

import (
	"errors"
	"testing"
)

func TestResolvePriority(t *testing.T) {
	t.Setenv("TAKT_GITHUB_TOKEN", "takt-tok")
	t.Setenv("GITHUB_TOKEN", "plain-tok")

	src := Sources{Backend: "GITHUB", EnvVars: []string{"GITHUB_TOKEN"}, ConfigToken: "config-tok"}

	got, err := Resolve(src)
	if err != nil || got != "takt-tok" {
		t.Errorf("Resolve() = %q, %v; TAKT_ var should win", got, err)
	}

	t.Setenv("TAKT_GITHUB_TOKEN", "")
	got, err = Resolve(src)
	if err != nil || got != "plain-tok" {
		t.Errorf("Resolve() = %q, %v; fallback env var should win next", got, err)
	}

	t.Setenv("GITHUB_TOKEN", "")
	got, err = Resolve(src)
	if err != nil || got != "config-tok" {
		t.Errorf("Resolve() = %q, %v; config token should win next", got, err)
	}
}

func TestResolveCLIFallback(t *testing.T) {
	t.Setenv("TAKT_GITHUB_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "")

	got, err := Resolve(Sources{
		Backend:     "GITHUB",
		EnvVars:     []string{"GITHUB_TOKEN"},
		CLIFallback: func() string { return "cli-tok" },
	})
	if err != nil || got != "cli-tok" {
		t.Errorf("Resolve() = %q, %v; CLI fallback is the last source", got, err)
	}
}

func TestResolveNoToken(t *testing.T) {
	t.Setenv("TAKT_GITLAB_TOKEN", "")
	t.Setenv("GITLAB_TOKEN", "")

	_, err := Resolve(Sources{Backend: "GITLAB", EnvVars: []string{"GITLAB_TOKEN"}})
	if !errors.Is(err, ErrNoToken) {
		t.Errorf("Resolve() error = %v, want ErrNoToken", err)
	}

	_, err = Resolve(Sources{Backend: "GITLAB", CLIFallback: func() string { return "" }})
	if !errors.Is(err, ErrNoToken) {
		t.Errorf("empty CLI fallback should still yield ErrNoToken, got %v", err)
	}
}

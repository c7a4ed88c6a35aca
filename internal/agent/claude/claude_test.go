package claude

import (
	"testing"

	"github.com/valksor/go-taktwerk/internal/agent"
)

func TestParseVersion(t *testing.T) {
	cases := []struct {
		out  string
		want string
	}{
		{"1.0.24 (Claude Code)", "v1.0.24"},
		{"v2.1.0", "v2.1.0"},
		{"claude version 1.2", "v1.2.0"},
		{"no version here", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := parseVersion(tc.out); got != tc.want {
			t.Errorf("parseVersion(%q) = %q, want %q", tc.out, got, tc.want)
		}
	}
}

func TestBuildArgs(t *testing.T) {
	inv := NewWithConfig(agent.Config{
		Command: []string{"claude", "--dangerously-skip-permissions"},
		Args:    []string{"--model", "opus"},
	})
	args := inv.buildArgs("do the thing")

	want := []string{
		"--dangerously-skip-permissions",
		"--model", "opus",
		"--print", "--verbose",
		"--output-format", "stream-json",
		"do the thing",
	}
	if len(args) != len(want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("arg %d = %q, want %q", i, args[i], want[i])
		}
	}
}

func TestWithHelpersDoNotMutate(t *testing.T) {
	base := New()
	withEnv := base.WithEnv("FOO", "bar").(*Invoker)
	if len(base.config.Environment) != 0 {
		t.Error("WithEnv must not mutate the receiver")
	}
	if withEnv.config.Environment["FOO"] != "bar" {
		t.Error("WithEnv must carry the new variable")
	}

	withArgs := base.WithArgs("--model", "opus").(*Invoker)
	if len(base.config.Args) != 0 {
		t.Error("WithArgs must not mutate the receiver")
	}
	if len(withArgs.config.Args) != 2 {
		t.Errorf("args = %v", withArgs.config.Args)
	}

	withDir := base.WithWorkDir("/tmp/work")
	if base.config.WorkDir != "" || withDir.config.WorkDir != "/tmp/work" {
		t.Error("WithWorkDir must copy the config")
	}
}

func TestNewWithConfigDefaults(t *testing.T) {
	inv := NewWithConfig(agent.Config{})
	if inv.config.Command[0] != "claude" {
		t.Errorf("command = %v", inv.config.Command)
	}
	if inv.config.MinVersion != MinVersion {
		t.Errorf("min version = %q", inv.config.MinVersion)
	}
}

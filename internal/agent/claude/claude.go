// Package claude wraps the Claude CLI as an agent invoker.
package claude

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"github.com/valksor/go-taktwerk/internal/agent"
)

const AgentName = "claude"

// MinVersion is the oldest CLI version known to support
// --output-format stream-json in print mode.
const MinVersion = "1.0.0"

// Invoker wraps the Claude CLI
type Invoker struct {
	config agent.Config
}

// New creates a Claude invoker with default config
func New() *Invoker {
	return &Invoker{
		config: agent.Config{
			Command:     []string{"claude"},
			Environment: make(map[string]string),
			Timeout:     30 * time.Minute,
			MinVersion:  MinVersion,
		},
	}
}

// NewWithConfig creates a Claude invoker with custom config
func NewWithConfig(cfg agent.Config) *Invoker {
	if len(cfg.Command) == 0 {
		cfg.Command = []string{"claude"}
	}
	if cfg.MinVersion == "" {
		cfg.MinVersion = MinVersion
	}
	return &Invoker{config: cfg}
}

// Name returns the agent identifier
func (a *Invoker) Name() string {
	return AgentName
}

// Available checks if the Claude CLI is installed and recent enough
func (a *Invoker) Available() error {
	binary := a.config.Command[0]
	path, err := exec.LookPath(binary)
	if err != nil {
		return fmt.Errorf("claude CLI not found: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		return fmt.Errorf("claude CLI not working: %w", err)
	}

	if a.config.MinVersion != "" {
		version := parseVersion(string(out))
		if version == "" {
			return fmt.Errorf("claude CLI version not recognized: %q", strings.TrimSpace(string(out)))
		}
		if semver.Compare(version, "v"+a.config.MinVersion) < 0 {
			return fmt.Errorf("claude CLI %s is older than required %s", version, a.config.MinVersion)
		}
	}

	return nil
}

// parseVersion extracts a canonical "vX.Y.Z" from --version output
// like "1.0.24 (Claude Code)". Returns "" when nothing parses.
func parseVersion(out string) string {
	for _, field := range strings.Fields(out) {
		v := "v" + strings.TrimPrefix(field, "v")
		if semver.IsValid(v) {
			return semver.Canonical(v)
		}
	}
	return ""
}

// Invoke executes a prompt and returns the parsed result
func (a *Invoker) Invoke(ctx context.Context, req agent.Request) (*agent.Result, error) {
	start := time.Now()

	lines, err := a.execute(ctx, req)
	if err != nil {
		return nil, err
	}

	res, err := agent.ParseOutput(agent.CollectText(lines), req.WantStructured)
	if err != nil {
		return nil, err
	}
	res.Duration = time.Since(start)

	return res, nil
}

func (a *Invoker) execute(ctx context.Context, req agent.Request) ([][]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	cmd := exec.CommandContext(timeoutCtx, a.config.Command[0], a.buildArgs(req.Prompt)...)

	switch {
	case req.WorkDir != "":
		cmd.Dir = req.WorkDir
	case a.config.WorkDir != "":
		cmd.Dir = a.config.WorkDir
	}

	cmd.Env = os.Environ()
	for k, v := range a.config.Environment {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start command: %w", err)
	}

	var lines [][]byte
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB buffer for large responses

	for scanner.Scan() {
		select {
		case <-timeoutCtx.Done():
			_ = cmd.Process.Kill()
			return nil, timeoutCtx.Err()
		default:
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		lines = append(lines, append([]byte(nil), line...))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %w", err)
	}

	if err := cmd.Wait(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			msg := strings.TrimSpace(stderr.String())
			if msg != "" {
				return nil, fmt.Errorf("claude exited with code %d: %s", exitErr.ExitCode(), msg)
			}
			return nil, fmt.Errorf("claude exited with code %d", exitErr.ExitCode())
		}
		return nil, fmt.Errorf("wait error: %w", err)
	}

	return lines, nil
}

func (a *Invoker) buildArgs(prompt string) []string {
	args := []string{}

	// Add base arguments from config
	if len(a.config.Command) > 1 {
		args = append(args, a.config.Command[1:]...)
	}

	// Add configured CLI arguments
	if len(a.config.Args) > 0 {
		args = append(args, a.config.Args...)
	}

	// Non-interactive mode with streaming JSON output
	args = append(args, "--print")
	args = append(args, "--verbose")
	args = append(args, "--output-format", "stream-json")

	// Add prompt as positional argument (last)
	args = append(args, prompt)

	return args
}

// WithWorkDir sets the working directory
// Returns a new Invoker instance with the updated config to avoid data races.
func (a *Invoker) WithWorkDir(dir string) *Invoker {
	newConfig := a.config
	newConfig.WorkDir = dir
	return &Invoker{config: newConfig}
}

// WithEnv adds an environment variable
// Returns a new Invoker instance with the updated config to avoid data races.
func (a *Invoker) WithEnv(key, value string) agent.Invoker {
	newConfig := a.config
	newConfig.Environment = make(map[string]string, len(a.config.Environment)+1)
	for k, v := range a.config.Environment {
		newConfig.Environment[k] = v
	}
	newConfig.Environment[key] = value
	return &Invoker{config: newConfig}
}

// WithArgs adds CLI arguments to pass to the agent process
// Returns a new Invoker instance with the updated config to avoid data races.
func (a *Invoker) WithArgs(args ...string) agent.Invoker {
	newConfig := a.config
	newArgs := make([]string, len(a.config.Args), len(a.config.Args)+len(args))
	copy(newArgs, a.config.Args)
	newConfig.Args = append(newArgs, args...)
	return &Invoker{config: newConfig}
}

// Register adds the Claude invoker to a registry
func Register(r *agent.Registry) error {
	return r.Register(New())
}

// Ensure Invoker implements agent.Invoker
var _ agent.Invoker = (*Invoker)(nil)

// Package agent defines the coding-agent surface the engine drives.
// Every run is a single prompt in, a single parsed result out; the
// engine never holds an agent session across transitions.
package agent

import (
	"context"
	"encoding/json"
	"time"
)

// Invoker runs a coding agent once and returns its parsed output.
type Invoker interface {
	// Name returns the agent's identifier
	Name() string

	// Invoke executes a prompt and returns the parsed result
	Invoke(ctx context.Context, req Request) (*Result, error)

	// Available checks whether the agent can run (binary exists,
	// version is recent enough)
	Available() error

	// WithEnv adds an environment variable to pass to the agent process.
	// Returns the invoker for method chaining.
	WithEnv(key, value string) Invoker

	// WithArgs adds CLI arguments to pass to the agent process.
	// Returns the invoker for method chaining.
	WithArgs(args ...string) Invoker
}

// Request is one agent invocation.
type Request struct {
	// Prompt is the full prompt text. The engine renders it from the
	// work item context right before the call.
	Prompt string

	// WorkDir is where the agent runs; empty means the process cwd.
	WorkDir string

	// WantStructured indicates the prompt asked for a fenced output
	// block; the parser fails the run when none is present.
	WantStructured bool
}

// Result is the aggregated outcome of one invocation.
type Result struct {
	// Text is the agent's prose output with structured blocks removed.
	Text string

	// Structured is the raw JSON payload from the output block, nil
	// when the run produced none.
	Structured json.RawMessage

	// Success reports whether the agent exited cleanly.
	Success bool

	Duration time.Duration
}

// HasStructured reports whether the run produced an output block.
func (r *Result) HasStructured() bool {
	return len(r.Structured) > 0
}

// Decode unmarshals the structured payload into v.
func (r *Result) Decode(v any) error {
	if !r.HasStructured() {
		return ErrNoStructuredOutput
	}
	return json.Unmarshal(r.Structured, v)
}

// Config holds agent process configuration.
type Config struct {
	Command     []string
	Environment map[string]string
	Args        []string // Additional CLI arguments
	Timeout     time.Duration
	WorkDir     string

	// MinVersion gates Available(); empty disables the check.
	// A semver string like "1.2.0".
	MinVersion string
}

// NewConfig creates a default config.
func NewConfig() Config {
	return Config{
		Timeout: 30 * time.Minute,
	}
}

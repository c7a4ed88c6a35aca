// Package config holds application configuration: a YAML settings file
// under .takt/ plus environment overrides for secrets.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration decodes from YAML strings like "30m" or bare nanosecond
// integers.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration %q", value.Value)
	}
	*d = Duration(n)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Config holds all application configuration
type Config struct {
	Run     RunConfig     `yaml:"run"`
	Agent   AgentConfig   `yaml:"agent"`
	Tracker TrackerConfig `yaml:"tracker"`
	Log     LogConfig     `yaml:"log"`
}

// RunConfig holds engine run settings
type RunConfig struct {
	// MaxTransitions bounds one run's state changes.
	MaxTransitions int `yaml:"max_transitions"`

	// MaxRetries is the consecutive CI failure count that trips the
	// circuit breaker and parks the item as blocked.
	MaxRetries int `yaml:"max_retries"`

	// BotLogin is the account the engine assigns items to.
	BotLogin string `yaml:"bot_login"`

	// StrictVerify makes a verification mismatch fail the run instead
	// of only logging the diffs.
	StrictVerify bool `yaml:"strict_verify"`
}

// AgentConfig holds AI agent settings
type AgentConfig struct {
	// Name selects the invoker; empty means auto-detect.
	Name string `yaml:"name"`

	// Command overrides the agent binary and base arguments.
	Command []string `yaml:"command,omitempty"`

	// Args are extra CLI arguments passed through on every run.
	Args []string `yaml:"args,omitempty"`

	Timeout Duration `yaml:"timeout"`

	// WorkDir is the checkout the agent operates in.
	WorkDir string `yaml:"work_dir"`
}

// TrackerConfig holds tracker backend settings
type TrackerConfig struct {
	// Backend is "github" or "gitlab".
	Backend string `yaml:"backend"`

	// Owner/Repo identify a GitHub repository.
	Owner string `yaml:"owner,omitempty"`
	Repo  string `yaml:"repo,omitempty"`

	// Project is a GitLab project path or numeric id.
	Project string `yaml:"project,omitempty"`

	// Host overrides the API host for self-hosted GitLab.
	Host string `yaml:"host,omitempty"`

	// Token is a fallback when no env var is set.
	Token string `yaml:"token,omitempty"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// NewDefault creates a Config with default values
func NewDefault() *Config {
	return &Config{
		Run: RunConfig{
			MaxTransitions: 64,
			MaxRetries:     3,
			BotLogin:       "takt-bot",
		},
		Agent: AgentConfig{
			Timeout: Duration(30 * time.Minute),
		},
		Tracker: TrackerConfig{
			Backend: "github",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.Run.MaxTransitions <= 0 {
		return fmt.Errorf("run.max_transitions must be positive, got %d", c.Run.MaxTransitions)
	}
	if c.Run.MaxRetries < 1 {
		return fmt.Errorf("run.max_retries must be at least 1, got %d", c.Run.MaxRetries)
	}
	if c.Run.BotLogin == "" {
		return fmt.Errorf("run.bot_login must be set")
	}
	switch c.Tracker.Backend {
	case "github":
		if c.Tracker.Owner == "" || c.Tracker.Repo == "" {
			return fmt.Errorf("tracker.owner and tracker.repo are required for github")
		}
	case "gitlab":
		if c.Tracker.Project == "" {
			return fmt.Errorf("tracker.project is required for gitlab")
		}
	default:
		return fmt.Errorf("unknown tracker backend %q", c.Tracker.Backend)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

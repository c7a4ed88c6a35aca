// Package validation inspects a takt setup before a run and reports
// findings instead of failing on the first problem: settings file
// consistency, credential availability, and agent readiness.
package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/valksor/go-taktwerk/internal/config"
)

// Finding codes.
const (
	CodeConfigNotFound = "CONFIG_NOT_FOUND"
	CodeYAMLSyntax     = "YAML_SYNTAX"
	CodeInvalidEnum    = "INVALID_ENUM"
	CodeInvalidRange   = "INVALID_RANGE"
	CodeMissingField   = "MISSING_FIELD"
	CodeMissingToken   = "MISSING_TOKEN"
	CodeAgentNotReady  = "AGENT_NOT_READY"
)

var (
	validBackends   = []string{"github", "gitlab"}
	validLogFormats = []string{"", "text", "json"}
)

// Options configures validation behavior.
type Options struct {
	Strict bool // treat warnings as errors
}

// Probe checks one runtime dependency of the loaded configuration,
// such as a tracker credential or the agent binary.
type Probe func(cfg *config.Config) error

// Checker validates the takt setup rooted at baseDir.
type Checker struct {
	baseDir    string
	opts       Options
	tokenProbe Probe
	agentProbe Probe
}

// New creates a checker for baseDir.
func New(baseDir string, opts Options) *Checker {
	return &Checker{baseDir: baseDir, opts: opts}
}

// WithTokenProbe installs the credential check.
func (c *Checker) WithTokenProbe(p Probe) *Checker {
	c.tokenProbe = p
	return c
}

// WithAgentProbe installs the agent availability check.
func (c *Checker) WithAgentProbe(p Probe) *Checker {
	c.agentProbe = p
	return c
}

// SettingsPath returns the settings file the checker inspects.
func (c *Checker) SettingsPath() string {
	return filepath.Join(c.baseDir, config.TaktDir, config.SettingsFileName)
}

// Check loads the settings file leniently and reports every finding.
// Probes only run when the configuration itself parsed.
func (c *Checker) Check() *Result {
	result := NewResult()

	cfg := config.NewDefault()
	path := c.SettingsPath()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			result.AddError(CodeYAMLSyntax, fmt.Sprintf("Failed to parse config: %s", err), "", path)
			return result
		}
	case os.IsNotExist(err):
		result.AddInfo(CodeConfigNotFound, "No settings file found, using defaults and environment", "", path)
	default:
		result.AddError(CodeYAMLSyntax, fmt.Sprintf("Failed to read config: %s", err), "", path)
		return result
	}

	checkRun(cfg.Run, path, result)
	checkAgent(cfg.Agent, path, result)
	checkTracker(cfg.Tracker, path, result)
	checkLog(cfg.Log, path, result)

	if result.Errors == 0 {
		c.runProbes(cfg, result)
	}

	if c.opts.Strict && result.Warnings > 0 {
		result.Valid = false
	}
	return result
}

func (c *Checker) runProbes(cfg *config.Config, result *Result) {
	if c.tokenProbe != nil {
		if err := c.tokenProbe(cfg); err != nil {
			result.AddErrorWithSuggestion(
				CodeMissingToken,
				fmt.Sprintf("No %s credential available: %s", cfg.Tracker.Backend, err),
				"tracker.token",
				c.SettingsPath(),
				"Set TAKT_GITHUB_TOKEN / TAKT_GITLAB_TOKEN, or put the token in .takt/.env",
			)
		}
	}
	if c.agentProbe != nil {
		if err := c.agentProbe(cfg); err != nil {
			result.AddWarningWithSuggestion(
				CodeAgentNotReady,
				fmt.Sprintf("Agent is not runnable: %s", err),
				"agent.name",
				c.SettingsPath(),
				"Install the agent CLI or point agent.command at the binary",
			)
		}
	}
}

func checkRun(run config.RunConfig, path string, result *Result) {
	if run.MaxRetries < 1 || run.MaxRetries > 10 {
		result.AddError(CodeInvalidRange,
			fmt.Sprintf("run.max_retries %d is out of range (1-10)", run.MaxRetries),
			"run.max_retries", path)
	}
	if run.MaxTransitions < 1 || run.MaxTransitions > 1024 {
		result.AddError(CodeInvalidRange,
			fmt.Sprintf("run.max_transitions %d is out of range (1-1024)", run.MaxTransitions),
			"run.max_transitions", path)
	}
	if run.BotLogin == "" {
		result.AddError(CodeMissingField, "run.bot_login must be set", "run.bot_login", path)
	}
}

func checkAgent(agent config.AgentConfig, path string, result *Result) {
	if agent.Timeout < 0 {
		result.AddError(CodeInvalidRange,
			fmt.Sprintf("agent.timeout %s must not be negative", agent.Timeout.Std()),
			"agent.timeout", path)
	}
	if agent.WorkDir != "" {
		if info, err := os.Stat(agent.WorkDir); err != nil || !info.IsDir() {
			result.AddWarning(CodeMissingField,
				fmt.Sprintf("agent.work_dir %q is not a directory", agent.WorkDir),
				"agent.work_dir", path)
		}
	}
}

func checkTracker(tr config.TrackerConfig, path string, result *Result) {
	if !slices.Contains(validBackends, tr.Backend) {
		result.AddErrorWithSuggestion(
			CodeInvalidEnum,
			fmt.Sprintf("Invalid tracker backend %q", tr.Backend),
			"tracker.backend", path,
			fmt.Sprintf("Valid values: %v", validBackends),
		)
		return
	}
	switch tr.Backend {
	case "github":
		if tr.Owner == "" || tr.Repo == "" {
			result.AddError(CodeMissingField,
				"tracker.owner and tracker.repo are required for github",
				"tracker.owner", path)
		}
		if tr.Project != "" {
			result.AddWarning(CodeInvalidEnum,
				"tracker.project is ignored with the github backend",
				"tracker.project", path)
		}
	case "gitlab":
		if tr.Project == "" {
			result.AddError(CodeMissingField,
				"tracker.project is required for gitlab",
				"tracker.project", path)
		}
		if tr.Owner != "" || tr.Repo != "" {
			result.AddWarning(CodeInvalidEnum,
				"tracker.owner/tracker.repo are ignored with the gitlab backend",
				"tracker.owner", path)
		}
	}
}

func checkLog(lg config.LogConfig, path string, result *Result) {
	if !slices.Contains(validLogFormats, lg.Format) {
		result.AddErrorWithSuggestion(
			CodeInvalidEnum,
			fmt.Sprintf("Invalid log format %q", lg.Format),
			"log.format", path,
			"Valid values: text, json",
		)
	}
	switch lg.Level {
	case "", "debug", "info", "warn", "error":
	default:
		result.AddWarning(CodeInvalidEnum,
			fmt.Sprintf("Unknown log level %q falls back to info", lg.Level),
			"log.level", path)
	}
}

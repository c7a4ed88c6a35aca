package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// SettingsFileName is the name of the YAML settings file.
const SettingsFileName = "settings.yaml"

// Load reads configuration for baseDir: defaults, then the settings
// file under .takt/ when present, then environment overrides. The
// .takt/.env file is loaded into the environment first so overrides
// and token resolution both see it.
func Load(baseDir string) (*Config, error) {
	if err := LoadDotEnv(baseDir); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := NewDefault()

	path := filepath.Join(baseDir, TaktDir, SettingsFileName)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Defaults plus env overrides only.
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv folds TAKT_* environment variables over the file values.
func applyEnv(cfg *Config) {
	if v := os.Getenv("TAKT_TRACKER_BACKEND"); v != "" {
		cfg.Tracker.Backend = v
	}
	if v := os.Getenv("TAKT_TRACKER_OWNER"); v != "" {
		cfg.Tracker.Owner = v
	}
	if v := os.Getenv("TAKT_TRACKER_REPO"); v != "" {
		cfg.Tracker.Repo = v
	}
	if v := os.Getenv("TAKT_TRACKER_PROJECT"); v != "" {
		cfg.Tracker.Project = v
	}
	if v := os.Getenv("TAKT_TRACKER_HOST"); v != "" {
		cfg.Tracker.Host = v
	}
	if v := os.Getenv("TAKT_BOT_LOGIN"); v != "" {
		cfg.Run.BotLogin = v
	}
	if v := os.Getenv("TAKT_AGENT"); v != "" {
		cfg.Agent.Name = v
	}
	if v := os.Getenv("TAKT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("TAKT_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Run.MaxRetries = n
		}
	}
	if v := os.Getenv("TAKT_STRICT_VERIFY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Run.StrictVerify = b
		}
	}
}

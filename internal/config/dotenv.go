package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const (
	// TaktDir is the name of the takt configuration directory.
	TaktDir = ".takt"
	// EnvFileName is the name of the environment variables file.
	EnvFileName = ".env"
)

// LoadDotEnv loads environment variables from .takt/.env if it exists.
// godotenv.Load() respects existing environment variables, so system
// env vars take priority over .env values.
// Returns nil if the file doesn't exist (not an error condition).
// Returns error only if the file exists but cannot be parsed.
func LoadDotEnv(baseDir string) error {
	envPath := filepath.Join(baseDir, TaktDir, EnvFileName)

	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		return nil
	}

	return godotenv.Load(envPath)
}

// LoadDotEnvFromCwd loads .env from the current working directory's
// .takt/.env.
func LoadDotEnvFromCwd() error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	return LoadDotEnv(cwd)
}

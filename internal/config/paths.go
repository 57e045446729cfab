package config

import (
	"os"
	"path/filepath"
)

// HomePath returns the root directory for sheetchat data.
// It uses $SHEETCHAT_PATH if set, otherwise defaults to ~/.sheetchat.
func HomePath() string {
	if v := os.Getenv("SHEETCHAT_PATH"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".sheetchat")
	}
	return filepath.Join(home, ".sheetchat")
}

// ConfigPath returns the path to the sheetchat config file.
func ConfigPath() string {
	return filepath.Join(HomePath(), "config.jsonc")
}

// DotenvPath returns the path to the sheetchat .env file.
func DotenvPath() string {
	return filepath.Join(HomePath(), ".env")
}

// Package config resolves relman's data locations and loads the per-project
// release configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// EnvRelmanHome overrides the data directory.
	EnvRelmanHome = "RELMAN_HOME"
	// EnvRelmanDB overrides the history database path.
	EnvRelmanDB = "RELMAN_DB"
)

// DataDir returns the directory used to store relman data.
func DataDir() (string, error) {
	if d := os.Getenv(EnvRelmanHome); d != "" {
		return d, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".relman"), nil
}

// EnsureDataDir returns the data directory, creating it when missing.
func EnsureDataDir() (string, error) {
	d, err := DataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(d, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	return d, nil
}

// DBPath returns the full path to the SQLite history database.
func DBPath() (string, error) {
	if p := os.Getenv(EnvRelmanDB); p != "" {
		return p, nil
	}
	d, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "relman.db"), nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnvConfigPath names the environment variable that pins the config file.
const EnvConfigPath = "PREFETCH_CONFIG"

// ErrNoConfig is returned by Discover when no candidate file exists.
var ErrNoConfig = errors.New("no config file found")

// DefaultPath is where `prefetch init` writes: $XDG_CONFIG_HOME/prefetch,
// falling back to ~/.config/prefetch, then the working directory.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "config.toml"
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "prefetch", "config.toml")
}

// SearchPaths lists the locations Discover tries, in order. A set
// PREFETCH_CONFIG replaces the whole list.
func SearchPaths() []string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return []string{p}
	}
	return []string{"config.toml", DefaultPath(), "/etc/prefetch/config.toml"}
}

// Discover returns the first existing file from SearchPaths. When
// PREFETCH_CONFIG is set, its file must exist.
func Discover() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("%s=%s: %w", EnvConfigPath, p, err)
		}
		return p, nil
	}

	paths := SearchPaths()
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w (checked %s); run 'prefetch init' to create one",
		ErrNoConfig, strings.Join(paths, ", "))
}

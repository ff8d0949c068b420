package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// DefaultConfigPaths returns the search order for config files.
func DefaultConfigPaths() []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "reachable", "config.yaml"))
	}
	paths = append(paths, "/etc/reachable/config.yaml")
	return paths
}

// LoadEnvFile loads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. An empty path tries ./.env and
// ignores its absence.
func LoadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// Resolve loads the config from the given explicit path, or searches the
// default locations. With no file anywhere it falls back to Defaults(), so
// the tool runs with flags alone. It fills in Hostname from os.Hostname()
// if empty. The returned path is "" when defaults were used.
func Resolve(explicit string) (*Config, string, error) {
	path, err := findConfig(explicit)
	if err != nil {
		return nil, "", err
	}

	cfg := Defaults()
	if path != "" {
		if cfg, err = Load(path); err != nil {
			return nil, "", err
		}
	}

	if cfg.Hostname == "" {
		h, err := os.Hostname()
		if err != nil {
			return nil, "", fmt.Errorf("resolving hostname: %w", err)
		}
		cfg.Hostname = h
	}

	return cfg, path, nil
}

func findConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultConfigPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("checking config %s: %w", p, err)
		}
	}

	return "", nil
}

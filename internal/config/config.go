package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/habiter/habiter/internal/constants"
)

// Config holds the application configuration loaded from the optional
// YAML config file.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig holds the embedded database location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Debug bool `yaml:"debug"`
}

// Default returns the configuration used when no config file exists.
func Default() Config {
	return Config{
		Database: DatabaseConfig{Path: constants.DefaultDBPath},
	}
}

// Load reads the config file at path. A missing file is not an error:
// defaults are returned so a fresh install works without any setup.
func Load(path string) (Config, error) {
	cfg := Default()

	expanded, err := ExpandHome(path)
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(expanded)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", expanded, err)
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = constants.DefaultDBPath
	}

	return cfg, nil
}

// DatabasePath returns the configured database path with ~ expanded.
func (c Config) DatabasePath() (string, error) {
	return ExpandHome(c.Database.Path)
}

// ExpandHome expands a leading ~/ to the user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}

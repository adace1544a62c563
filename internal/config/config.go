// Package config loads the indexscope configuration file. Missing files
// fall back to defaults; a file that exists but does not parse is an
// error, silently ignoring it would mask typos.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/seekerlabs/indexscope/internal/errors"
	"github.com/seekerlabs/indexscope/internal/history"
	"github.com/seekerlabs/indexscope/internal/logging"
	"github.com/seekerlabs/indexscope/internal/search"
)

// WatchConfig controls the on-disk index change watcher.
type WatchConfig struct {
	Enabled    bool `yaml:"enabled"`
	DebounceMS int  `yaml:"debounce_ms"`
}

// Debounce returns the configured debounce as a duration.
func (w WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMS) * time.Millisecond
}

// HistoryConfig controls the local open/query history.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Config is the full application configuration.
type Config struct {
	Search  search.Settings `yaml:"search"`
	Logging logging.Config  `yaml:"logging"`
	Watch   WatchConfig     `yaml:"watch"`
	History HistoryConfig   `yaml:"history"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Search:  search.DefaultSettings(),
		Logging: logging.DefaultConfig(),
		Watch:   WatchConfig{Enabled: true, DebounceMS: 500},
		History: HistoryConfig{Enabled: true, Path: history.DefaultPath()},
	}
}

// DefaultPath returns the standard configuration file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "indexscope", "config.yml")
	}
	return filepath.Join(home, ".indexscope", "config.yml")
}

// Load reads the configuration at path. The file must exist; use
// LoadOrDefault when absence is acceptable.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, errors.New(errors.ErrCodeConfigNotFound,
				fmt.Sprintf("config file %s not found", path), err)
		}
		return Config{}, errors.New(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("read config file %s", path), err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.New(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("parse config file %s", path), err)
	}
	if err := cfg.Search.Validate(); err != nil {
		return Config{}, errors.New(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("config file %s has invalid search settings", path), err)
	}
	return cfg, nil
}

// LoadOrDefault reads the configuration at path, treating a missing file
// as "use defaults". Any other failure is still reported.
func LoadOrDefault(path string, logger *slog.Logger) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		if errors.GetCode(err) == errors.ErrCodeConfigNotFound {
			if logger != nil {
				logger.Debug("no config file, using defaults", "path", path)
			}
			return Default(), nil
		}
		return Config{}, err
	}
	return cfg, nil
}

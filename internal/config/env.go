package config

import (
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable, e.g. HOTSTART_MONITOR_POLL_INTERVAL
const EnvPrefix = "HOTSTART"

// DefaultFilePath returns ~/.config/hotstart/hotstart.yaml, or the path in
// HOTSTART_CONFIG when set.
func DefaultFilePath() string {
	if p := os.Getenv(EnvPrefix + "_CONFIG"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "hotstart", "hotstart.yaml")
}

// LoadFile overlays the YAML file at path onto cfg. A missing file is not
// an error.
func LoadFile(cfg *Config, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "failed to read config file")
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(err, "failed to parse %s", path)
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables override default and file values; unset variables
// leave the current value untouched.
func LoadFromEnv(cfg *Config) error {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return errors.Wrap(err, "failed to load environment")
	}
	return nil
}

// Load builds a Config from defaults, the YAML file at path and the
// environment, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := LoadFile(cfg, path); err != nil {
		return nil, err
	}
	if err := LoadFromEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// New creates a Config from the default file location and the environment,
// falling back to defaults when either cannot be read.
func New() *Config {
	cfg, err := Load(DefaultFilePath())
	if err != nil {
		return Default()
	}
	return cfg
}

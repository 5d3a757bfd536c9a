package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/hotstart/hotstart/internal/preload"
)

// Config holds all application configuration
type Config struct {
	// App definitions
	Apps AppsConfig `yaml:"apps" envconfig:"APPS"`

	// Reconciliation timing
	Monitor MonitorConfig `yaml:"monitor" envconfig:"MONITOR"`

	// Preload history database
	Database DatabaseConfig `yaml:"database" envconfig:"DB"`

	// Single-instance guard
	Daemon DaemonConfig `yaml:"daemon" envconfig:"DAEMON"`

	// HTTP API
	Web WebConfig `yaml:"web" envconfig:"WEB"`

	Logging LoggingConfig `yaml:"logging" envconfig:"LOG"`
}

// AppsConfig locates the per-application config files
type AppsConfig struct {
	Dir    string `yaml:"dir" envconfig:"DIR"`       // Directory holding *.json / *.toml app files
	Editor string `yaml:"editor" envconfig:"EDITOR"` // Program used to open new app configs
}

// MonitorConfig holds the polling and preload timings
type MonitorConfig struct {
	PollInterval     time.Duration `yaml:"poll_interval" envconfig:"POLL_INTERVAL"`
	MinPollInterval  time.Duration `yaml:"-" ignored:"true"`
	MaxPollInterval  time.Duration `yaml:"-" ignored:"true"`
	PreloadTimeout   time.Duration `yaml:"preload_timeout" envconfig:"PRELOAD_TIMEOUT"`
	FindInterval     time.Duration `yaml:"find_interval" envconfig:"FIND_INTERVAL"`
	HideInterval     time.Duration `yaml:"hide_interval" envconfig:"HIDE_INTERVAL"`
	InputIdleTimeout time.Duration `yaml:"input_idle_timeout" envconfig:"INPUT_IDLE_TIMEOUT"`
	IdleThreshold    int           `yaml:"idle_threshold" envconfig:"IDLE_THRESHOLD"`
	ShowAllOnExit    bool          `yaml:"show_all_on_exit" envconfig:"SHOW_ALL_ON_EXIT"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"ENABLED"`
	Path    string `yaml:"path" envconfig:"PATH"` // Empty means ~/.config/hotstart/history.db
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile string `yaml:"pid_file" envconfig:"PID_FILE"`
}

// WebConfig holds web server configuration
type WebConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"ENABLED"`
	Host    string `yaml:"host" envconfig:"HOST"`
	Port    int    `yaml:"port" envconfig:"PORT"`
}

// LoggingConfig controls the zap logger
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Development bool   `yaml:"development" envconfig:"DEV"`
	File        string `yaml:"file" envconfig:"FILE"` // Empty means stderr
}

// Default returns a Config with sensible default values
func Default() *Config {
	opts := preload.DefaultOptions()

	return &Config{
		Apps: AppsConfig{
			Dir:    defaultAppsDir(),
			Editor: defaultEditor(),
		},
		Monitor: MonitorConfig{
			PollInterval:     5 * time.Second,
			MinPollInterval:  time.Second,
			MaxPollInterval:  5 * time.Minute,
			PreloadTimeout:   opts.PreloadTimeout,
			FindInterval:     opts.FindInterval,
			HideInterval:     opts.HideInterval,
			InputIdleTimeout: opts.InputIdleTimeout,
			IdleThreshold:    opts.IdleThreshold,
			ShowAllOnExit:    true,
		},
		Database: DatabaseConfig{
			Enabled: true,
			Path:    "",
		},
		Daemon: DaemonConfig{
			PIDFile: filepath.Join(os.TempDir(), fmt.Sprintf("hotstart-%d.pid", os.Getuid())),
		},
		Web: WebConfig{
			Enabled: false,
			Host:    "localhost",
			Port:    10500,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func defaultAppsDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "apps"
	}
	return filepath.Join(dir, "hotstart", "apps")
}

func defaultEditor() string {
	if runtime.GOOS == "windows" {
		return "notepad.exe"
	}
	return "xdg-open"
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Monitor.PollInterval < c.Monitor.MinPollInterval {
		return fmt.Errorf("poll interval (%v) cannot be less than minimum (%v)",
			c.Monitor.PollInterval, c.Monitor.MinPollInterval)
	}

	if c.Monitor.PollInterval > c.Monitor.MaxPollInterval {
		return fmt.Errorf("poll interval (%v) cannot be greater than maximum (%v)",
			c.Monitor.PollInterval, c.Monitor.MaxPollInterval)
	}

	if c.Monitor.PreloadTimeout <= 0 {
		return fmt.Errorf("preload timeout must be positive")
	}

	if c.Monitor.FindInterval <= 0 || c.Monitor.HideInterval <= 0 {
		return fmt.Errorf("find and hide intervals must be positive")
	}

	if c.Monitor.InputIdleTimeout < 0 {
		return fmt.Errorf("input idle timeout cannot be negative")
	}

	if c.Monitor.IdleThreshold < 0 {
		return fmt.Errorf("idle threshold cannot be negative")
	}

	if c.Apps.Dir == "" {
		return fmt.Errorf("apps directory cannot be empty")
	}

	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web port must be between 1 and 65535, got %d", c.Web.Port)
	}

	if c.Web.Host == "" {
		return fmt.Errorf("web host cannot be empty")
	}

	if c.Daemon.PIDFile == "" {
		return fmt.Errorf("PID file path cannot be empty")
	}

	return nil
}

// SetPollInterval sets the poll interval with validation
func (c *Config) SetPollInterval(interval time.Duration) error {
	if interval < c.Monitor.MinPollInterval {
		return fmt.Errorf("poll interval cannot be less than %v", c.Monitor.MinPollInterval)
	}
	if interval > c.Monitor.MaxPollInterval {
		return fmt.Errorf("poll interval cannot be greater than %v", c.Monitor.MaxPollInterval)
	}
	c.Monitor.PollInterval = interval
	return nil
}

// SetWebPort sets the web server port with validation
func (c *Config) SetWebPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	c.Web.Port = port
	return nil
}

// PreloadOptions converts the monitor timings into controller options
func (c *Config) PreloadOptions() preload.Options {
	return preload.Options{
		PreloadTimeout:   c.Monitor.PreloadTimeout,
		FindInterval:     c.Monitor.FindInterval,
		HideInterval:     c.Monitor.HideInterval,
		InputIdleTimeout: c.Monitor.InputIdleTimeout,
		IdleThreshold:    c.Monitor.IdleThreshold,
	}
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  Apps:
    Dir: %s
    Editor: %s
  Monitor:
    Poll Interval: %v
    Preload Timeout: %v
    Find Interval: %v
    Hide Interval: %v
    Input Idle Timeout: %v
    Idle Threshold: %d
    Show All On Exit: %v
  Database:
    Enabled: %v
    Path: %s
  Daemon:
    PID File: %s
  Web:
    Enabled: %v
    Host: %s
    Port: %d
  Logging:
    Level: %s
    File: %s`,
		c.Apps.Dir,
		c.Apps.Editor,
		c.Monitor.PollInterval,
		c.Monitor.PreloadTimeout,
		c.Monitor.FindInterval,
		c.Monitor.HideInterval,
		c.Monitor.InputIdleTimeout,
		c.Monitor.IdleThreshold,
		c.Monitor.ShowAllOnExit,
		c.Database.Enabled,
		c.Database.Path,
		c.Daemon.PIDFile,
		c.Web.Enabled,
		c.Web.Host,
		c.Web.Port,
		c.Logging.Level,
		c.Logging.File,
	)
}

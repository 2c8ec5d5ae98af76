// Package config loads serialrepl settings from viper: flags, SERIALREPL_*
// environment variables and an optional YAML file.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// SERIALREPL_TRANSPORT_BACKEND.
const EnvPrefix = "SERIALREPL"

// Config is the complete runtime configuration.
type Config struct {
	Transport TransportConfig `mapstructure:"transport"`
	// Match selects how a port number is resolved to a device path:
	// "substring" (default) or "suffix"
	Match string `mapstructure:"match"`
	// Prompt is the idle REPL marker ignored by the poller
	Prompt string `mapstructure:"prompt"`
	// Ports opened by `run` when no --port flag is given
	Ports        []int         `mapstructure:"ports"`
	PollInterval time.Duration `mapstructure:"poll_interval"`

	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Demo    DemoConfig    `mapstructure:"demo"`
}

// TransportConfig selects and tunes the serial backend.
type TransportConfig struct {
	// Backend is "termios" (Linux, default) or "bugst" (go.bug.st/serial)
	Backend     string        `mapstructure:"backend"`
	BaudRate    int           `mapstructure:"baud_rate"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// File receives log output instead of stderr when set
	File string `mapstructure:"file"`
}

// MetricsConfig controls the prometheus endpoint of `run`.
type MetricsConfig struct {
	// Addr is the listen address for /metrics, empty disables it
	Addr string `mapstructure:"addr"`
}

// DemoConfig is the command sequence fed to every port by `run`.
type DemoConfig struct {
	Commands []string      `mapstructure:"commands"`
	Interval time.Duration `mapstructure:"interval"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Transport: TransportConfig{
			Backend:     "termios",
			BaudRate:    115200,
			ReadTimeout: 1500 * time.Millisecond,
		},
		Match:        "substring",
		Prompt:       ">>>",
		Ports:        []int{},
		PollInterval: 250 * time.Millisecond,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Demo: DemoConfig{
			Commands: []string{
				"import machine",
				"led = machine.Pin('LED', machine.Pin.OUT)",
				"led.off()",
				"led.toggle()",
				"led.toggle()",
				"led.toggle()",
				"led.toggle()",
				"machine.unique_id()",
			},
			Interval: time.Second,
		},
	}
}

// SetDefaults registers every default with v.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("transport.backend", defaults.Transport.Backend)
	v.SetDefault("transport.baud_rate", defaults.Transport.BaudRate)
	v.SetDefault("transport.read_timeout", defaults.Transport.ReadTimeout)

	v.SetDefault("match", defaults.Match)
	v.SetDefault("prompt", defaults.Prompt)
	v.SetDefault("ports", defaults.Ports)
	v.SetDefault("poll_interval", defaults.PollInterval)

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)
	v.SetDefault("logging.file", defaults.Logging.File)

	v.SetDefault("metrics.addr", defaults.Metrics.Addr)

	v.SetDefault("demo.commands", defaults.Demo.Commands)
	v.SetDefault("demo.interval", defaults.Demo.Interval)
}

// Load unmarshals v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the directory searched for config.yaml.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "serialrepl")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".serialrepl"
	}
	return filepath.Join(home, ".config", "serialrepl")
}

// ConfigFile returns the default config file path.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

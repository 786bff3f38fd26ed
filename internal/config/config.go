// Package config loads cmdlaunch settings from YAML files and CMDLAUNCH_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete cmdlaunch configuration.
type Config struct {
	Store     StoreConfig     `mapstructure:"store"`
	Launch    LaunchConfig    `mapstructure:"launch"`
	Terminate TerminateConfig `mapstructure:"terminate"`
	Reap      ReapConfig      `mapstructure:"reap"`
	Log       LogConfig       `mapstructure:"log"`
	API       APIConfig       `mapstructure:"api"`
}

// StoreConfig locates the command list.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// LaunchConfig controls how commands are started.
type LaunchConfig struct {
	// Background makes background launches the default mode.
	Background    bool     `mapstructure:"background"`
	MaxConcurrent int      `mapstructure:"max_concurrent"`
	// Terminals overrides the platform terminal emulator candidates, in
	// order of preference.
	Terminals []string `mapstructure:"terminals"`
}

// TerminateConfig controls the stop sequence.
type TerminateConfig struct {
	GracePeriod time.Duration `mapstructure:"grace_period"`
	OnExit      bool          `mapstructure:"on_exit"`
}

// ReapConfig controls exited-process cleanup.
type ReapConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// LogConfig controls diagnostics.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	File   string `mapstructure:"file"`
	Pretty bool   `mapstructure:"pretty"`
}

// APIConfig controls the HTTP control API served by `cmdlaunch serve`.
type APIConfig struct {
	Addr string `mapstructure:"addr"`
}

// DefaultStoreFile is the command list file name.
const DefaultStoreFile = "commands.json"

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Store: StoreConfig{Path: DefaultStorePath()},
		Launch: LaunchConfig{
			MaxConcurrent: 8,
		},
		Terminate: TerminateConfig{
			GracePeriod: 3 * time.Second,
			OnExit:      true,
		},
		Reap: ReapConfig{Interval: 5 * time.Second},
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
		API: APIConfig{Addr: "127.0.0.1:7664"},
	}
}

// DefaultStorePath places the command list next to the running executable,
// falling back to the working directory.
func DefaultStorePath() string {
	exe, err := os.Executable()
	if err != nil {
		return DefaultStoreFile
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), DefaultStoreFile)
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Store.Path) == "" {
		errs = append(errs, errors.New("store.path must not be empty"))
	}
	if c.Launch.MaxConcurrent <= 0 {
		errs = append(errs, fmt.Errorf("launch.max_concurrent must be positive, got %d", c.Launch.MaxConcurrent))
	}
	if c.Terminate.GracePeriod <= 0 {
		errs = append(errs, fmt.Errorf("terminate.grace_period must be positive, got %s", c.Terminate.GracePeriod))
	}
	if c.Reap.Interval <= 0 {
		errs = append(errs, fmt.Errorf("reap.interval must be positive, got %s", c.Reap.Interval))
	}
	switch strings.ToLower(c.Log.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not a known level", c.Log.Level))
	}
	for i, term := range c.Launch.Terminals {
		if strings.TrimSpace(term) == "" {
			errs = append(errs, fmt.Errorf("launch.terminals[%d] must not be empty", i))
		}
	}
	return errors.Join(errs...)
}

type yamlView struct {
	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`
	Launch struct {
		Background    bool     `yaml:"background"`
		MaxConcurrent int      `yaml:"max_concurrent"`
		Terminals     []string `yaml:"terminals,omitempty"`
	} `yaml:"launch"`
	Terminate struct {
		GracePeriod string `yaml:"grace_period"`
		OnExit      bool   `yaml:"on_exit"`
	} `yaml:"terminate"`
	Reap struct {
		Interval string `yaml:"interval"`
	} `yaml:"reap"`
	Log struct {
		Level  string `yaml:"level"`
		File   string `yaml:"file,omitempty"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	API struct {
		Addr string `yaml:"addr"`
	} `yaml:"api"`
}

// YAML renders the configuration in the file format Load accepts.
func (c *Config) YAML() ([]byte, error) {
	var v yamlView
	v.Store.Path = c.Store.Path
	v.Launch.Background = c.Launch.Background
	v.Launch.MaxConcurrent = c.Launch.MaxConcurrent
	v.Launch.Terminals = c.Launch.Terminals
	v.Terminate.GracePeriod = c.Terminate.GracePeriod.String()
	v.Terminate.OnExit = c.Terminate.OnExit
	v.Reap.Interval = c.Reap.Interval.String()
	v.Log.Level = c.Log.Level
	v.Log.File = c.Log.File
	v.Log.Pretty = c.Log.Pretty
	v.API.Addr = c.API.Addr
	return yaml.Marshal(&v)
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. CMDLAUNCH_REAP_INTERVAL=10s.
const EnvPrefix = "CMDLAUNCH"

// SearchPaths lists the directories searched for cmdlaunch.yaml when no
// explicit path is given.
func SearchPaths() []string {
	paths := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "cmdlaunch"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".cmdlaunch"))
	}
	return paths
}

// Load reads configuration from path, or from the first cmdlaunch.yaml found
// in SearchPaths, layered over Default and under environment overrides. A
// missing file in the search paths is not an error; a missing explicit path
// is.
func Load(path string, logger zerolog.Logger) (*Config, error) {
	v := viper.New()
	v.SetConfigName("cmdlaunch")
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		for _, dir := range SearchPaths() {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		logger.Debug().
			Strs("searchPaths", SearchPaths()).
			Msg("no config file found, using defaults")
	} else {
		logger.Debug().Str("configFile", v.ConfigFileUsed()).Msg("config file loaded")
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Launch.Terminals = splitTerminals(cfg.Launch.Terminals)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so environment overrides apply to keys
// absent from the file.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("store.path", cfg.Store.Path)
	v.SetDefault("launch.background", cfg.Launch.Background)
	v.SetDefault("launch.max_concurrent", cfg.Launch.MaxConcurrent)
	v.SetDefault("launch.terminals", cfg.Launch.Terminals)
	v.SetDefault("terminate.grace_period", cfg.Terminate.GracePeriod)
	v.SetDefault("terminate.on_exit", cfg.Terminate.OnExit)
	v.SetDefault("reap.interval", cfg.Reap.Interval)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("log.pretty", cfg.Log.Pretty)
	v.SetDefault("api.addr", cfg.API.Addr)
}

// splitTerminals accepts both YAML lists and comma separated environment
// values.
func splitTerminals(in []string) []string {
	var out []string
	for _, entry := range in {
		for _, part := range strings.Split(entry, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

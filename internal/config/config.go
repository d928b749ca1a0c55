// Package config loads CLI settings from defaults, a tally.yaml file,
// TALLY_ environment variables and command-line flags.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Defaults.
const (
	DefaultOutput   = "text"
	DefaultLogLevel = "info"
	EnvPrefix       = "TALLY_"
)

// KeepPrecision leaves the report's own precision in effect.
const KeepPrecision = -1

// configFiles are searched in the working directory, in order.
var configFiles = []string{"tally.yaml", "tally.yml"}

// Config holds all CLI settings.
type Config struct {
	Report       string    `koanf:"report"`
	Output       string    `koanf:"output"`
	Out          string    `koanf:"out"`
	MissingLabel string    `koanf:"missing_label"`
	Precision    int       `koanf:"precision"`
	Log          LogConfig `koanf:"log"`

	// File is the config file that was read, if any.
	File string `koanf:"-"`
}

// LogConfig controls the CLI logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	SeqURL string `koanf:"seq_url"`
}

// flagKeys maps flag names onto config keys where they differ.
var flagKeys = map[string]string{
	"log-level":     "log.level",
	"seq-url":       "log.seq_url",
	"missing-label": "missing_label",
	"format":        "output",
}

// Load builds the config. Precedence, highest first: flags, environment,
// config file, defaults. cfgFile may be empty to search the working
// directory.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]any{
		"output":    DefaultOutput,
		"precision": KeepPrecision,
		"log.level": DefaultLogLevel,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// 3. Environment: TALLY_LOG_LEVEL -> log.level, TALLY_OUT -> out
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags that were explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used
	return &cfg, nil
}

func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	if rest, ok := strings.CutPrefix(key, "log_"); ok {
		return "log." + rest
	}
	return key
}

func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range configFiles {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

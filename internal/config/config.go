// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads tether settings from an optional YAML file, TETHER_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tetherlab/tether/pkg/oi"
)

// EnvPrefix is prepended to every environment override, e.g. TETHER_BAUD.
const EnvPrefix = "TETHER"

// LogConfig controls logger construction.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// MetricsConfig controls the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
	Path string `mapstructure:"path"`
}

// Config is the resolved configuration.
type Config struct {
	Port        string        `mapstructure:"port"`
	Baud        int           `mapstructure:"baud"`
	Timeout     time.Duration `mapstructure:"timeout"`
	URL         string        `mapstructure:"url"`
	Username    string        `mapstructure:"username"`
	NoSSLVerify bool          `mapstructure:"no_ssl_verify"`
	CommandGap  time.Duration `mapstructure:"command_gap"`
	Log         LogConfig     `mapstructure:"log"`
	Metrics     MetricsConfig `mapstructure:"metrics"`
}

// Address returns the WebSocket URL if set, otherwise the serial port.
func (c *Config) Address() string {
	if c.URL != "" {
		return c.URL
	}
	return c.Port
}

// Validate checks values that viper cannot.
func (c *Config) Validate() error {
	if _, ok := oi.BaudCode(c.Baud); !ok {
		return fmt.Errorf("unsupported baud rate %d", c.Baud)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.CommandGap < 0 {
		return fmt.Errorf("command gap must not be negative, got %v", c.CommandGap)
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// flagKeys maps config keys to their persistent flag names.
var flagKeys = map[string]string{
	"port":          "port",
	"baud":          "baud",
	"timeout":       "timeout",
	"url":           "url",
	"username":      "username",
	"no_ssl_verify": "no-ssl-verify",
	"command_gap":   "command-gap",
	"log.level":     "log-level",
	"log.format":    "log-format",
	"log.file":      "log-file",
	"metrics.addr":  "metrics-addr",
}

// New returns a viper instance with defaults and environment overrides.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags binds every flag in fs that has a config key. Flags that are
// absent from fs are skipped.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for key, name := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load reads the config file (if any) into v and unmarshals the result.
// An empty path searches ./tether.yaml and $HOME/.config/tether/tether.yaml;
// not finding either is not an error. An explicit path must exist.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("tether")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/tether")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "")
	v.SetDefault("baud", 115200)
	v.SetDefault("timeout", "1s")
	v.SetDefault("url", "")
	v.SetDefault("username", "")
	v.SetDefault("no_ssl_verify", false)
	v.SetDefault("command_gap", "15ms")

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 20)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("log.compress", true)

	v.SetDefault("metrics.addr", "")
	v.SetDefault("metrics.path", "/metrics")
}

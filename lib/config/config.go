// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvironmentPrefix prefixes every environment override.
const EnvironmentPrefix = "TETHER"

// ConfigEnvironment names the variable holding the config file path.
const ConfigEnvironment = "TETHER_CONFIG"

// Config is the full configuration for both binaries. Each binary reads
// the section for its role plus Logging and Metrics.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" toml:"logging" json:"logging" envconfig:"LOG"`
	Metrics   MetricsConfig   `yaml:"metrics" toml:"metrics" json:"metrics" envconfig:"METRICS"`
	Initiator InitiatorConfig `yaml:"initiator" toml:"initiator" json:"initiator" envconfig:"INITIATOR"`
	Listener  ListenerConfig  `yaml:"listener" toml:"listener" json:"listener" envconfig:"LISTENER"`
}

// LoggingConfig selects the slog level and handler.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level" toml:"level" json:"level"`

	// Format is auto, text, or json.
	Format string `yaml:"format" toml:"format" json:"format"`
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	// Listen is the address serving /metrics. Empty disables it.
	Listen string `yaml:"listen" toml:"listen" json:"listen"`
}

// InitiatorConfig configures the outbound role: dial, spawn a shell,
// relay, reconnect.
type InitiatorConfig struct {
	// Address is the host:port of the listener to dial.
	Address string `yaml:"address" toml:"address" json:"address"`

	// Shell is the interpreter to spawn. Empty selects the platform
	// default (/bin/bash, or cmd.exe on windows).
	Shell string `yaml:"shell" toml:"shell" json:"shell"`

	// NoPTY forces pipe mode even where a pseudo-terminal is available.
	NoPTY bool `yaml:"no_pty" toml:"no_pty" json:"no_pty" split_words:"true"`

	Backoff BackoffConfig `yaml:"backoff" toml:"backoff" json:"backoff" envconfig:"BACKOFF"`

	// ReconnectPause is the pause between a session ending and the next
	// connection attempt.
	ReconnectPause Duration `yaml:"reconnect_pause" toml:"reconnect_pause" json:"reconnect_pause" split_words:"true"`

	// GracePeriod is how long a terminated shell gets between SIGTERM
	// and SIGKILL.
	GracePeriod Duration `yaml:"grace_period" toml:"grace_period" json:"grace_period" split_words:"true"`
}

// BackoffConfig is the capped exponential retry policy for dialing.
type BackoffConfig struct {
	Initial Duration `yaml:"initial" toml:"initial" json:"initial"`
	Max     Duration `yaml:"max" toml:"max" json:"max"`
}

// ListenerConfig configures the inbound role: accept one peer at a time
// and bind it to the operator's console.
type ListenerConfig struct {
	// Address is the local host:port to bind.
	Address string `yaml:"address" toml:"address" json:"address"`

	// Raw puts a terminal console into raw mode for the session.
	Raw bool `yaml:"raw" toml:"raw" json:"raw"`

	KeepAlive KeepAliveConfig `yaml:"keepalive" toml:"keepalive" json:"keepalive" envconfig:"KEEPALIVE"`
}

// KeepAliveConfig is the TCP keepalive policy for accepted peers.
type KeepAliveConfig struct {
	Idle     Duration `yaml:"idle" toml:"idle" json:"idle"`
	Interval Duration `yaml:"interval" toml:"interval" json:"interval"`
	Count    int      `yaml:"count" toml:"count" json:"count"`
}

// Default returns the reference configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
		Initiator: InitiatorConfig{
			Address: "127.0.0.1:4546",
			Backoff: BackoffConfig{
				Initial: Duration(2 * time.Second),
				Max:     Duration(15 * time.Second),
			},
			ReconnectPause: Duration(2 * time.Second),
			GracePeriod:    Duration(1500 * time.Millisecond),
		},
		Listener: ListenerConfig{
			Address: "0.0.0.0:4546",
			KeepAlive: KeepAliveConfig{
				Idle:     Duration(30 * time.Second),
				Interval: Duration(10 * time.Second),
				Count:    3,
			},
		},
	}
}

// Load returns Default overlaid with the file at path (or at
// $TETHER_CONFIG when path is empty) and then with TETHER_*
// environment variables. A missing path is not an error; a path that
// cannot be read or decoded is.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(ConfigEnvironment)
	}

	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnvironment(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile returns Default overlaid with the file at path only. No
// environment overrides are applied.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile decodes path into c, choosing the decoder by extension.
// Fields absent from the file keep their current values.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}

	switch extension := strings.ToLower(filepath.Ext(path)); extension {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	case ".toml":
		err = toml.Unmarshal(data, c)
	case ".json", ".jsonc":
		err = json.Unmarshal(jsonc.ToJSON(data), c)
	default:
		return fmt.Errorf("config %s: unsupported extension %q (want .yaml, .yml, .toml, .json, or .jsonc)", path, extension)
	}
	if err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// applyEnvironment overlays TETHER_* variables. Unset variables leave
// the field untouched. Leaf fields must not carry envconfig tags:
// envconfig also looks a tagged name up without the prefix, which would
// let the login SHELL override initiator.shell.
func (c *Config) applyEnvironment() error {
	if err := envconfig.Process(EnvironmentPrefix, c); err != nil {
		return fmt.Errorf("environment overrides: %w", err)
	}
	return nil
}

// Validate checks the configuration for errors. It reports every
// problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Initiator.Address == "" {
		errs = append(errs, fmt.Errorf("initiator.address is required"))
	}
	if c.Initiator.Backoff.Initial <= 0 {
		errs = append(errs, fmt.Errorf("initiator.backoff.initial must be positive"))
	}
	if c.Initiator.Backoff.Max < c.Initiator.Backoff.Initial {
		errs = append(errs, fmt.Errorf("initiator.backoff.max (%s) must not be less than initial (%s)",
			c.Initiator.Backoff.Max, c.Initiator.Backoff.Initial))
	}
	if c.Initiator.ReconnectPause < 0 {
		errs = append(errs, fmt.Errorf("initiator.reconnect_pause must not be negative"))
	}
	if c.Initiator.GracePeriod < 0 {
		errs = append(errs, fmt.Errorf("initiator.grace_period must not be negative"))
	}

	if c.Listener.Address == "" {
		errs = append(errs, fmt.Errorf("listener.address is required"))
	}
	if c.Listener.KeepAlive.Count < 0 {
		errs = append(errs, fmt.Errorf("listener.keepalive.count must not be negative"))
	}

	logFormats := []string{"", "auto", "text", "json"}
	if !contains(logFormats, c.Logging.Format) {
		errs = append(errs, fmt.Errorf("logging.format must be one of: %v", logFormats[1:]))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}

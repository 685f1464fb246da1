// Copyright (C) 2025 IAMVanilka
// Mnemy - game save backup client
// SPDX-License-Identifier: GPL-3.0-or-later

// package config loads and persists the Mnemy client configuration. It
// layers defaults, the YAML config file, environment variables and CLI
// flags through viper; the config file itself is written with goccy/go-yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config holds all client settings. The API token is deliberately absent:
// it lives in the OS keyring, never on disk.
type Config struct {
	Server struct {
		Host string `mapstructure:"host" yaml:"host"`
	} `mapstructure:"server" yaml:"server"`
	Database struct {
		Type string `mapstructure:"type" yaml:"type"`
		Dsn  string `mapstructure:"dsn" yaml:"dsn"`
	} `mapstructure:"database" yaml:"database"`
	Language string `mapstructure:"language" yaml:"language"`
	Watcher  struct {
		PollIntervalSeconds int `mapstructure:"poll_interval_seconds" yaml:"poll_interval_seconds"`
	} `mapstructure:"watcher" yaml:"watcher"`
}

// getConfigPath returns the full path for the configuration file.
func getConfigPath(system bool) (string, error) {
	var configDir string
	var err error

	if system {
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "Mnemy")
		default: // Linux, macOS, etc.
			configDir = "/etc/mnemy"
		}
	} else {
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, "mnemy")
	}

	return filepath.Join(configDir, "mnemy.yaml"), nil
}

// DefaultDatabasePath returns the default location for the SQLite registry,
// next to the user config file.
func DefaultDatabasePath() string {
	path, err := getConfigPath(false)
	if err != nil {
		return "./mnemy.db"
	}
	return filepath.Join(filepath.Dir(path), "mnemy.db")
}

// Load reads the configuration for the given command. Precedence, lowest
// to highest: defaults, config file, environment (MNEMY_*), CLI flags.
// explicitPath, when non-nil, pins the config file location (--config).
// The returned path is the config file that was read; it is empty when no
// file was found so the caller can seed a default one on first run.
func Load(cmd *cobra.Command, defaults map[string]any, explicitPath *string) (Config, string, error) {
	var c Config
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("mnemy")
	v.SetConfigType("yaml")

	// An explicit --config path has the highest precedence for file-based
	// configuration.
	if explicitPath != nil {
		v.SetConfigFile(*explicitPath)
	}

	if userConfigPath, err := getConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(userConfigPath))
	}
	if systemConfigPath, err := getConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(systemConfigPath))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine, the client runs on defaults and the
		// caller writes a fresh one. Other errors are fatal.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return c, "", err
		}
	}

	v.AutomaticEnv()
	v.AllowEmptyEnv(true)
	v.SetEnvPrefix("mnemy")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return c, "", err
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, "", err
	}

	return c, v.ConfigFileUsed(), nil
}

// Write persists the configuration to the user (or system) config file,
// creating the directory if needed.
func Write(c *Config, system bool) error {
	path, err := getConfigPath(system)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}

	return nil
}

// SPDX-License-Identifier: MPL-2.0

// Package config loads the mrpack-updater configuration: registry endpoints,
// the resolution concurrency ceiling, and the fallback rules table mapping
// project identities to GitHub repositories.
//
// Configuration comes from a TOML file in the platform config directory,
// overridable per key via MRPACK_UPDATER_* environment variables. Every key
// has a default, so running without a config file is fully supported.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name, used for the config directory.
	AppName = "mrpack-updater"

	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"

	// ConfigFileExt is the config file extension.
	ConfigFileExt = "toml"
)

type (
	// FallbackRule maps one project identity to a GitHub release feed.
	FallbackRule struct {
		Owner              string `mapstructure:"owner"`
		Repo               string `mapstructure:"repo"`
		IncludePrereleases bool   `mapstructure:"include_prereleases"`
	}

	// Config is the resolved application configuration.
	Config struct {
		// APIBaseURL is the Modrinth API endpoint.
		APIBaseURL string `mapstructure:"api_base_url"`

		// UserAgent is sent with every outbound request; the registry
		// requires a descriptive one.
		UserAgent string `mapstructure:"user_agent"`

		// Concurrency is the resolution fan-out ceiling.
		Concurrency int `mapstructure:"concurrency"`

		// TrackMissing enables the cross-session missing-items store.
		TrackMissing bool `mapstructure:"track_missing"`

		// Fallback maps project identities to their fallback release feeds.
		// Only identities listed here are ever resolved through a secondary
		// source.
		Fallback map[string]FallbackRule `mapstructure:"fallback"`
	}
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL:   "https://api.modrinth.com/v2",
		UserAgent:    "KrisTC/mrpack-updater",
		Concurrency:  4,
		TrackMissing: true,
		Fallback: map[string]FallbackRule{
			// Iris ships GitHub-only builds for game versions that lag its
			// Modrinth listing.
			"YL57xq9U": {Owner: "IrisShaders", Repo: "Iris"},
		},
	}
}

// ConfigDir returns the mrpack-updater configuration directory using
// platform-specific conventions: Windows uses %APPDATA%, macOS uses
// ~/Library/Application Support, and Linux/others use $XDG_CONFIG_HOME
// (defaulting to ~/.config).
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// DataDir returns the directory for persistent state such as the
// missing-items store. The path is ~/.mrpack-updater on all platforms.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, "."+AppName), nil
}

// Load reads the configuration. When configFilePath is empty the default
// location is searched; a missing file there is not an error. An explicitly
// given path must exist.
func Load(configFilePath string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("api_base_url", defaults.APIBaseURL)
	v.SetDefault("user_agent", defaults.UserAgent)
	v.SetDefault("concurrency", defaults.Concurrency)
	v.SetDefault("track_missing", defaults.TrackMissing)

	v.SetEnvPrefix("MRPACK_UPDATER")
	v.AutomaticEnv()

	if configFilePath != "" {
		v.SetConfigFile(configFilePath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configFilePath, err)
		}
	} else {
		dir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		v.SetConfigName(ConfigFileName)
		v.SetConfigType(ConfigFileExt)
		v.AddConfigPath(dir)

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	// The fallback table replaces the defaults entirely when set; merging
	// would make a rule impossible to remove via config.
	if cfg.Fallback == nil {
		cfg.Fallback = defaults.Fallback
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = defaults.Concurrency
	}

	return cfg, nil
}

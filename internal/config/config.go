// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides bootstrap configuration loading for chatcat.
//
// This covers process-level settings only: where the data directory lives,
// which storage backend to open, and how to log. User-facing settings
// (API keys, theme, providers) live in the preference store and are managed
// through the settings screen, not this file.
//
// Configuration file location: ~/.chatcat/config.toml, with built-in
// defaults and CHATCAT_* environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete chatcat bootstrap configuration.
type Config struct {
	// Storage configuration
	Storage StorageConfig `toml:"storage"`

	// Logging configuration
	Log LogConfig `toml:"log"`
}

// StorageConfig selects and locates the persistence backend.
type StorageConfig struct {
	// Backend is the key-value backend: "pebble" or "memory".
	// "memory" keeps nothing across restarts and exists for testing.
	Backend string `toml:"backend"`
	// DataDir is the directory holding the database. Empty means
	// ~/.chatcat/data.
	DataDir string `toml:"data_dir"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	// Level is the minimum level: "debug", "info", "warn", "error".
	Level string `toml:"level"`
	// File is the log file path. Empty means ~/.chatcat/chatcat.log.
	// Logs never go to stdout; the terminal belongs to the UI.
	File string `toml:"file"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: "pebble",
			DataDir: "",
		},
		Log: LogConfig{
			Level: "info",
			File:  "",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// Dir returns the chatcat configuration directory path.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".chatcat"), nil
}

// Path returns the path to the TOML config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureDir ensures the config directory exists.
func EnsureDir() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// DataDir resolves the effective data directory, creating it if needed.
func (c *Config) DataDir() (string, error) {
	if c.Storage.DataDir != "" {
		if err := os.MkdirAll(c.Storage.DataDir, 0700); err != nil {
			return "", err
		}
		return c.Storage.DataDir, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	dataDir := filepath.Join(dir, "data")
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return "", err
	}
	return dataDir, nil
}

// ExportDir resolves the directory for exported conversations, creating
// it if needed.
func (c *Config) ExportDir() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	exportDir := filepath.Join(dir, "exports")
	if err := os.MkdirAll(exportDir, 0700); err != nil {
		return "", err
	}
	return exportDir, nil
}

// LogFile resolves the effective log file path.
func (c *Config) LogFile() (string, error) {
	if c.Log.File != "" {
		return c.Log.File, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "chatcat.log"), nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load loads configuration from ~/.chatcat/config.toml, falling back to
// defaults when the file is absent. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file path with validation.
// A missing file is not an error; defaults are used.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, statErr := os.Stat(path); statErr == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to the default TOML file.
// SECURITY: config files are created 0600, owner read/write only.
func Save(cfg *Config) error {
	if err := EnsureDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	path, err := Path()
	if err != nil {
		return err
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	fmt.Fprintln(file, "# chatcat configuration file")
	fmt.Fprintln(file, "# Generated by chatcat - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// fillDefaults fills in any missing values with defaults.
func (c *Config) fillDefaults() {
	defaults := Default()

	if c.Storage.Backend == "" {
		c.Storage.Backend = defaults.Storage.Backend
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validBackends := map[string]bool{"pebble": true, "memory": true}
	if !validBackends[strings.ToLower(c.Storage.Backend)] {
		return fmt.Errorf("storage.backend: invalid backend %q, must be one of: pebble, memory", c.Storage.Backend)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("log.level: invalid level %q, must be one of: debug, info, warn, error", c.Log.Level)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - CHATCAT_BACKEND: overrides storage.backend
//   - CHATCAT_DATA_DIR: overrides storage.data_dir
//   - CHATCAT_LOG_LEVEL: overrides log.level
//   - CHATCAT_LOG_FILE: overrides log.file
func (c *Config) ApplyEnvOverrides() {
	if backend := os.Getenv("CHATCAT_BACKEND"); backend != "" {
		c.Storage.Backend = backend
	}
	if dataDir := os.Getenv("CHATCAT_DATA_DIR"); dataDir != "" {
		c.Storage.DataDir = dataDir
	}
	if level := os.Getenv("CHATCAT_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if file := os.Getenv("CHATCAT_LOG_FILE"); file != "" {
		c.Log.File = file
	}
}

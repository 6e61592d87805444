// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Storage.Backend != "pebble" {
		t.Errorf("Backend = %q, want pebble", cfg.Storage.Backend)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Level = %q, want info", cfg.Log.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromPathMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "no_such.toml"))
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Storage.Backend != "pebble" {
		t.Errorf("Backend = %q, want pebble default", cfg.Storage.Backend)
	}
}

func TestLoadFromPathTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[storage]
backend = "memory"
data_dir = "/tmp/chatcat-test"

[log]
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("Backend = %q, want memory", cfg.Storage.Backend)
	}
	if cfg.Storage.DataDir != "/tmp/chatcat-test" {
		t.Errorf("DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoadFromPathPartialFileFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[log]\nlevel = \"warn\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Level = %q, want warn", cfg.Log.Level)
	}
	if cfg.Storage.Backend != "pebble" {
		t.Errorf("Backend = %q, want pebble default", cfg.Storage.Backend)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		substr string
	}{
		{"bad backend", func(c *Config) { c.Storage.Backend = "sqlite" }, "storage.backend"},
		{"bad level", func(c *Config) { c.Log.Level = "verbose" }, "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate should reject invalid config")
			}
			if !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("error %q should mention %q", err, tt.substr)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("CHATCAT_BACKEND", "memory")
	t.Setenv("CHATCAT_LOG_LEVEL", "debug")
	t.Setenv("CHATCAT_DATA_DIR", "/tmp/env-data")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Storage.Backend != "memory" {
		t.Errorf("Backend = %q, want memory from env", cfg.Storage.Backend)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Level = %q, want debug from env", cfg.Log.Level)
	}
	if cfg.Storage.DataDir != "/tmp/env-data" {
		t.Errorf("DataDir = %q, want env value", cfg.Storage.DataDir)
	}
}

func TestDataDirResolution(t *testing.T) {
	cfg := Default()
	cfg.Storage.DataDir = filepath.Join(t.TempDir(), "custom")

	dir, err := cfg.DataDir()
	if err != nil {
		t.Fatalf("DataDir failed: %v", err)
	}
	if dir != cfg.Storage.DataDir {
		t.Errorf("DataDir = %q, want %q", dir, cfg.Storage.DataDir)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("DataDir should create the directory: %v", err)
	}
}

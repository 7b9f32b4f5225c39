package main

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var formatterEnvVars = []string{
	"FORMATTER_CONFIG", "FORMATTER_LANGUAGE_ID", "FORMATTER_FOLD_DELAY_MS", "FORMATTER_STYLE",
	"FORMATTER_COLOR", "FORMATTER_MAX_INPUT_BYTES", "FORMATTER_MAX_CONCURRENT",
	"FORMATTER_CACHE_TTL", "FORMATTER_CACHE_MAX",
}

func clearFormatterEnv(t *testing.T) {
	t.Helper()
	for _, v := range formatterEnvVars {
		if orig, ok := os.LookupEnv(v); ok {
			t.Cleanup(func() { os.Setenv(v, orig) })
		}
		os.Unsetenv(v)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LanguageID != "ansible-output" {
		t.Errorf("Expected LanguageID to be ansible-output, got %q", cfg.LanguageID)
	}
	if cfg.FoldDelay != 200*time.Millisecond {
		t.Errorf("Expected FoldDelay to be 200ms, got %v", cfg.FoldDelay)
	}
	if cfg.MaxInputBytes != 32<<20 {
		t.Errorf("Expected MaxInputBytes to be 32MiB, got %d", cfg.MaxInputBytes)
	}
	if cfg.CacheTTL != 0 {
		t.Errorf("Expected cache to be disabled, got TTL %v", cfg.CacheTTL)
	}
	if cfg.Style != "monokai" || cfg.Color != "auto" {
		t.Errorf("Expected monokai/auto, got %s/%s", cfg.Style, cfg.Color)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}

func TestLoadConfigWithCustomValues(t *testing.T) {
	tests := []struct {
		name   string
		envVar string
		value  string
		check  func(*Config) bool
	}{
		{"language id", "FORMATTER_LANGUAGE_ID", "ansible-log", func(c *Config) bool { return c.LanguageID == "ansible-log" }},
		{"fold delay", "FORMATTER_FOLD_DELAY_MS", "50", func(c *Config) bool { return c.FoldDelay == 50*time.Millisecond }},
		{"fold delay clamped", "FORMATTER_FOLD_DELAY_MS", "60000", func(c *Config) bool { return c.FoldDelay == maxFoldDelay }},
		{"fold delay disabled", "FORMATTER_FOLD_DELAY_MS", "0", func(c *Config) bool { return c.FoldDelay == 0 }},
		{"style", "FORMATTER_STYLE", "dracula", func(c *Config) bool { return c.Style == "dracula" }},
		{"color", "FORMATTER_COLOR", "NEVER", func(c *Config) bool { return c.Color == "never" }},
		{"color as bool", "FORMATTER_COLOR", "true", func(c *Config) bool { return c.Color == "always" }},
		{"bad color ignored", "FORMATTER_COLOR", "rainbow", func(c *Config) bool { return c.Color == "auto" }},
		{"input limit", "FORMATTER_MAX_INPUT_BYTES", "4096", func(c *Config) bool { return c.MaxInputBytes == 4096 }},
		{"input limit clamped", "FORMATTER_MAX_INPUT_BYTES", "10", func(c *Config) bool { return c.MaxInputBytes == minInputBytes }},
		{"cache ttl", "FORMATTER_CACHE_TTL", "30", func(c *Config) bool { return c.CacheTTL == 30*time.Second }},
		{"cache ttl clamped", "FORMATTER_CACHE_TTL", "999999", func(c *Config) bool { return c.CacheTTL == maxCacheTTL }},
		{"cache max", "FORMATTER_CACHE_MAX", "16", func(c *Config) bool { return c.CacheMaxEntries == 16 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearFormatterEnv(t)
			os.Setenv(tt.envVar, tt.value)
			defer os.Unsetenv(tt.envVar)

			cfg := LoadConfig()
			if !tt.check(cfg) {
				t.Errorf("Unexpected config for %s=%s: %+v", tt.envVar, tt.value, cfg)
			}
		})
	}
}

func TestLoadConfigLogsClamping(t *testing.T) {
	clearFormatterEnv(t)

	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	os.Setenv("FORMATTER_FOLD_DELAY_MS", "60000")
	defer os.Unsetenv("FORMATTER_FOLD_DELAY_MS")
	LoadConfig()

	if !strings.Contains(buf.String(), "[CONFIG] FORMATTER_FOLD_DELAY_MS") {
		t.Errorf("Expected a [CONFIG] clamping log line, got %q", buf.String())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"empty language", func(c *Config) { c.LanguageID = " " }, true},
		{"negative fold delay", func(c *Config) { c.FoldDelay = -time.Millisecond }, true},
		{"tiny input limit", func(c *Config) { c.MaxInputBytes = 1 }, true},
		{"too many formats", func(c *Config) { c.MaxConcurrentFormats = 1000 }, true},
		{"unlimited formats", func(c *Config) { c.MaxConcurrentFormats = 0 }, false},
		{"bad color", func(c *Config) { c.Color = "sometimes" }, true},
		{"long cache ttl", func(c *Config) { c.CacheTTL = 48 * time.Hour }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	clearFormatterEnv(t)

	path := filepath.Join(t.TempDir(), "formatter.yaml")
	content := `language_id: ansible-log
fold_delay_ms: "0"
style: github
color: never
max_concurrent: 2
cache_ttl: 60
cache_max: 8
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile failed: %v", err)
	}
	if cfg.LanguageID != "ansible-log" || cfg.FoldDelay != 0 || cfg.Style != "github" || cfg.Color != "never" {
		t.Errorf("File values not applied: %+v", cfg)
	}
	if cfg.MaxConcurrentFormats != 2 || cfg.CacheTTL != time.Minute || cfg.CacheMaxEntries != 8 {
		t.Errorf("File values not applied: %+v", cfg)
	}
	if cfg.MaxInputBytes != defaultInputBytes {
		t.Errorf("Unset value should keep default, got %d", cfg.MaxInputBytes)
	}

	// Environment overrides the file
	os.Setenv("FORMATTER_STYLE", "dracula")
	defer os.Unsetenv("FORMATTER_STYLE")
	cfg, err = LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile failed: %v", err)
	}
	if cfg.Style != "dracula" {
		t.Errorf("Expected env to override file, got style %q", cfg.Style)
	}
}

func TestLoadConfigFileErrors(t *testing.T) {
	clearFormatterEnv(t)
	dir := t.TempDir()

	if _, err := LoadConfigFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Expected an error for a missing file")
	}

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("style: [unclosed"), 0o644)
	if _, err := LoadConfigFile(bad); err == nil {
		t.Error("Expected an error for malformed YAML")
	}

	wrongType := filepath.Join(dir, "wrong.yaml")
	os.WriteFile(wrongType, []byte("max_concurrent: many\n"), 0o644)
	if _, err := LoadConfigFile(wrongType); err == nil {
		t.Error("Expected an error for a non-numeric max_concurrent")
	}

	// LoadConfig falls back to defaults on a broken file
	os.Setenv("FORMATTER_CONFIG", bad)
	defer os.Unsetenv("FORMATTER_CONFIG")
	if cfg := LoadConfig(); cfg.Style != "monokai" {
		t.Errorf("Expected default style after fallback, got %q", cfg.Style)
	}
}

func TestGetConfigIsLazy(t *testing.T) {
	clearFormatterEnv(t)
	ResetConfig()
	defer ResetConfig()

	os.Setenv("FORMATTER_STYLE", "vim")
	defer os.Unsetenv("FORMATTER_STYLE")

	first := GetConfig()
	if first.Style != "vim" {
		t.Errorf("Expected style vim, got %q", first.Style)
	}
	if GetConfig() != first {
		t.Error("GetConfig should return the same instance until reset")
	}
}

func TestUseConfigFile(t *testing.T) {
	clearFormatterEnv(t)
	ResetConfig()
	defer ResetConfig()

	path := filepath.Join(t.TempDir(), "c.yaml")
	os.WriteFile(path, []byte("style: github\n"), 0o644)

	if err := UseConfigFile(path); err != nil {
		t.Fatalf("UseConfigFile failed: %v", err)
	}
	if GetConfig().Style != "github" {
		t.Errorf("Expected style github, got %q", GetConfig().Style)
	}
	if err := UseConfigFile(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

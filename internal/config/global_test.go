package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGlobalConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	if got, want := GlobalConfigPath(), "/custom/config/iromo/config.yml"; got != want {
		t.Errorf("GlobalConfigPath() = %q, want %q", got, want)
	}

	t.Setenv("XDG_CONFIG_HOME", "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}
	if got, want := GlobalConfigPath(), filepath.Join(home, ".config", "iromo", "config.yml"); got != want {
		t.Errorf("GlobalConfigPath() = %q, want %q", got, want)
	}
}

func TestLoadGlobalConfig_NotFound(t *testing.T) {
	ResetGlobalConfigCache()
	defer ResetGlobalConfigCache()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadGlobalConfig() returned nil")
	}
	if cfg.LastCollection != "" || cfg.TitleLength != 0 {
		t.Errorf("LoadGlobalConfig() = %+v, want empty", cfg)
	}
}

func TestLoadGlobalConfig_Valid(t *testing.T) {
	ResetGlobalConfigCache()
	defer ResetGlobalConfigCache()

	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	configDir := filepath.Join(tmpDir, "iromo")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatal(err)
	}
	data := "last_collection: ~/notes\ntitle_length: 40\nlog_level: debug\n"
	if err := os.WriteFile(filepath.Join(configDir, "config.yml"), []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}

	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, "notes"); cfg.LastCollection != want {
		t.Errorf("LastCollection = %q, want %q", cfg.LastCollection, want)
	}
	if cfg.TitleLength != 40 {
		t.Errorf("TitleLength = %d, want 40", cfg.TitleLength)
	}
	if GetLogLevel() != "debug" {
		t.Errorf("GetLogLevel() = %q, want debug", GetLogLevel())
	}

	t.Setenv(EnvLogLevel, "error")
	if GetLogLevel() != "error" {
		t.Errorf("GetLogLevel() with env = %q, want error", GetLogLevel())
	}
}

func TestLoadGlobalConfig_Invalid(t *testing.T) {
	ResetGlobalConfigCache()
	defer ResetGlobalConfigCache()

	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)
	os.MkdirAll(filepath.Join(tmpDir, "iromo"), 0755)
	os.WriteFile(filepath.Join(tmpDir, "iromo", "config.yml"), []byte("title_length: [not, a, number]"), 0644)

	if _, err := LoadGlobalConfig(); err == nil {
		t.Error("LoadGlobalConfig() expected error for invalid YAML")
	}
}

func TestSaveGlobalConfig_RoundTrip(t *testing.T) {
	ResetGlobalConfigCache()
	defer ResetGlobalConfigCache()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := &GlobalConfig{LastCollection: "/data/notes", TitleLength: 30}
	if err := SaveGlobalConfig(cfg); err != nil {
		t.Fatalf("SaveGlobalConfig() error = %v", err)
	}

	ResetGlobalConfigCache()
	loaded, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("LoadGlobalConfig() = %+v, want %+v", loaded, cfg)
	}
}

func TestGlobalConfig_GetSet(t *testing.T) {
	var cfg GlobalConfig

	if err := cfg.Set("title_length", "25"); err != nil {
		t.Fatalf("Set(title_length) error = %v", err)
	}
	if v, _ := cfg.Get("title_length"); v != "25" {
		t.Errorf("Get(title_length) = %q, want 25", v)
	}

	if err := cfg.Set("title_length", "-3"); err == nil {
		t.Error("Set(title_length, -3) expected error")
	}
	if err := cfg.Set("log_level", "loud"); err == nil {
		t.Error("Set(log_level, loud) expected error")
	}
	if err := cfg.Set("nope", "x"); err == nil {
		t.Error("Set(nope) expected error")
	}
	if _, err := cfg.Get("nope"); err == nil {
		t.Error("Get(nope) expected error")
	}
}

func TestResolveCollection(t *testing.T) {
	ResetGlobalConfigCache()
	defer ResetGlobalConfigCache()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(EnvCollection, "")

	root, _ := filepath.EvalSymlinks(t.TempDir())
	if err := os.WriteFile(ManifestPath(root), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	elsewhere := t.TempDir()

	if got, _ := ResolveCollection("/explicit", elsewhere); got != "/explicit" {
		t.Errorf("flag: got %q, want /explicit", got)
	}

	if got, _ := ResolveCollection("", root); got != root {
		t.Errorf("walk-up: got %q, want %q", got, root)
	}

	if _, err := ResolveCollection("", elsewhere); err == nil {
		t.Error("expected error with no collection anywhere")
	}

	if err := RememberCollection(root); err != nil {
		t.Fatalf("RememberCollection() error = %v", err)
	}
	if got, _ := ResolveCollection("", elsewhere); got != root {
		t.Errorf("last_collection: got %q, want %q", got, root)
	}

	t.Setenv(EnvCollection, "/from/env")
	if got, _ := ResolveCollection("", root); got != "/from/env" {
		t.Errorf("env: got %q, want /from/env", got)
	}
}

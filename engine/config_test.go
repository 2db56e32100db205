package engine

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing file should not error, got %v", err)
	}
	want := DefaultConfig()
	if cfg != want {
		t.Errorf("got %+v, want defaults %+v", cfg, want)
	}
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
log_level = "debug"

[window]
title = "Test"
width = 800
height = 600

[renderer]
vsync = false
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.Window.Title != "Test" || cfg.Window.Width != 800 || cfg.Window.Height != 600 {
		t.Errorf("window = %+v", cfg.Window)
	}
	if cfg.Renderer.VSync {
		t.Error("vsync should be overridden to false")
	}
	// Untouched sections keep their defaults.
	if !cfg.Renderer.TripleBuffer {
		t.Error("triple_buffer default lost")
	}
	if cfg.Assets.Dir != "assets" {
		t.Errorf("Assets.Dir = %q, want default", cfg.Assets.Dir)
	}
	if cfg.Window.X != 100 || cfg.Window.Y != 100 {
		t.Errorf("window position defaults lost: %+v", cfg.Window)
	}
}

func TestLoadConfigMalformedFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("window = [not toml"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("malformed TOML should error")
	}
}

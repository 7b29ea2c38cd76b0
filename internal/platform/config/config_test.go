package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"crux/internal/platform/config"
)

func TestNewDerivesPathsFromHome(t *testing.T) {
	t.Parallel()
	home := t.TempDir()
	cfg, err := config.New(home)
	if err != nil {
		t.Fatalf("new config: %v", err)
	}
	if cfg.HomePath != home {
		t.Fatalf("unexpected home path %q", cfg.HomePath)
	}
	if cfg.DBPath != filepath.Join(home, "crux.db") {
		t.Fatalf("unexpected db path %q", cfg.DBPath)
	}
	if !cfg.Journal {
		t.Fatalf("expected journal enabled by default")
	}
}

func TestNewLoadsSettingsFile(t *testing.T) {
	t.Parallel()
	home := t.TempDir()
	raw := "defaultGym: Boulder Barn\njournal: false\n"
	if err := os.WriteFile(filepath.Join(home, "config.yaml"), []byte(raw), 0o644); err != nil {
		t.Fatalf("write config.yaml: %v", err)
	}
	cfg, err := config.New(home)
	if err != nil {
		t.Fatalf("new config: %v", err)
	}
	if cfg.DefaultGym != "Boulder Barn" {
		t.Fatalf("unexpected default gym %q", cfg.DefaultGym)
	}
	if cfg.Journal {
		t.Fatalf("expected journal disabled by settings file")
	}
}

func TestNewRejectsMalformedSettings(t *testing.T) {
	t.Parallel()
	home := t.TempDir()
	if err := os.WriteFile(filepath.Join(home, "config.yaml"), []byte(":\n  - broken"), 0o644); err != nil {
		t.Fatalf("write config.yaml: %v", err)
	}
	if _, err := config.New(home); err == nil {
		t.Fatalf("expected parse error")
	}
}

package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/depot-build/depot/pkg/config"
	"gopkg.in/yaml.v3"
)

func TestLoad_Defaults(t *testing.T) {
	s, err := config.NewManager("").Load(t.TempDir())
	if err != nil {
		t.Fatalf("failed to load settings: %v", err)
	}

	if s.LogLevel != "info" {
		t.Errorf("expected info log level, got %s", s.LogLevel)
	}
	if s.Jobs != 0 {
		t.Errorf("expected unlimited jobs, got %d", s.Jobs)
	}
	if s.StateDir != config.DefaultStateDir {
		t.Errorf("expected default state dir, got %s", s.StateDir)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	root := t.TempDir()
	data, _ := yaml.Marshal(map[string]interface{}{
		"log_level": "debug",
		"jobs":      4,
		"notify":    true,
	})
	if err := os.WriteFile(filepath.Join(root, "depot.yaml"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	m := config.NewManager("")
	s, err := m.Load(root)
	if err != nil {
		t.Fatalf("failed to load settings: %v", err)
	}

	if s.LogLevel != "debug" || s.Jobs != 4 || !s.Notify {
		t.Errorf("unexpected settings: %+v", s)
	}
	if filepath.Base(m.ConfigFileUsed()) != "depot.yaml" {
		t.Errorf("expected depot.yaml to be used, got %q", m.ConfigFileUsed())
	}
}

func TestLoad_JSONFileAndEnv(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "custom.json")
	if err := os.WriteFile(path, []byte(`{"jobs": 2, "state_dir": "/tmp/depot-state"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DEPOT_LOG_LEVEL", "warn")

	s, err := config.NewManager(path).Load(root)
	if err != nil {
		t.Fatalf("failed to load settings: %v", err)
	}

	if s.Jobs != 2 {
		t.Errorf("expected 2 jobs, got %d", s.Jobs)
	}
	if s.LogLevel != "warn" {
		t.Errorf("expected env override to warn, got %s", s.LogLevel)
	}
	if got := s.StatePath(root); got != "/tmp/depot-state" {
		t.Errorf("expected absolute state dir to be kept, got %s", got)
	}
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	_, err := config.NewManager(filepath.Join(t.TempDir(), "nope.yaml")).Load(t.TempDir())
	if err == nil {
		t.Error("expected error for missing explicit settings file")
	}
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name     string
		settings config.Settings
		wantErr  bool
	}{
		{"valid", config.Settings{LogLevel: "info"}, false},
		{"negative jobs", config.Settings{LogLevel: "info", Jobs: -1}, true},
		{"bad level", config.Settings{LogLevel: "loud"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.settings.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStatePath(t *testing.T) {
	s := config.Settings{}
	if got := s.StatePath("/ws"); got != filepath.Join("/ws", config.DefaultStateDir) {
		t.Errorf("unexpected state path %s", got)
	}
}

func TestFindHome(t *testing.T) {
	t.Setenv(config.HomeEnvVar, "/opt/depot")
	home, err := config.FindHome()
	if err != nil || home != "/opt/depot" {
		t.Errorf("FindHome() = %q, %v", home, err)
	}
}

func TestLoadGlobal(t *testing.T) {
	home := t.TempDir()
	t.Setenv(config.HomeEnvVar, home)

	bin := filepath.Join(home, "bin")
	if err := os.MkdirAll(bin, 0o755); err != nil {
		t.Fatal(err)
	}
	pnpm := filepath.Join(bin, "pnpm")
	if err := os.WriteFile(pnpm, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.LoadGlobal()
	if err != nil {
		t.Fatalf("LoadGlobal() error = %v", err)
	}
	if cfg.PnpmPath != pnpm {
		t.Errorf("expected bundled pnpm %s, got %s", pnpm, cfg.PnpmPath)
	}
}

func TestLoadGlobal_MissingHome(t *testing.T) {
	t.Setenv(config.HomeEnvVar, filepath.Join(t.TempDir(), "missing"))

	_, err := config.LoadGlobal()
	if !errors.Is(err, config.ErrHomeMissing) {
		t.Errorf("expected ErrHomeMissing, got %v", err)
	}
}

func TestLoadPnpmWorkspace(t *testing.T) {
	root := t.TempDir()

	ws, err := config.LoadPnpmWorkspace(root)
	if err != nil || ws != nil {
		t.Fatalf("expected nil workspace without file, got %v, %v", ws, err)
	}

	content := "packages:\n  - 'packages/*'\n  - 'apps/*'\n  - '!**/fixtures/**'\n"
	if err := os.WriteFile(filepath.Join(root, config.PnpmWorkspaceFile), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	ws, err = config.LoadPnpmWorkspace(root)
	if err != nil {
		t.Fatalf("LoadPnpmWorkspace() error = %v", err)
	}
	if got := ws.Includes(); len(got) != 2 || got[0] != "packages/*" || got[1] != "apps/*" {
		t.Errorf("unexpected includes %v", got)
	}
	if got := ws.Excludes(); len(got) != 1 || got[0] != "**/fixtures/**" {
		t.Errorf("unexpected excludes %v", got)
	}
}

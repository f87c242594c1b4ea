package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"cherthat/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("CHERTHAT_BACKEND_URL", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "cherthat")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.Socket != filepath.Join(wantData, "cherthat.sock") {
		t.Fatalf("unexpected socket path: %q", cfg.Paths.Socket)
	}
	if cfg.Server.Bind != "127.0.0.1:3000" {
		t.Fatalf("unexpected server bind: %q", cfg.Server.Bind)
	}
	if cfg.ImagesEndpoint() != "http://localhost:3000/api/images" {
		t.Fatalf("unexpected images endpoint: %q", cfg.ImagesEndpoint())
	}
	if cfg.HideGrace().Milliseconds() != 300 {
		t.Fatalf("unexpected hide grace: %s", cfg.HideGrace())
	}
	if cfg.ResultDisplay().Milliseconds() != 1500 {
		t.Fatalf("unexpected result display: %s", cfg.ResultDisplay())
	}
	if cfg.PollInterval().Milliseconds() != 5000 {
		t.Fatalf("unexpected poll interval: %s", cfg.PollInterval())
	}
	if cfg.Control.ProductName != "Cher That" {
		t.Fatalf("unexpected product name: %q", cfg.Control.ProductName)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "cherthat.toml")
	t.Setenv("CHERTHAT_BACKEND_URL", "")

	type payload struct {
		Paths struct {
			DataDir string `toml:"data_dir"`
		} `toml:"paths"`
		Relay struct {
			BackendURL string `toml:"backend_url"`
		} `toml:"relay"`
		Control struct {
			HideGraceMS int `toml:"hide_grace_ms"`
		} `toml:"control"`
	}
	custom := payload{}
	custom.Paths.DataDir = filepath.Join(tempDir, "data")
	custom.Relay.BackendURL = "https://cherthat.example.com/"
	custom.Control.HideGraceMS = 450

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Relay.BackendURL != "https://cherthat.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Relay.BackendURL)
	}
	if cfg.Control.HideGraceMS != 450 {
		t.Fatalf("unexpected hide grace: %d", cfg.Control.HideGraceMS)
	}
	if cfg.Control.ResultDisplayMS != 1500 {
		t.Fatalf("expected default result display to survive partial config, got %d", cfg.Control.ResultDisplayMS)
	}
	if cfg.FallbackDBPath() != filepath.Join(tempDir, "data", "fallback.db") {
		t.Fatalf("unexpected fallback db path: %q", cfg.FallbackDBPath())
	}
}

func TestLoadHonoursBackendEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CHERTHAT_BACKEND_URL", "http://10.0.0.5:8080/")
	t.Chdir(t.TempDir())

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ImagesEndpoint() != "http://10.0.0.5:8080/api/images" {
		t.Fatalf("unexpected images endpoint: %q", cfg.ImagesEndpoint())
	}
}

func TestValidateRejectsBadBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Relay.BackendURL = "ftp://example.com"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for non-http backend")
	}
	if !strings.Contains(err.Error(), "relay.backend_url") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Level = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for unknown log level")
	}
}

func TestCreateSampleWritesLoadableConfig(t *testing.T) {
	t.Setenv("CHERTHAT_BACKEND_URL", "")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("sample config should load cleanly: exists=%v err=%v", exists, err)
	}
}

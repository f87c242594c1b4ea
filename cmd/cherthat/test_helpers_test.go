package main

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"cherthat/internal/bridge"
	"cherthat/internal/collection"
	"cherthat/internal/config"
	"cherthat/internal/fallback"
	"cherthat/internal/relay"
	"cherthat/internal/testsupport"
)

// unreachableBackend refuses connections immediately.
const unreachableBackend = "http://127.0.0.1:1"

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	socketPath string
	collection *collection.Store
	backend    *httptest.Server
	fallback   *fallback.Store
	bridge     *bridge.Server
}

// setupCLITestEnv writes a config pointing at a live collection service.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	store := collection.NewStore()
	backend := httptest.NewServer(collection.NewServer(nil, store, nil, nil).Handler())
	t.Cleanup(backend.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithBackendURL(backend.URL))
	env := &cliTestEnv{
		cfg:        cfg,
		socketPath: cfg.Paths.Socket,
		collection: store,
		backend:    backend,
	}
	env.configPath = filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, env.configPath, cfg)
	return env
}

// startRelay runs a bridge server backed by an in-process relay.
func (env *cliTestEnv) startRelay(t *testing.T, backendURL string) {
	t.Helper()
	env.fallback = testsupport.MustOpenFallback(t, env.cfg)
	r := relay.New(relay.NewRemoteClient(strings.TrimRight(backendURL, "/")+"/api/images", 5*time.Second), env.fallback, nil, nil)

	srv, err := bridge.NewServer(t.Context(), env.socketPath, r, nil, nil)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping relay-backed CLI test: %v", err)
		}
		t.Fatalf("bridge.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)
	env.bridge = srv
}

func (env *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, args, env.socketPath, env.configPath)
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected output to contain %q\n%s", substr, output)
	}
}

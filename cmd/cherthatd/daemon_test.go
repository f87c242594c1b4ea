package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cherthat/internal/bridge"
	"cherthat/internal/capture"
	"cherthat/internal/collection"
	"cherthat/internal/testsupport"
)

func startDaemon(t *testing.T, backendURL string, opts daemonOptions) *daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithBackendURL(backendURL))
	d, err := newDaemon(t.Context(), cfg, nil, opts)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping daemon test: %v", err)
		}
		t.Fatalf("newDaemon: %v", err)
	}
	t.Cleanup(d.Close)
	d.Serve()
	return d
}

func TestDaemonRelaysToCollection(t *testing.T) {
	store := collection.NewStore()
	backend := httptest.NewServer(collection.NewServer(nil, store, nil, nil).Handler())
	t.Cleanup(backend.Close)

	d := startDaemon(t, backend.URL, daemonOptions{})

	req, err := capture.NewCaptureRequest("https://cdn.example.com/a.jpg", "https://example.com", time.Now())
	require.NoError(t, err)

	result, err := bridge.Sender{Path: d.cfg.Paths.Socket}.SaveImage(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, result.Local)
	assert.Equal(t, 1, store.Len())
}

func TestDaemonRejectsSecondInstance(t *testing.T) {
	d := startDaemon(t, "http://127.0.0.1:1", daemonOptions{})

	_, err := newDaemon(t.Context(), d.cfg, nil, daemonOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")

	client, err := bridge.Dial(d.cfg.Paths.Socket)
	require.NoError(t, err, "first instance must keep serving")
	defer client.Close()
	status, err := client.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, d.cfg.Paths.Socket, status.Socket)
}

func TestDaemonReleasesLockOnClose(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBackendURL("http://127.0.0.1:1"))
	first, err := newDaemon(t.Context(), cfg, nil, daemonOptions{})
	if err != nil && strings.Contains(err.Error(), "operation not permitted") {
		t.Skipf("skipping daemon test: %v", err)
	}
	require.NoError(t, err)
	first.Close()

	second, err := newDaemon(t.Context(), cfg, nil, daemonOptions{})
	require.NoError(t, err)
	second.Close()
}

func TestDaemonExportsMetrics(t *testing.T) {
	d := startDaemon(t, "http://127.0.0.1:1", daemonOptions{MetricsBind: "127.0.0.1:0"})
	require.NotEmpty(t, d.MetricsAddr())

	req, err := capture.NewCaptureRequest("https://cdn.example.com/b.jpg", "", time.Now())
	require.NoError(t, err)
	result, err := bridge.Sender{Path: d.cfg.Paths.Socket}.SaveImage(context.Background(), req)
	require.NoError(t, err)
	require.True(t, result.Local)

	resp, err := http.Get("http://" + d.MetricsAddr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `outcome="fallback"`)
}

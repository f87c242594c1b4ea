package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// SocketPath returns a unix socket path short enough for sun_path limits.
// t.TempDir paths can exceed them on some systems.
func SocketPath(t testing.TB) string {
	t.Helper()

	dir, err := os.MkdirTemp("", "cht")
	if err != nil {
		t.Fatalf("mkdir socket dir: %v", err)
	}
	t.Cleanup(func() {
		_ = os.RemoveAll(dir)
	})
	return filepath.Join(dir, "relay.sock")
}

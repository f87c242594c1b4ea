package testsupport

import (
	"context"
	"testing"

	"cherthat/internal/capture"
	"cherthat/internal/config"
	"cherthat/internal/fallback"
)

// MustOpenFallback opens a fallback.Store for tests and registers cleanup.
func MustOpenFallback(t testing.TB, cfg *config.Config) *fallback.Store {
	t.Helper()

	store, err := fallback.Open(cfg)
	if err != nil {
		t.Fatalf("fallback.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedFallback appends an image for imageURL and returns the stored record.
func SeedFallback(t testing.TB, store *fallback.Store, imageURL string) capture.CapturedImage {
	t.Helper()

	image, err := store.Save(context.Background(), capture.CaptureRequest{ImageURL: imageURL})
	if err != nil {
		t.Fatalf("store.Save: %v", err)
	}
	return image
}

package gallery_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cherthat/internal/capture"
	"cherthat/internal/collection"
	"cherthat/internal/gallery"
	"cherthat/internal/testsupport"
)

func newService(t *testing.T) (*gallery.Client, *collection.Store) {
	t.Helper()
	store := collection.NewStore()
	srv := collection.NewServer(testsupport.NewConfig(t), store, nil, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return gallery.NewClient(ts.URL+"/api/images", ts.Client()), store
}

func TestListAndDelete(t *testing.T) {
	client, store := newService(t)
	ctx := context.Background()

	older, err := store.Create("https://cdn.example.com/old.jpg", nil, "2024-01-01T00:00:00.000Z")
	require.NoError(t, err)
	_, err = store.Create("https://cdn.example.com/new.jpg", nil, "2024-02-01T00:00:00.000Z")
	require.NoError(t, err)

	images, err := client.List(ctx)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, "https://cdn.example.com/new.jpg", images[0].ImageURL)

	require.NoError(t, client.Delete(ctx, older.ID))
	assert.Equal(t, 1, store.Len())

	err = client.Delete(ctx, older.ID)
	var notFound *capture.NotFoundError
	require.ErrorAs(t, err, &notFound)

	assert.True(t, capture.IsKind(client.Delete(ctx, ""), capture.KindValidation))
}

func TestListEmptyCollection(t *testing.T) {
	client, _ := newService(t)
	images, err := client.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, images)
	assert.Empty(t, images)
}

func TestListSurfacesNetworkErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to fetch images"}`))
	}))
	t.Cleanup(ts.Close)

	_, err := gallery.NewClient(ts.URL, nil).List(context.Background())
	var netErr *capture.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, http.StatusInternalServerError, netErr.StatusCode)
	assert.Contains(t, err.Error(), "Failed to fetch images")
}

func TestPollFetchesImmediatelyAndRepeats(t *testing.T) {
	client, store := newService(t)
	_, err := store.Create("https://cdn.example.com/a.jpg", nil, "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- client.Poll(ctx, 20*time.Millisecond, func(images []capture.CapturedImage, err error) {
			if err == nil && len(images) == 1 && calls.Add(1) == 3 {
				cancel()
			}
		})
	}()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(5 * time.Second):
		t.Fatal("poll did not stop")
	}
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

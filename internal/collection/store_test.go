package collection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cherthat/internal/capture"
)

func TestCreateAssignsUniqueWellFormedIDs(t *testing.T) {
	store := NewStore()
	seen := map[string]struct{}{}
	for range 200 {
		image, err := store.Create("https://cdn.example.com/a.jpg", nil, "")
		require.NoError(t, err)
		assert.True(t, capture.ValidID(image.ID), image.ID)
		_, dup := seen[image.ID]
		require.False(t, dup)
		seen[image.ID] = struct{}{}
	}
}

func TestCreateDefaultsOptionalFields(t *testing.T) {
	store := NewStore()
	fixed := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	image, err := store.Create("https://cdn.example.com/a.jpg", nil, "")
	require.NoError(t, err)
	assert.Nil(t, image.SourceURL)
	assert.Equal(t, "2024-05-06T07:08:09.000Z", image.CreatedAt)

	source := "https://example.com/post"
	image, err = store.Create("https://cdn.example.com/b.jpg", &source, "2020-01-01T00:00:00.000Z")
	require.NoError(t, err)
	require.NotNil(t, image.SourceURL)
	assert.Equal(t, source, *image.SourceURL)
	assert.Equal(t, "2020-01-01T00:00:00.000Z", image.CreatedAt)
}

func TestCreateRejectsEmptyURLWithoutMutation(t *testing.T) {
	store := NewStore()
	_, err := store.Create("", nil, "")

	var validation *capture.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Zero(t, store.Len())
}

func TestListAllNewestFirst(t *testing.T) {
	store := NewStore()
	for _, ts := range []string{"2024-01-01T00:00:01.000Z", "2024-01-01T00:00:03.000Z", "2024-01-01T00:00:02.000Z"} {
		_, err := store.Create("https://cdn.example.com/"+ts, nil, ts)
		require.NoError(t, err)
	}

	images := store.ListAll()
	require.Len(t, images, 3)
	assert.Equal(t, "2024-01-01T00:00:03.000Z", images[0].CreatedAt)
	assert.Equal(t, "2024-01-01T00:00:02.000Z", images[1].CreatedAt)
	assert.Equal(t, "2024-01-01T00:00:01.000Z", images[2].CreatedAt)
}

func TestListAllOrdersTimestampsWithoutZone(t *testing.T) {
	store := NewStore()
	for _, ts := range []string{"2024-01-01T10:00:00", "2024-01-03T10:00:00", "2024-01-02T10:00:00.000", "2024-01-04", "2023-12-31"} {
		_, err := store.Create("https://cdn.example.com/"+ts, nil, ts)
		require.NoError(t, err)
	}

	var got []string
	for _, image := range store.ListAll() {
		got = append(got, image.CreatedAt)
	}
	assert.Equal(t, []string{
		"2024-01-04",
		"2024-01-03T10:00:00",
		"2024-01-02T10:00:00.000",
		"2024-01-01T10:00:00",
		"2023-12-31",
	}, got)
}

func TestDeleteUnknownLeavesListUnchanged(t *testing.T) {
	store := NewStore()
	kept, err := store.Create("https://cdn.example.com/a.jpg", nil, "")
	require.NoError(t, err)

	err = store.Delete("img_0_missing00")
	var notFound *capture.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, 1, store.Len())

	require.NoError(t, store.Delete(kept.ID))
	assert.Zero(t, store.Len())
}

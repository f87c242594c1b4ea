package collection

import (
	"sort"
	"strings"
	"sync"
	"time"

	"cherthat/internal/capture"
)

// Store is an in-memory list of captured images. Contents are lost on
// restart. It is safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	images []capture.CapturedImage
	now    func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// Create appends a new image. sourceURL and createdAt are optional: a nil
// source is kept as null and an empty createdAt defaults to the current time.
func (s *Store) Create(imageURL string, sourceURL *string, createdAt string) (capture.CapturedImage, error) {
	if strings.TrimSpace(imageURL) == "" {
		return capture.CapturedImage{}, &capture.ValidationError{Field: "image_url", Message: "image_url is required"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	image := capture.CapturedImage{
		ID:        capture.NewID(now),
		ImageURL:  imageURL,
		CreatedAt: createdAt,
	}
	if sourceURL != nil && *sourceURL != "" {
		source := *sourceURL
		image.SourceURL = &source
	}
	if strings.TrimSpace(image.CreatedAt) == "" {
		image.CreatedAt = capture.FormatTime(now)
	}
	s.images = append(s.images, image)
	return image, nil
}

// ListAll returns a copy of every image, newest created_at first.
func (s *Store) ListAll() []capture.CapturedImage {
	s.mu.Lock()
	out := make([]capture.CapturedImage, len(s.images))
	copy(out, s.images)
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedTime().After(out[j].CreatedTime())
	})
	return out
}

// Delete removes the image with id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, image := range s.images {
		if image.ID == id {
			s.images = append(s.images[:i], s.images[i+1:]...)
			return nil
		}
	}
	return &capture.NotFoundError{ID: id}
}

// Len reports the number of stored images.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.images)
}

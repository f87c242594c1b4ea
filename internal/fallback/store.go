package fallback

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"cherthat/internal/capture"
	"cherthat/internal/config"
)

// Store manages fallback persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the fallback database under the data dir.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.FallbackDBPath())
}

// OpenPath opens the fallback database at an explicit path.
func OpenPath(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &capture.StorageError{Op: "open", Err: fmt.Errorf("create %s: %w", dir, err)}
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, &capture.StorageError{Op: "open", Err: fmt.Errorf("open sqlite db: %w", err)}
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, &capture.StorageError{Op: "open", Err: fmt.Errorf("apply pragma %q: %w", pragma, execErr)}
		}
	}

	store := &Store{db: db, path: dbPath, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, &capture.StorageError{Op: "open", Err: err}
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save converts a capture request into a stored image with a freshly
// generated id.
func (s *Store) Save(ctx context.Context, req capture.CaptureRequest) (capture.CapturedImage, error) {
	if err := req.Validate(); err != nil {
		return capture.CapturedImage{}, err
	}
	image := capture.ImageFromRequest("", req)
	return s.Append(ctx, image)
}

// Append stores image, assigning an id and created_at when they are empty.
// No uniqueness check is made beyond the table's key.
func (s *Store) Append(ctx context.Context, image capture.CapturedImage) (capture.CapturedImage, error) {
	if s == nil || s.db == nil {
		return capture.CapturedImage{}, &capture.StorageError{Op: "append", Err: errors.New("fallback store is not open")}
	}
	now := s.now()
	if strings.TrimSpace(image.ID) == "" {
		image.ID = capture.NewID(now)
	}
	if strings.TrimSpace(image.CreatedAt) == "" {
		image.CreatedAt = capture.FormatTime(now)
	}

	err := s.execWithRetry(ctx,
		`INSERT INTO images (id, image_url, source_url, created_at, stored_at) VALUES (?, ?, ?, ?, ?)`,
		image.ID, image.ImageURL, nullableString(image.SourceURL), image.CreatedAt, now.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return capture.CapturedImage{}, &capture.StorageError{Op: "append", Err: err}
	}
	return image, nil
}

// ListAll returns every stored image in insertion order.
func (s *Store) ListAll(ctx context.Context) ([]capture.CapturedImage, error) {
	if s == nil || s.db == nil {
		return nil, &capture.StorageError{Op: "list", Err: errors.New("fallback store is not open")}
	}
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT id, image_url, source_url, created_at FROM images ORDER BY seq`)
	if err != nil {
		return nil, &capture.StorageError{Op: "list", Err: err}
	}
	defer rows.Close()

	images := []capture.CapturedImage{}
	for rows.Next() {
		image, err := scanImage(rows)
		if err != nil {
			return nil, &capture.StorageError{Op: "list", Err: err}
		}
		images = append(images, image)
	}
	if err := rows.Err(); err != nil {
		return nil, &capture.StorageError{Op: "list", Err: err}
	}
	return images, nil
}

// Count returns the number of stored images.
func (s *Store) Count(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, &capture.StorageError{Op: "count", Err: errors.New("fallback store is not open")}
	}
	var count int
	if err := s.db.QueryRowContext(ensureContext(ctx), `SELECT COUNT(1) FROM images`).Scan(&count); err != nil {
		return 0, &capture.StorageError{Op: "count", Err: err}
	}
	return count, nil
}

// Clear removes every stored image.
func (s *Store) Clear(ctx context.Context) error {
	if s == nil || s.db == nil {
		return &capture.StorageError{Op: "clear", Err: errors.New("fallback store is not open")}
	}
	if err := s.execWithRetry(ctx, `DELETE FROM images`); err != nil {
		return &capture.StorageError{Op: "clear", Err: err}
	}
	return nil
}

func scanImage(scanner interface{ Scan(dest ...any) error }) (capture.CapturedImage, error) {
	var (
		image  capture.CapturedImage
		source sql.NullString
	)
	if err := scanner.Scan(&image.ID, &image.ImageURL, &source, &image.CreatedAt); err != nil {
		return capture.CapturedImage{}, err
	}
	if source.Valid {
		image.SourceURL = capture.StringPtr(source.String)
	}
	return image, nil
}

func nullableString(value *string) any {
	if value == nil || *value == "" {
		return nil
	}
	return *value
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

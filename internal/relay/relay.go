package relay

import (
	"context"
	"log/slog"
	"time"

	"cherthat/internal/capture"
	"cherthat/internal/logging"
	"cherthat/internal/metrics"
)

// Remote persists a capture on the collection service.
type Remote interface {
	Create(ctx context.Context, req capture.CaptureRequest) (capture.CapturedImage, error)
}

// Store is the local fallback persistence used when Remote fails.
type Store interface {
	Save(ctx context.Context, req capture.CaptureRequest) (capture.CapturedImage, error)
	ListAll(ctx context.Context) ([]capture.CapturedImage, error)
	Clear(ctx context.Context) error
}

// Relay submits captures remotely with a single local fallback. It holds no
// mutable state of its own and may be shared across goroutines when Remote
// and Store are.
type Relay struct {
	remote  Remote
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New constructs a relay. logger and m may be nil.
func New(remote Remote, store Store, logger *slog.Logger, m *metrics.Metrics) *Relay {
	return &Relay{
		remote:  remote,
		store:   store,
		logger:  logging.NewComponentLogger(logger, "relay"),
		metrics: m,
	}
}

// Submit persists req and reports the outcome. Remote success yields
// local=false; a remote failure followed by a successful fallback write yields
// local=true; a failed fallback write yields success=false with the storage
// layer's message.
func (r *Relay) Submit(ctx context.Context, req capture.CaptureRequest) capture.Result {
	start := time.Now()
	logger := logging.WithContext(ctx, r.logger).With(logging.String(logging.FieldImageURL, req.ImageURL))

	if err := req.Validate(); err != nil {
		r.metrics.RecordSubmission(metrics.OutcomeFailed, time.Since(start).Seconds())
		return capture.Failed(err)
	}

	remoteErr := errNoRemote
	if r.remote != nil {
		image, err := r.remote.Create(ctx, req)
		if err == nil {
			r.metrics.RecordSubmission(metrics.OutcomeRemote, time.Since(start).Seconds())
			logger.Info("image saved remotely", logging.String(logging.FieldImageID, image.ID))
			return capture.Saved(image, false)
		}
		remoteErr = err
	}

	logging.WarnWithContext(logger, "remote write failed; storing locally", "relay_remote_failed",
		logging.Error(remoteErr),
		logging.String(logging.FieldErrorHint, "start the collection service or check relay.backend_url"),
		logging.String(logging.FieldImpact, "capture kept in the local fallback store only"),
	)

	if r.store == nil {
		r.metrics.RecordSubmission(metrics.OutcomeFailed, time.Since(start).Seconds())
		return capture.Failed(&capture.StorageError{Op: "append", Err: errNoStore})
	}
	image, err := r.store.Save(ctx, req)
	if err != nil {
		r.metrics.RecordSubmission(metrics.OutcomeFailed, time.Since(start).Seconds())
		logging.ErrorWithContext(logger, "fallback write failed", "relay_fallback_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the data directory is writable"),
		)
		return capture.Failed(err)
	}

	r.metrics.RecordSubmission(metrics.OutcomeFallback, time.Since(start).Seconds())
	logger.Info("image saved locally", logging.String(logging.FieldImageID, image.ID))
	return capture.Saved(image, true)
}

// LocalImages lists the fallback store contents.
func (r *Relay) LocalImages(ctx context.Context) ([]capture.CapturedImage, error) {
	if r.store == nil {
		return nil, &capture.StorageError{Op: "list", Err: errNoStore}
	}
	return r.store.ListAll(ctx)
}

// ClearLocalImages empties the fallback store.
func (r *Relay) ClearLocalImages(ctx context.Context) error {
	if r.store == nil {
		return &capture.StorageError{Op: "clear", Err: errNoStore}
	}
	if err := r.store.Clear(ctx); err != nil {
		return err
	}
	r.logger.Info("local images cleared")
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gofrs/flock"

	"cherthat/internal/bridge"
	"cherthat/internal/config"
	"cherthat/internal/fallback"
	"cherthat/internal/logging"
	"cherthat/internal/metrics"
	"cherthat/internal/relay"
)

type daemonOptions struct {
	MetricsBind string
}

// daemon owns the single-instance lock, the fallback store, and the bridge
// socket for one relay process.
type daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	lock    *flock.Flock
	store   *fallback.Store
	server  *bridge.Server
	metrics *metrics.Metrics

	metricsServer   *http.Server
	metricsListener net.Listener
}

// newDaemon acquires the lock and binds the socket. It fails when another
// cherthatd holds the lock for the same data directory.
func newDaemon(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts daemonOptions) (*daemon, error) {
	if cfg == nil {
		return nil, errors.New("cherthatd requires configuration")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another cherthatd instance is already running (lock %s)", cfg.LockPath())
	}

	d := &daemon{
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "daemon"),
		lock:    lock,
		metrics: metrics.New(),
	}

	store, err := fallback.Open(cfg)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("open fallback store: %w", err)
	}
	d.store = store

	remote := relay.NewRemoteClient(cfg.ImagesEndpoint(), cfg.RelayTimeout())
	r := relay.New(remote, store, logger, d.metrics)

	server, err := bridge.NewServer(ctx, cfg.Paths.Socket, r, logger, d.metrics)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("start bridge server: %w", err)
	}
	d.server = server

	if opts.MetricsBind != "" {
		if err := d.startMetrics(opts.MetricsBind); err != nil {
			d.Close()
			return nil, err
		}
	}

	d.logger.Info("relay ready",
		logging.String("socket", cfg.Paths.Socket),
		logging.String("backend", cfg.ImagesEndpoint()),
		logging.String("fallback_db", store.Path()),
	)
	return d, nil
}

func (d *daemon) startMetrics(bind string) error {
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("metrics listen: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", d.metrics.Handler())
	d.metricsListener = listener
	d.metricsServer = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := d.metricsServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.WarnWithContext(d.logger, "metrics server stopped", "metrics_serve_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "relay metrics are not being exported"))
		}
	}()
	d.logger.Info("metrics listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Serve starts accepting bridge connections.
func (d *daemon) Serve() {
	d.server.Serve()
}

// MetricsAddr returns the metrics listener address, if any.
func (d *daemon) MetricsAddr() string {
	if d.metricsListener == nil {
		return ""
	}
	return d.metricsListener.Addr().String()
}

// Close releases the socket, the store, and the lock in that order.
func (d *daemon) Close() {
	if d.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = d.metricsServer.Shutdown(ctx)
		cancel()
		d.metricsServer = nil
	}
	if d.server != nil {
		d.server.Close()
		d.server = nil
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.logger.Warn("close fallback store", logging.Error(err))
		}
		d.store = nil
	}
	if d.lock != nil {
		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("release lock", logging.Error(err))
		}
		d.lock = nil
	}
}

package collection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"cherthat/internal/capture"
	"cherthat/internal/config"
	"cherthat/internal/logging"
	"cherthat/internal/metrics"
)

// createRequest is the POST body. SourceURL is a pointer so an absent value
// stays null.
type createRequest struct {
	ImageURL  string  `json:"image_url"`
	SourceURL *string `json:"source_url"`
	CreatedAt string  `json:"created_at"`
}

// Server serves the collection API.
type Server struct {
	bind    string
	store   *Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	engine  *gin.Engine

	listener net.Listener
	server   *http.Server
}

// NewServer builds the gin engine for store. A nil logger discards output and
// nil metrics records nothing; /metrics is only mounted when metrics is set.
func NewServer(cfg *config.Config, store *Store, logger *slog.Logger, m *metrics.Metrics) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	if store == nil {
		store = NewStore()
	}
	gin.SetMode(gin.ReleaseMode)

	var origins []string
	bind := ""
	if cfg != nil {
		origins = cfg.Server.CORSOrigins
		bind = strings.TrimSpace(cfg.Server.Bind)
	}

	srv := &Server{
		bind:    bind,
		store:   store,
		logger:  logging.NewComponentLogger(logger, "collection"),
		metrics: m,
	}

	engine := gin.New()
	engine.Use(
		recoveryMiddleware(srv.logger),
		requestIDMiddleware(),
		corsMiddleware(origins),
		loggerMiddleware(srv.logger),
	)

	images := engine.Group("/api/images")
	images.POST("", srv.handleCreate)
	images.GET("", srv.handleList)
	images.DELETE("", srv.handleDelete)
	images.OPTIONS("", func(c *gin.Context) { c.Status(http.StatusOK) })

	engine.GET("/healthz", srv.handleHealth)
	if m != nil {
		engine.GET("/metrics", gin.WrapH(m.Handler()))
	}
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	srv.engine = engine
	srv.server = &http.Server{
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Store returns the backing store.
func (s *Server) Store() *Store {
	return s.store
}

// Start listens on the configured bind address and serves until ctx is done
// or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	if s.bind == "" {
		return errors.New("collection server: bind address is empty")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("collection listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "collection server error", "http_serve_failed", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("collection server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound listener address, or an empty string before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting up to five seconds for in-flight requests.
func (s *Server) Stop() {
	if s.server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

func (s *Server) handleCreate(c *gin.Context) {
	var body createRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&body); err != nil {
		_ = c.Error(err)
		s.metrics.RecordRejected("malformed_body")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save image", "message": err.Error()})
		return
	}

	image, err := s.store.Create(body.ImageURL, body.SourceURL, body.CreatedAt)
	if err != nil {
		var validation *capture.ValidationError
		if errors.As(err, &validation) {
			s.metrics.RecordRejected("missing_image_url")
			c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error()})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save image", "message": err.Error()})
		return
	}

	total := s.store.Len()
	s.metrics.RecordCreated(total)
	logging.WithContext(c.Request.Context(), s.logger).Info("image saved",
		logging.String(logging.FieldImageID, image.ID),
		logging.Int("total_images", total),
	)
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": image})
}

func (s *Server) handleList(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": s.store.ListAll()})
}

func (s *Server) handleDelete(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		s.metrics.RecordRejected("missing_id")
		c.JSON(http.StatusBadRequest, gin.H{"error": "id parameter is required"})
		return
	}

	if err := s.store.Delete(id); err != nil {
		var notFound *capture.NotFoundError
		if errors.As(err, &notFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete image", "message": err.Error()})
		return
	}

	remaining := s.store.Len()
	s.metrics.RecordDeleted(remaining)
	logging.WithContext(c.Request.Context(), s.logger).Info("image deleted",
		logging.String(logging.FieldImageID, id),
		logging.Int("remaining_images", remaining),
	)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Image deleted"})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "images": s.store.Len()})
}

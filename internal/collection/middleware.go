package collection

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cherthat/internal/logging"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"

	allowedMethods = "GET, POST, DELETE, OPTIONS"
	allowedHeaders = "Content-Type"
)

// corsMiddleware attaches CORS headers to every response. Preflight requests
// are answered with 200 and an empty body.
func corsMiddleware(origins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.Writer.Header()
		header.Set("Access-Control-Allow-Origin", allowedOrigin(c.GetHeader("Origin"), origins))
		header.Set("Access-Control-Allow-Methods", allowedMethods)
		header.Set("Access-Control-Allow-Headers", allowedHeaders)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

// allowedOrigin answers "*" under the default wildcard list. An operator list
// without "*" echoes listed origins and answers "null" to the rest.
func allowedOrigin(origin string, origins []string) string {
	if origin == "" || len(origins) == 0 {
		return "*"
	}
	for _, allowed := range origins {
		if allowed == "*" {
			return "*"
		}
		if strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return "null"
}

// requestIDMiddleware tags each request with an id taken from X-Request-ID or
// freshly generated, and stores it on the request context for logging.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Request = c.Request.WithContext(logging.WithCorrelationID(c.Request.Context(), requestID))
		c.Next()
	}
}

// loggerMiddleware logs one line per request once the handler chain completes.
func loggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		attrs := []logging.Attr{
			logging.String("method", method),
			logging.String("path", path),
			logging.Int("status", c.Writer.Status()),
			logging.Duration("duration", time.Since(start)),
			logging.String("client_ip", c.ClientIP()),
		}
		if query := c.Request.URL.RawQuery; query != "" {
			attrs = append(attrs, logging.String("query", query))
		}
		reqLogger := logging.WithContext(c.Request.Context(), logger)
		if len(c.Errors) > 0 {
			attrs = append(attrs, logging.String("errors", c.Errors.String()))
			logging.ErrorWithContext(reqLogger, "http request with errors", "http_request_failed", attrs...)
			return
		}
		if strings.HasPrefix(path, "/healthz") || strings.HasPrefix(path, "/metrics") {
			reqLogger.Debug("http request", logging.Args(attrs...)...)
			return
		}
		reqLogger.Info("http request", logging.Args(attrs...)...)
	}
}

// recoveryMiddleware converts handler panics into a 500 response.
func recoveryMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if recovered := recover(); recovered != nil {
				logging.ErrorWithContext(logging.WithContext(c.Request.Context(), logger), "panic recovered", "http_panic",
					logging.Any("panic", recovered),
					logging.String("path", c.Request.URL.Path),
					logging.String("method", c.Request.Method),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":   "Internal server error",
					"message": "An unexpected error occurred",
				})
			}
		}()
		c.Next()
	}
}

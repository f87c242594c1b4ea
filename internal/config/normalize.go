package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServer()
	c.normalizeRelay()
	c.normalizeControl()
	if c.Gallery.PollIntervalMS <= 0 {
		c.Gallery.PollIntervalMS = defaultGalleryPollMS
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.Socket) == "" {
		c.Paths.Socket = filepath.Join(c.Paths.DataDir, defaultSocketName)
	}
	if c.Paths.Socket, err = expandPath(c.Paths.Socket); err != nil {
		return fmt.Errorf("paths.socket: %w", err)
	}
	return nil
}

func (c *Config) normalizeServer() {
	if value, ok := os.LookupEnv("CHERTHAT_API_BIND"); ok && strings.TrimSpace(value) != "" {
		c.Server.Bind = value
	}
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	origins := make([]string, 0, len(c.Server.CORSOrigins))
	seen := make(map[string]struct{}, len(c.Server.CORSOrigins))
	for _, origin := range c.Server.CORSOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if _, exists := seen[origin]; exists {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	if len(origins) == 0 {
		origins = []string{defaultCORSAllowedOrigin}
	}
	c.Server.CORSOrigins = origins
}

func (c *Config) normalizeRelay() {
	if value, ok := os.LookupEnv("CHERTHAT_BACKEND_URL"); ok && strings.TrimSpace(value) != "" {
		c.Relay.BackendURL = value
	}
	c.Relay.BackendURL = strings.TrimRight(strings.TrimSpace(c.Relay.BackendURL), "/")
	if c.Relay.BackendURL == "" {
		c.Relay.BackendURL = defaultBackendURL
	}
	if c.Relay.RequestTimeout < 0 {
		c.Relay.RequestTimeout = 0
	}
}

func (c *Config) normalizeControl() {
	if c.Control.MinWidth <= 0 {
		c.Control.MinWidth = defaultMinWidth
	}
	if c.Control.MinHeight <= 0 {
		c.Control.MinHeight = defaultMinHeight
	}
	if c.Control.HideGraceMS <= 0 {
		c.Control.HideGraceMS = defaultHideGraceMS
	}
	if c.Control.ResultDisplayMS <= 0 {
		c.Control.ResultDisplayMS = defaultResultDisplayMS
	}
	c.Control.ProductName = strings.TrimSpace(c.Control.ProductName)
	if c.Control.ProductName == "" {
		c.Control.ProductName = defaultProductName
	}
	c.Control.GalleryURL = strings.TrimSpace(c.Control.GalleryURL)
	if c.Control.GalleryURL == "" {
		c.Control.GalleryURL = defaultGalleryURL
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

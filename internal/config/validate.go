package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRelay(); err != nil {
		return err
	}
	if err := c.validateControl(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRelay() error {
	parsed, err := url.Parse(c.Relay.BackendURL)
	if err != nil {
		return fmt.Errorf("relay.backend_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("relay.backend_url must use http or https, got %q", c.Relay.BackendURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("relay.backend_url must include a host, got %q", c.Relay.BackendURL)
	}
	return nil
}

func (c *Config) validateControl() error {
	if c.Control.ResultDisplayMS < c.Control.HideGraceMS {
		return errors.New("control.result_display_ms must not be shorter than control.hide_grace_ms")
	}
	if _, err := url.Parse(c.Control.GalleryURL); err != nil {
		return fmt.Errorf("control.gallery_url: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
}

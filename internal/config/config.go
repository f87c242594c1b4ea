package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and socket configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	Socket  string `toml:"socket"`
}

// Server contains configuration for the collection service HTTP listener.
type Server struct {
	Bind        string   `toml:"bind"`
	CORSOrigins []string `toml:"cors_origins"`
}

// Relay contains configuration for the capture relay's remote write.
type Relay struct {
	BackendURL string `toml:"backend_url"`
	// RequestTimeout is in seconds. Zero leaves the transport without a
	// client-side deadline.
	RequestTimeout int `toml:"request_timeout"`
}

// Control contains the capture-control thresholds and timings.
type Control struct {
	MinWidth        float64 `toml:"min_width"`
	MinHeight       float64 `toml:"min_height"`
	HideGraceMS     int     `toml:"hide_grace_ms"`
	ResultDisplayMS int     `toml:"result_display_ms"`
	ProductName     string  `toml:"product_name"`
	GalleryURL      string  `toml:"gallery_url"`
}

// Gallery contains configuration for the gallery client.
type Gallery struct {
	PollIntervalMS int `toml:"poll_interval_ms"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for CherThat.
//
// Configuration sections by subsystem:
//   - Paths: data, log, and relay socket locations
//   - Server: collection service bind address and CORS origins
//   - Relay: remote collection endpoint used by the relay
//   - Control: hover thresholds, grace period, result display delay
//   - Gallery: polling interval for the gallery client
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Server  Server  `toml:"server"`
	Relay   Relay   `toml:"relay"`
	Control Control `toml:"control"`
	Gallery Gallery `toml:"gallery"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/cherthat/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			if os.IsNotExist(err) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config path %q is a directory", expanded)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/cherthat/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("cherthat.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, filepath.Dir(c.Paths.Socket)} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FallbackDBPath returns the SQLite file backing the local fallback store.
func (c *Config) FallbackDBPath() string {
	return filepath.Join(c.Paths.DataDir, "fallback.db")
}

// LockPath returns the relay daemon's single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "cherthatd.lock")
}

// ImagesEndpoint returns the collection service's images resource URL.
func (c *Config) ImagesEndpoint() string {
	return strings.TrimRight(c.Relay.BackendURL, "/") + "/api/images"
}

// HideGrace returns the control's pending-hide grace period.
func (c *Config) HideGrace() time.Duration {
	return time.Duration(c.Control.HideGraceMS) * time.Millisecond
}

// ResultDisplay returns how long the control shows its terminal state.
func (c *Config) ResultDisplay() time.Duration {
	return time.Duration(c.Control.ResultDisplayMS) * time.Millisecond
}

// PollInterval returns the gallery client's polling interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Gallery.PollIntervalMS) * time.Millisecond
}

// RelayTimeout returns the relay's HTTP client timeout; zero means none.
func (c *Config) RelayTimeout() time.Duration {
	return time.Duration(c.Relay.RequestTimeout) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

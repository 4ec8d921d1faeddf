// Package config loads vitalwatch settings from a YAML file, merged over
// defaults and then overridden from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"vitalwatch/internal/models"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Source  SourceConfig  `yaml:"source"`
	Storage StorageConfig `yaml:"storage"`
	Polling PollingConfig `yaml:"polling"`
}

// ServerConfig holds the render-layer API settings
type ServerConfig struct {
	// Listen is the host:port the API binds to
	Listen string `yaml:"listen"`
	// GinMode is "debug", "release" or "test"
	GinMode string `yaml:"gin_mode"`
	// AllowedOrigins limits CORS and WebSocket origins; empty allows all
	AllowedOrigins []string `yaml:"allowed_origins"`
	// AllowedIPs limits client IPs; empty allows all
	AllowedIPs []string `yaml:"allowed_ips"`
	// RateLimit is requests per second per client IP
	RateLimit float64 `yaml:"rate_limit"`
	// RateBurst is the token bucket size per client IP
	RateBurst int `yaml:"rate_burst"`
	// PushInterval is how often WebSocket clients receive status
	PushInterval string `yaml:"push_interval"`
}

// SourceConfig selects where samples come from
type SourceConfig struct {
	// Kind is "http" (remote producer) or "local" (this host)
	Kind string `yaml:"kind"`
	// BaseURL is the producer root, e.g. http://host:8000
	BaseURL string `yaml:"base_url"`
	// Timeout bounds each HTTP fetch
	Timeout string `yaml:"timeout"`
	// DiskPath is the mount point reported by the local source
	DiskPath string `yaml:"disk_path"`
}

// StorageConfig holds persistence settings
type StorageConfig struct {
	// Dir holds the persisted history record
	Dir string `yaml:"dir"`
	// FlushInterval bounds how long appended points stay unsaved
	FlushInterval string `yaml:"flush_interval"`
	// BatchSize flushes on every n-th append
	BatchSize int `yaml:"batch_size"`
}

// PollingConfig holds the initial cadence and view window
type PollingConfig struct {
	IntervalMs      int64   `yaml:"interval_ms"`
	ViewWindowHours float64 `yaml:"view_window_hours"`
}

// DefaultConfig returns a Config populated with sensible defaults
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		Server: ServerConfig{
			Listen:       "localhost:8080",
			GinMode:      "release",
			RateLimit:    100,
			RateBurst:    200,
			PushInterval: "1s",
		},
		Source: SourceConfig{
			Kind:     "http",
			BaseURL:  "http://localhost:8000",
			Timeout:  "10s",
			DiskPath: "/",
		},
		Storage: StorageConfig{
			Dir:           filepath.Join(home, ".cache", "vitalwatch"),
			FlushInterval: "10s",
			BatchSize:     5,
		},
		Polling: PollingConfig{
			IntervalMs:      models.DefaultIntervalMs,
			ViewWindowHours: models.DefaultViewWindowHours,
		},
	}
}

// LoadConfig loads configuration from a YAML file, merging with defaults,
// then applies VITALWATCH_* environment overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	cfg.Storage.Dir = expandHome(cfg.Storage.Dir)
	return cfg, nil
}

// expandHome replaces a leading ~ with the user's home directory
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// applyEnvOverrides replaces file values with VITALWATCH_* variables when set
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("VITALWATCH_LISTEN"); v != "" {
		cfg.Server.Listen = v
	}
	if v := os.Getenv("VITALWATCH_GIN_MODE"); v != "" {
		cfg.Server.GinMode = v
	}
	if v := os.Getenv("VITALWATCH_ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("VITALWATCH_SOURCE"); v != "" {
		cfg.Source.Kind = v
	}
	if v := os.Getenv("VITALWATCH_BASE_URL"); v != "" {
		cfg.Source.BaseURL = v
	}
	if v := os.Getenv("VITALWATCH_STORAGE_DIR"); v != "" {
		cfg.Storage.Dir = v
	}
	if v := os.Getenv("VITALWATCH_INTERVAL_MS"); v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: VITALWATCH_INTERVAL_MS: %w", err)
		}
		cfg.Polling.IntervalMs = ms
	}
	if v := os.Getenv("VITALWATCH_VIEW_WINDOW_HOURS"); v != "" {
		hours, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: VITALWATCH_VIEW_WINDOW_HOURS: %w", err)
		}
		cfg.Polling.ViewWindowHours = hours
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the configuration for required fields and logical consistency
func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return fmt.Errorf("server.listen is required")
	}
	switch c.Server.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.gin_mode must be 'debug', 'release' or 'test', got %q", c.Server.GinMode)
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		return fmt.Errorf("server.rate_limit and server.rate_burst must be non-negative")
	}
	if _, err := parseDuration("server.push_interval", c.Server.PushInterval); err != nil {
		return err
	}

	switch c.Source.Kind {
	case "http":
		if c.Source.BaseURL == "" {
			return fmt.Errorf("source.base_url is required for the http source")
		}
	case "local":
	default:
		return fmt.Errorf("source.kind must be 'http' or 'local', got %q", c.Source.Kind)
	}
	if _, err := parseDuration("source.timeout", c.Source.Timeout); err != nil {
		return err
	}

	if c.Storage.Dir == "" {
		return fmt.Errorf("storage.dir is required")
	}
	if _, err := parseDuration("storage.flush_interval", c.Storage.FlushInterval); err != nil {
		return err
	}
	if c.Storage.BatchSize < 0 {
		return fmt.Errorf("storage.batch_size must be non-negative, got %d", c.Storage.BatchSize)
	}

	return c.PollingConfig().Validate()
}

// PollingConfig returns the initial polling settings
func (c *Config) PollingConfig() models.PollingConfig {
	return models.PollingConfig{
		IntervalMs:      c.Polling.IntervalMs,
		ViewWindowHours: c.Polling.ViewWindowHours,
	}
}

// SourceTimeout returns source.timeout, 0 if unset
func (c *Config) SourceTimeout() time.Duration {
	d, _ := parseDuration("source.timeout", c.Source.Timeout)
	return d
}

// FlushInterval returns storage.flush_interval, 0 if unset
func (c *Config) FlushInterval() time.Duration {
	d, _ := parseDuration("storage.flush_interval", c.Storage.FlushInterval)
	return d
}

// PushInterval returns server.push_interval, 0 if unset
func (c *Config) PushInterval() time.Duration {
	d, _ := parseDuration("server.push_interval", c.Server.PushInterval)
	return d
}

// parseDuration accepts an empty string as zero
func parseDuration(field, v string) (time.Duration, error) {
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must be non-negative, got %s", field, v)
	}
	return d, nil
}

package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config is the full application configuration.
// Priority: defaults -> TOML file(s) -> COGSIM_* environment -> CLI flags.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Workdir   string          `toml:"workdir"`
	Auth      AuthConfig      `toml:"auth"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Audit     AuditConfig     `toml:"audit"`
	Worker    WorkerConfig    `toml:"worker"`
	Queue     QueueConfig     `toml:"queue"`
	Logging   LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

type AuthConfig struct {
	// APIKey, when non-empty, gates every endpoint on the X-API-Key header.
	APIKey string `toml:"api_key"`
}

type RateLimitConfig struct {
	Enabled     bool `toml:"enabled"`
	MaxRequests int  `toml:"max_requests"`
	WindowSec   int  `toml:"window_sec"`
}

type AuditConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type WorkerConfig struct {
	Enabled         bool   `toml:"enabled"`
	Concurrency     int    `toml:"concurrency"`
	PollIntervalSec int    `toml:"poll_interval_sec"`
	SweepSchedule   string `toml:"sweep_schedule"`
	StaleAfterSec   int    `toml:"stale_after_sec"`
}

type QueueConfig struct {
	DefaultMaxAttempts int `toml:"default_max_attempts"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`
	Output []string `toml:"output"`
}

// NewDefaultConfig returns the baseline configuration
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Workdir: "./runs",
		Auth:    AuthConfig{APIKey: ""},
		RateLimit: RateLimitConfig{
			Enabled:     true,
			MaxRequests: 120,
			WindowSec:   60,
		},
		Audit: AuditConfig{
			Enabled: true,
			Path:    "./logs/audit.jsonl",
		},
		Worker: WorkerConfig{
			Enabled:         true,
			Concurrency:     2,
			PollIntervalSec: 2,
			SweepSchedule:   "@every 1m",
			StaleAfterSec:   900,
		},
		Queue: QueueConfig{
			DefaultMaxAttempts: 3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
	}
}

// LoadFromFiles loads configuration from defaults, then overlays each TOML
// file in order, then applies environment overrides.
func LoadFromFiles(paths []string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	config.applyEnvOverrides()

	return config, nil
}

// applyEnvOverrides applies COGSIM_* environment variable overrides
func (c *Config) applyEnvOverrides() {
	if host := os.Getenv("COGSIM_SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("COGSIM_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if workdir := os.Getenv("COGSIM_WORKDIR"); workdir != "" {
		c.Workdir = workdir
	}
	if apiKey := os.Getenv("COGSIM_API_KEY"); apiKey != "" {
		c.Auth.APIKey = apiKey
	}
	if enabled := os.Getenv("COGSIM_RATE_LIMIT_ENABLED"); enabled != "" {
		c.RateLimit.Enabled = parseBool(enabled, c.RateLimit.Enabled)
	}
	if max := os.Getenv("COGSIM_RATE_LIMIT_MAX"); max != "" {
		if m, err := strconv.Atoi(max); err == nil {
			c.RateLimit.MaxRequests = m
		}
	}
	if window := os.Getenv("COGSIM_RATE_LIMIT_WINDOW_SEC"); window != "" {
		if w, err := strconv.Atoi(window); err == nil {
			c.RateLimit.WindowSec = w
		}
	}
	if enabled := os.Getenv("COGSIM_AUDIT_ENABLED"); enabled != "" {
		c.Audit.Enabled = parseBool(enabled, c.Audit.Enabled)
	}
	if path := os.Getenv("COGSIM_AUDIT_PATH"); path != "" {
		c.Audit.Path = path
	}
	if level := os.Getenv("COGSIM_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return fallback
}

// ApplyFlagOverrides applies CLI flag overrides (highest priority)
func (c *Config) ApplyFlagOverrides(port int, workdir string, logLevel string) {
	if port > 0 {
		c.Server.Port = port
	}
	if workdir != "" {
		c.Workdir = workdir
	}
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// DatabasePath returns the SQLite file location under the work directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Workdir, "service.db")
}

// Effective returns a redacted snapshot of the running configuration,
// suitable for the /config/effective endpoint.
func (c *Config) Effective() map[string]interface{} {
	return map[string]interface{}{
		"server": map[string]interface{}{
			"host": c.Server.Host,
			"port": c.Server.Port,
		},
		"workdir":          c.Workdir,
		"api_key_required": c.Auth.APIKey != "",
		"rate_limit": map[string]interface{}{
			"enabled":      c.RateLimit.Enabled,
			"max_requests": c.RateLimit.MaxRequests,
			"window_sec":   c.RateLimit.WindowSec,
		},
		"audit": map[string]interface{}{
			"enabled": c.Audit.Enabled,
			"path":    c.Audit.Path,
		},
		"worker": map[string]interface{}{
			"enabled":           c.Worker.Enabled,
			"concurrency":       c.Worker.Concurrency,
			"poll_interval_sec": c.Worker.PollIntervalSec,
			"sweep_schedule":    c.Worker.SweepSchedule,
			"stale_after_sec":   c.Worker.StaleAfterSec,
		},
		"queue": map[string]interface{}{
			"default_max_attempts": c.Queue.DefaultMaxAttempts,
		},
		"logging": map[string]interface{}{
			"level":  c.Logging.Level,
			"output": c.Logging.Output,
		},
	}
}

// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for watrack.
package config

import "time"

// Config is the top-level configuration structure.
type Config struct {
	// Log controls structured logging output.
	Log LogConfig `yaml:"log"`

	// Database configures the SQLite store.
	Database DatabaseConfig `yaml:"database"`

	// Media configures the attachment store.
	Media MediaConfig `yaml:"media"`

	// Bridge configures the connection to the browser-automation bridge.
	Bridge BridgeConfig `yaml:"bridge"`

	// Gateway configures the HTTP API server.
	Gateway GatewayConfig `yaml:"gateway"`

	// Fanout configures the notification hub.
	Fanout FanoutConfig `yaml:"fanout"`

	// Reconcile configures the periodic chat-summary reconciliation job.
	Reconcile ReconcileConfig `yaml:"reconcile"`
}

// LogConfig controls logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	// Path is the SQLite database file path.
	Path string `yaml:"path"`
}

// MediaConfig configures the attachment store.
type MediaConfig struct {
	// Dir is the media root directory.
	Dir string `yaml:"dir"`
}

// BridgeConfig configures the messaging-client bridge.
type BridgeConfig struct {
	// URL is the WebSocket endpoint of the bridge process.
	URL string `yaml:"url"`
}

// GatewayConfig configures the HTTP API server.
type GatewayConfig struct {
	// Bind is the listen address, e.g. "127.0.0.1:4000".
	Bind string `yaml:"bind"`

	// Auth holds optional API authentication settings.
	Auth AuthConfig `yaml:"auth"`

	ReadTimeout     string `yaml:"read_timeout"`
	WriteTimeout    string `yaml:"write_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// AuthConfig holds API authentication settings. An empty bearer token
// disables authentication.
type AuthConfig struct {
	BearerToken string `yaml:"bearer_token"`
}

// IsConfigured reports whether authentication is enabled.
func (a AuthConfig) IsConfigured() bool {
	return a.BearerToken != ""
}

// FanoutConfig configures the notification hub.
type FanoutConfig struct {
	// Buffer is the per-subscriber event buffer. Events beyond it are
	// dropped rather than blocking the pipeline.
	Buffer int `yaml:"buffer"`
}

// ReconcileConfig configures the chat-summary reconciliation job.
type ReconcileConfig struct {
	Enabled bool `yaml:"enabled"`

	// Schedule is a five-field cron expression.
	Schedule string `yaml:"schedule"`
}

// defaults fills zero values with sensible defaults.
func (c *Config) defaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Database.Path == "" {
		c.Database.Path = "watrack.db"
	}
	if c.Media.Dir == "" {
		c.Media.Dir = "media"
	}
	if c.Bridge.URL == "" {
		c.Bridge.URL = "ws://127.0.0.1:4100/session"
	}
	if c.Gateway.Bind == "" {
		c.Gateway.Bind = "127.0.0.1:4000"
	}
	if c.Gateway.ReadTimeout == "" {
		c.Gateway.ReadTimeout = "30s"
	}
	if c.Gateway.WriteTimeout == "" {
		c.Gateway.WriteTimeout = "60s"
	}
	if c.Gateway.ShutdownTimeout == "" {
		c.Gateway.ShutdownTimeout = "10s"
	}
	if c.Fanout.Buffer <= 0 {
		c.Fanout.Buffer = 64
	}
	if c.Reconcile.Schedule == "" {
		c.Reconcile.Schedule = "*/15 * * * *"
	}
}

// GatewayReadTimeout returns the parsed read timeout. Validate guarantees
// the value parses.
func (c GatewayConfig) GatewayReadTimeout() time.Duration {
	d, _ := time.ParseDuration(c.ReadTimeout)
	return d
}

// GatewayWriteTimeout returns the parsed write timeout.
func (c GatewayConfig) GatewayWriteTimeout() time.Duration {
	d, _ := time.ParseDuration(c.WriteTimeout)
	return d
}

// GatewayShutdownTimeout returns the parsed shutdown timeout.
func (c GatewayConfig) GatewayShutdownTimeout() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

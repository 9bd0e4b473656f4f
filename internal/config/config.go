// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

// Package config loads the real-time server configuration.
//
// Sources are layered, later ones winning:
//  1. Built-in defaults (defaultConfig)
//  2. Optional YAML file (CONFIG_PATH, or config.yaml in the working directory)
//  3. Environment variables with an explicit name mapping (see envTransformFunc)
//
// Config is immutable after Load and safe to share between goroutines.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	WebSocket   WebSocketConfig   `koanf:"websocket"`
	Router      RouterConfig      `koanf:"router"`
	Database    DatabaseConfig    `koanf:"database"`
	Idempotency IdempotencyConfig `koanf:"idempotency"`
	Relay       RelayConfig       `koanf:"relay"`
	Security    SecurityConfig    `koanf:"security"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// ServerConfig controls the HTTP listener that also serves /ws.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // development or production
}

// Addr returns host:port for http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// WebSocketConfig tunes the transport gateway.
type WebSocketConfig struct {
	// PingInterval is how often the application "ping" frame is broadcast.
	PingInterval time.Duration `koanf:"ping_interval"`

	// PongWait is the read deadline refreshed by protocol pongs.
	PongWait  time.Duration `koanf:"pong_wait"`
	WriteWait time.Duration `koanf:"write_wait"`

	MaxMessageSize int64 `koanf:"max_message_size"`
	SendBuffer     int   `koanf:"send_buffer"`

	// InboundRatePerSecond caps frames per connection. Zero disables the limiter.
	InboundRatePerSecond float64 `koanf:"inbound_rate_per_second"`
	InboundBurst         int     `koanf:"inbound_burst"`

	AllowedOrigins []string `koanf:"allowed_origins"`
}

// RouterConfig bounds per-message work on the gateway loop.
type RouterConfig struct {
	HandlerTimeout time.Duration `koanf:"handler_timeout"`
}

// DatabaseConfig configures DuckDB and the breaker in front of it.
type DatabaseConfig struct {
	Path         string `koanf:"path"`
	MaxMemory    string `koanf:"max_memory"`
	Threads      int    `koanf:"threads"`
	SeedDemoData bool   `koanf:"seed_demo_data"`

	BreakerMaxRequests      uint32        `koanf:"breaker_max_requests"`
	BreakerInterval         time.Duration `koanf:"breaker_interval"`
	BreakerTimeout          time.Duration `koanf:"breaker_timeout"`
	BreakerFailureThreshold uint32        `koanf:"breaker_failure_threshold"`
}

// IdempotencyConfig configures replay protection for client request ids.
type IdempotencyConfig struct {
	Enabled bool          `koanf:"enabled"`
	Backend string        `koanf:"backend"` // badger or memory
	Path    string        `koanf:"path"`    // badger directory; empty means in-memory badger
	TTL     time.Duration `koanf:"ttl"`
}

// RelayConfig configures cross-node live push over NATS. It only has an
// effect in binaries built with -tags nats.
type RelayConfig struct {
	Enabled        bool   `koanf:"enabled"`
	URL            string `koanf:"url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	Host           string `koanf:"host"`
	Port           int    `koanf:"port"`
	Subject        string `koanf:"subject"`

	// NodeID identifies this process on the relay. Generated when empty.
	NodeID string `koanf:"node_id"`
}

// SecurityConfig covers CORS and HTTP rate limiting.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads defaults, the optional config file and the environment, then
// validates the result.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

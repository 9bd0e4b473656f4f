// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks ranges and enumerations across every section.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateWebSocket(); err != nil {
		return err
	}
	if err := c.validateRouter(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateIdempotency(); err != nil {
		return err
	}
	if err := c.validateRelay(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	env := strings.ToLower(c.Server.Environment)
	if env != "development" && env != "production" {
		return fmt.Errorf("ENVIRONMENT must be development or production, got %q", c.Server.Environment)
	}
	return nil
}

func (c *Config) validateWebSocket() error {
	ws := c.WebSocket
	if ws.PingInterval < 100*time.Millisecond {
		return fmt.Errorf("WS_PING_INTERVAL must be at least 100ms, got %v", ws.PingInterval)
	}
	if ws.PongWait <= ws.PingInterval {
		return fmt.Errorf("WS_PONG_WAIT (%v) must be longer than WS_PING_INTERVAL (%v)", ws.PongWait, ws.PingInterval)
	}
	if ws.WriteWait <= 0 {
		return fmt.Errorf("WS_WRITE_WAIT must be positive, got %v", ws.WriteWait)
	}
	if ws.MaxMessageSize < 512 {
		return fmt.Errorf("WS_MAX_MESSAGE_SIZE must be at least 512 bytes, got %d", ws.MaxMessageSize)
	}
	if ws.SendBuffer < 1 {
		return fmt.Errorf("WS_SEND_BUFFER must be at least 1, got %d", ws.SendBuffer)
	}
	if ws.InboundRatePerSecond < 0 {
		return fmt.Errorf("WS_INBOUND_RATE must not be negative, got %v", ws.InboundRatePerSecond)
	}
	if ws.InboundRatePerSecond > 0 && ws.InboundBurst < 1 {
		return fmt.Errorf("WS_INBOUND_BURST must be at least 1 when the inbound limiter is on, got %d", ws.InboundBurst)
	}
	return nil
}

func (c *Config) validateRouter() error {
	if c.Router.HandlerTimeout <= 0 {
		return fmt.Errorf("ROUTER_HANDLER_TIMEOUT must be positive, got %v", c.Router.HandlerTimeout)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must not be negative, got %d", c.Database.Threads)
	}
	if c.Database.BreakerFailureThreshold == 0 {
		return fmt.Errorf("DB_BREAKER_FAILURE_THRESHOLD must be at least 1")
	}
	if c.Database.BreakerTimeout <= 0 {
		return fmt.Errorf("DB_BREAKER_TIMEOUT must be positive, got %v", c.Database.BreakerTimeout)
	}
	return nil
}

func (c *Config) validateIdempotency() error {
	if !c.Idempotency.Enabled {
		return nil
	}
	switch c.Idempotency.Backend {
	case "badger", "memory":
	default:
		return fmt.Errorf("IDEMPOTENCY_BACKEND must be badger or memory, got %q", c.Idempotency.Backend)
	}
	if c.Idempotency.TTL < time.Second {
		return fmt.Errorf("IDEMPOTENCY_TTL must be at least 1s, got %v", c.Idempotency.TTL)
	}
	return nil
}

func (c *Config) validateRelay() error {
	if !c.Relay.Enabled {
		return nil
	}
	if c.Relay.Subject == "" {
		return fmt.Errorf("RELAY_SUBJECT is required when RELAY_ENABLED=true")
	}
	if c.Relay.EmbeddedServer {
		if c.Relay.Port < 1 || c.Relay.Port > 65535 {
			return fmt.Errorf("RELAY_PORT must be between 1 and 65535, got %d", c.Relay.Port)
		}
		return nil
	}
	if !strings.HasPrefix(c.Relay.URL, "nats://") && !strings.HasPrefix(c.Relay.URL, "tls://") {
		return fmt.Errorf("RELAY_URL must start with nats:// or tls://, got %q", c.Relay.URL)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1, got %d", c.Security.RateLimitReqs)
	}
	if c.Security.RateLimitWindow < time.Second {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1s, got %v", c.Security.RateLimitWindow)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// IsProduction reports whether the server runs with production settings.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}

// ShouldWarnAboutCORS is true when a production server accepts any origin.
func (c *Config) ShouldWarnAboutCORS() bool {
	if !c.IsProduction() {
		return false
	}
	return hasWildcard(c.Security.CORSOrigins) || hasWildcard(c.WebSocket.AllowedOrigins)
}

func hasWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

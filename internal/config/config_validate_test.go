// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"bad environment", func(c *Config) { c.Server.Environment = "staging" }, "ENVIRONMENT"},
		{"pong shorter than ping", func(c *Config) { c.WebSocket.PongWait = time.Second }, "WS_PONG_WAIT"},
		{"tiny message limit", func(c *Config) { c.WebSocket.MaxMessageSize = 10 }, "WS_MAX_MESSAGE_SIZE"},
		{"zero send buffer", func(c *Config) { c.WebSocket.SendBuffer = 0 }, "WS_SEND_BUFFER"},
		{"limiter without burst", func(c *Config) { c.WebSocket.InboundBurst = 0 }, "WS_INBOUND_BURST"},
		{"limiter off ignores burst", func(c *Config) {
			c.WebSocket.InboundRatePerSecond = 0
			c.WebSocket.InboundBurst = 0
		}, ""},
		{"no handler timeout", func(c *Config) { c.Router.HandlerTimeout = 0 }, "ROUTER_HANDLER_TIMEOUT"},
		{"empty db path", func(c *Config) { c.Database.Path = "" }, "DUCKDB_PATH"},
		{"zero breaker threshold", func(c *Config) { c.Database.BreakerFailureThreshold = 0 }, "DB_BREAKER_FAILURE_THRESHOLD"},
		{"unknown idempotency backend", func(c *Config) { c.Idempotency.Backend = "redis" }, "IDEMPOTENCY_BACKEND"},
		{"disabled idempotency skips checks", func(c *Config) {
			c.Idempotency.Enabled = false
			c.Idempotency.Backend = "redis"
		}, ""},
		{"relay with http url", func(c *Config) {
			c.Relay.Enabled = true
			c.Relay.URL = "http://localhost:4222"
		}, "RELAY_URL"},
		{"embedded relay bad port", func(c *Config) {
			c.Relay.Enabled = true
			c.Relay.EmbeddedServer = true
			c.Relay.Port = 0
		}, "RELAY_PORT"},
		{"rate limit zero", func(c *Config) { c.Security.RateLimitReqs = 0 }, "RATE_LIMIT_REQUESTS"},
		{"rate limit disabled", func(c *Config) {
			c.Security.RateLimitDisabled = true
			c.Security.RateLimitReqs = 0
		}, ""},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "LOG_LEVEL"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestShouldWarnAboutCORS(t *testing.T) {
	cfg := defaultConfig()
	if cfg.ShouldWarnAboutCORS() {
		t.Error("development should not warn")
	}
	cfg.Server.Environment = "production"
	if !cfg.ShouldWarnAboutCORS() {
		t.Error("production with wildcard should warn")
	}
	cfg.Security.CORSOrigins = []string{"https://mangasaki.app"}
	cfg.WebSocket.AllowedOrigins = []string{"https://mangasaki.app"}
	if cfg.ShouldWarnAboutCORS() {
		t.Error("explicit origins should not warn")
	}
}

func TestServerAddr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 3000}
	if s.Addr() != "127.0.0.1:3000" {
		t.Errorf("Addr = %q", s.Addr())
	}
}

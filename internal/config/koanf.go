// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/mangasaki/config.yaml",
	"/etc/mangasaki/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		WebSocket: WebSocketConfig{
			PingInterval:         5 * time.Second,
			PongWait:             60 * time.Second,
			WriteWait:            10 * time.Second,
			MaxMessageSize:       64 * 1024,
			SendBuffer:           256,
			InboundRatePerSecond: 20,
			InboundBurst:         40,
			AllowedOrigins:       []string{"*"},
		},
		Router: RouterConfig{
			HandlerTimeout: 5 * time.Second,
		},
		Database: DatabaseConfig{
			Path:                    "/data/mangasaki.duckdb",
			MaxMemory:               "512MB",
			Threads:                 0,
			SeedDemoData:            false,
			BreakerMaxRequests:      3,
			BreakerInterval:         time.Minute,
			BreakerTimeout:          30 * time.Second,
			BreakerFailureThreshold: 5,
		},
		Idempotency: IdempotencyConfig{
			Enabled: true,
			Backend: "badger",
			Path:    "",
			TTL:     10 * time.Minute,
		},
		Relay: RelayConfig{
			Enabled:        false,
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: false,
			Host:           "127.0.0.1",
			Port:           4222,
			Subject:        "mangasaki.push",
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf layers defaults, the config file and env vars (highest
// priority), unmarshals into Config and validates it.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// sliceConfigPaths arrive from env vars as comma-separated strings.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"websocket.allowed_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		raw, ok := k.Get(path).(string)
		if !ok || raw == "" {
			continue
		}
		var parts []string
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) == 0 {
			continue
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
var envMappings = map[string]string{
	// Server
	"http_host":          "server.host",
	"http_port":          "server.port",
	"http_timeout":       "server.read_timeout",
	"http_write_timeout": "server.write_timeout",
	"shutdown_timeout":   "server.shutdown_timeout",
	"environment":        "server.environment",

	// WebSocket gateway
	"ws_ping_interval":       "websocket.ping_interval",
	"ws_pong_wait":           "websocket.pong_wait",
	"ws_write_wait":          "websocket.write_wait",
	"ws_max_message_size":    "websocket.max_message_size",
	"ws_send_buffer":         "websocket.send_buffer",
	"ws_inbound_rate":        "websocket.inbound_rate_per_second",
	"ws_inbound_burst":       "websocket.inbound_burst",
	"ws_allowed_origins":     "websocket.allowed_origins",
	"router_handler_timeout": "router.handler_timeout",

	// Database
	"duckdb_path":                  "database.path",
	"duckdb_max_memory":            "database.max_memory",
	"duckdb_threads":               "database.threads",
	"seed_demo_data":               "database.seed_demo_data",
	"db_breaker_max_requests":      "database.breaker_max_requests",
	"db_breaker_interval":          "database.breaker_interval",
	"db_breaker_timeout":           "database.breaker_timeout",
	"db_breaker_failure_threshold": "database.breaker_failure_threshold",

	// Idempotency
	"idempotency_enabled": "idempotency.enabled",
	"idempotency_backend": "idempotency.backend",
	"idempotency_path":    "idempotency.path",
	"idempotency_ttl":     "idempotency.ttl",

	// Relay
	"relay_enabled":         "relay.enabled",
	"relay_url":             "relay.url",
	"relay_embedded_server": "relay.embedded_server",
	"relay_host":            "relay.host",
	"relay_port":            "relay.port",
	"relay_subject":         "relay.subject",
	"relay_node_id":         "relay.node_id",

	// Security
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc returns "" for unmapped names so unrelated environment
// variables never leak into the config.
//
//	HTTP_PORT      -> server.port
//	DUCKDB_PATH    -> database.path
//	RELAY_URL      -> relay.url
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

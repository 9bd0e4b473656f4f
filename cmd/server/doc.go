// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

/*
Command server runs the Mangasaki real-time server: the WebSocket gateway
that tracks connected clients and delivers social notifications, plus a
small REST surface over the same store.

# Supervision

	mangasaki
	├── data-layer
	│   └── idempotency-gc      (IDEMPOTENCY_ENABLED=true)
	├── messaging-layer
	│   ├── nats-server         (RELAY_EMBEDDED_SERVER=true, -tags nats)
	│   ├── gateway
	│   └── relay-consumer      (RELAY_ENABLED=true, -tags nats)
	└── api-layer
	    └── http-server         (REST, /metrics and the /ws upgrade)

Startup order:

 1. Configuration: koanf defaults, optional YAML file (CONFIG_PATH), env vars
 2. Logging: zerolog, JSON or console
 3. Store: DuckDB behind a gobreaker circuit breaker
 4. Idempotency tracker: badger or memory
 5. Gateway, presence query and notification router
 6. Relay over NATS, when compiled in and enabled
 7. HTTP server with the chi routes
 8. Supervisor tree until SIGINT or SIGTERM

# Configuration

Common environment variables:

	HTTP_HOST=0.0.0.0
	HTTP_PORT=3000
	DUCKDB_PATH=/data/mangasaki.duckdb
	SEED_DEMO_DATA=false
	WS_ALLOWED_ORIGINS=*
	IDEMPOTENCY_BACKEND=badger     # badger or memory
	IDEMPOTENCY_PATH=              # empty keeps badger in memory
	RELAY_ENABLED=false
	RELAY_URL=nats://127.0.0.1:4222
	LOG_LEVEL=info
	LOG_FORMAT=json

# Build tags

	go build ./cmd/server              # single node
	go build -tags nats ./cmd/server   # cross-node relay over NATS
*/
package main

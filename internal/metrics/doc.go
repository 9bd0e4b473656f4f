// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

/*
Package metrics declares the Prometheus collectors for the real-time server.

Collectors are registered with the default registry through promauto and
served by promhttp at /metrics:

	curl http://localhost:3000/metrics

Families:

  - ws_*: connection gauge, inbound frames by type, outbound frames, send failures
  - router_*: handled messages by outcome, error codes, live push results
  - notifications_persisted_total: stored notifications by kind
  - duckdb_*: query latency and errors
  - idempotency_operations_total, relay_messages_total
  - circuit_breaker_*: state, requests and transitions per breaker
  - api_*: HTTP request counts and latency

Callers use the Record* helpers rather than touching vectors directly so
label sets stay consistent.
*/
package metrics

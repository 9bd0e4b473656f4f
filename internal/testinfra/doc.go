// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

// Package testinfra starts real dependencies in Docker for integration tests.
//
// Everything here is behind the integration build tag and skips when Docker
// is not reachable:
//
//	go test -tags "integration nats" ./internal/testinfra/...
//
// NATSContainer runs a stock nats-server so the relay can be exercised
// across two independent connections, the way two server processes would
// use it.
package testinfra

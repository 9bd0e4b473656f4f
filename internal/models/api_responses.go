// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

package models

import (
	"time"
)

// Response status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// APIResponse is the envelope of every REST response.
//
//	{
//	  "status": "success",
//	  "data": [...],
//	  "metadata": {"timestamp": "2026-01-01T12:00:00Z", "query_time_ms": 3}
//	}
//
// On failure Status is "error", Data is null and Error is set.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response timing.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Count       *int      `json:"count,omitempty"`
}

// APIError is a machine-readable code plus a human message. Details holds
// per-field validation messages.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthStatus is the body of GET /api/v1/health.
type HealthStatus struct {
	Status       string    `json:"status"`
	Version      string    `json:"version"`
	Uptime       float64   `json:"uptime_seconds"`
	Connections  int       `json:"connections"`
	BoundUsers   int       `json:"bound_users"`
	StoreBreaker string    `json:"store_breaker"`
	DatabaseOK   bool      `json:"database_ok"`
	RelayEnabled bool      `json:"relay_enabled"`
	RelayBreaker string    `json:"relay_breaker,omitempty"`
	RelayNodeID  string    `json:"relay_node_id,omitempty"`
	CheckedAt    time.Time `json:"checked_at"`
}

// PresenceResponse is the body of GET /api/v1/users/{username}/presence.
type PresenceResponse struct {
	Username string   `json:"username"`
	Online   []string `json:"online"`
	Offline  []string `json:"offline"`
}

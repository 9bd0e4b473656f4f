// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

// Package middleware holds the HTTP middleware shared by the REST API and
// the WebSocket upgrade endpoint: request ids for log correlation and
// Prometheus request instrumentation.
//
// Both are plain func(http.Handler) http.Handler and are mounted on the chi
// router:
//
//	r.Use(middleware.RequestID)
//	r.Use(middleware.PrometheusMetrics)
//
// The metrics wrapper keeps http.Hijacker working so /ws can be upgraded
// behind it.
package middleware

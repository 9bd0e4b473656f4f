// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Zonoik09/Mangasaki-server/internal/middleware"
)

// Router wires handlers and middleware.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a Router.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, chiMiddleware: mw}
}

// SetupChi builds the route tree.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	// Upgrade first; the instrumented group below wraps the writer.
	r.Get("/ws", router.handler.WebSocket)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)

		r.Route("/api/v1/health", func(r chi.Router) {
			r.Get("/", router.handler.Health)
			r.Get("/live", router.handler.HealthLive)
			r.Get("/ready", router.handler.HealthReady)
		})

		r.Route("/api/v1", func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit())

			r.Get("/users/{userID}/notifications", router.handler.Notifications)
			r.Get("/presence/{username}", router.handler.Presence)
			r.Delete("/friend-requests/{id}", router.handler.DeclineFriendRequest)
			r.Delete("/friendships/{id}", router.handler.DeleteFriendship)
		})
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, req, http.StatusNotFound, CodeNotFound, "Route not found", nil)
	})
	return r
}

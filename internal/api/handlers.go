// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Zonoik09/Mangasaki-server/internal/database"
	"github.com/Zonoik09/Mangasaki-server/internal/logging"
	"github.com/Zonoik09/Mangasaki-server/internal/models"
	"github.com/Zonoik09/Mangasaki-server/internal/presence"
	"github.com/Zonoik09/Mangasaki-server/internal/validation"
)

// Store is the persistence the REST endpoints use. *database.ResilientStore
// implements it.
type Store interface {
	FindUserByID(ctx context.Context, id int64) (*models.User, error)
	ListNotifications(ctx context.Context, receiverID int64) ([]models.FeedItem, error)
	DeclineFriendRequest(ctx context.Context, id int64) error
	DeleteFriendship(ctx context.Context, id int64) error
	State() string
}

// Pinger checks database connectivity. *database.DB implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Gateway accepts upgraded sockets. *websocket.Gateway implements it.
type Gateway interface {
	Accept(ctx context.Context, conn *websocket.Conn) error
	ClientCount() int
}

// Directory reports bound usernames. *registry.Registry implements it.
type Directory interface {
	Usernames() []string
}

// PresenceQuery answers the presence endpoint.
type PresenceQuery interface {
	OnlineOffline(ctx context.Context, username string) (presence.Result, error)
}

// RelayStatus exposes relay state for health output.
type RelayStatus interface {
	NodeID() string
	BreakerState() string
}

// Deps bundles the collaborators of Handler. Relay may be nil.
type Deps struct {
	Store     Store
	DB        Pinger
	Gateway   Gateway
	Directory Directory
	Presence  PresenceQuery
	Relay     RelayStatus

	// AllowedOrigins is checked against the Origin header of /ws requests.
	// "*" allows any origin.
	AllowedOrigins []string
	Version        string
}

// Handler serves the HTTP endpoints.
type Handler struct {
	deps      Deps
	upgrader  websocket.Upgrader
	startTime time.Time
}

// NewHandler builds a Handler.
func NewHandler(deps Deps) *Handler {
	if deps.Version == "" {
		deps.Version = "dev"
	}
	h := &Handler{deps: deps, startTime: time.Now()}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
	return h
}

// checkWebSocketOrigin validates the Origin of an upgrade request. Native
// mobile clients send no Origin and are allowed; browsers always send one
// and it must be in the allowed list.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.deps.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

// WebSocket upgrades the request and hands the socket to the gateway.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.deps.Gateway == nil {
		respondError(w, r, http.StatusServiceUnavailable, CodeServiceUnavailable, "WebSocket service unavailable", nil)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logging.Ctx(r.Context()).Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	// The request context ends with this handler; the connection outlives it.
	if err := h.deps.Gateway.Accept(context.WithoutCancel(r.Context()), conn); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Gateway refused connection")
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server busy"),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}
}

// Health reports overall status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	dbOK := h.deps.DB != nil && h.deps.DB.Ping(r.Context()) == nil

	hs := models.HealthStatus{
		Status:     "healthy",
		Version:    h.deps.Version,
		Uptime:     time.Since(h.startTime).Seconds(),
		DatabaseOK: dbOK,
		CheckedAt:  time.Now().UTC(),
	}
	if h.deps.Gateway != nil {
		hs.Connections = h.deps.Gateway.ClientCount()
	}
	if h.deps.Directory != nil {
		hs.BoundUsers = len(h.deps.Directory.Usernames())
	}
	if h.deps.Store != nil {
		hs.StoreBreaker = h.deps.Store.State()
	}
	if h.deps.Relay != nil {
		hs.RelayEnabled = true
		hs.RelayNodeID = h.deps.Relay.NodeID()
		hs.RelayBreaker = h.deps.Relay.BreakerState()
	}
	if !dbOK || hs.StoreBreaker == "open" {
		hs.Status = "degraded"
	}
	respondData(w, hs, start)
}

// HealthLive always answers 200 while the process serves HTTP.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondData(w, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	}, time.Now())
}

// HealthReady answers 503 until the database responds.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.deps.DB == nil {
		respondError(w, r, http.StatusServiceUnavailable, CodeServiceUnavailable, "Database not configured", nil)
		return
	}
	if err := h.deps.DB.Ping(r.Context()); err != nil {
		respondError(w, r, http.StatusServiceUnavailable, CodeServiceUnavailable, "Database not reachable", err)
		return
	}
	respondData(w, map[string]interface{}{"ready": true}, time.Now())
}

// parseID validates a positive integer path parameter.
func parseID(field, raw string) (int64, *validation.RequestValidationError) {
	if verr := validation.ValidateVar(field, raw, "required,number,max=18"); verr != nil {
		return 0, verr
	}
	id, _ := strconv.ParseInt(raw, 10, 64)
	if verr := validation.ValidateVar(field, id, "gt=0"); verr != nil {
		return 0, verr
	}
	return id, nil
}

// storeFailure maps a store error to an HTTP response.
func storeFailure(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		respondError(w, r, http.StatusNotFound, CodeNotFound, notFound, nil)
	case errors.Is(err, database.ErrUnavailable):
		respondError(w, r, http.StatusServiceUnavailable, CodeServiceUnavailable, "Store temporarily unavailable", err)
	default:
		respondError(w, r, http.StatusInternalServerError, CodeInternal, "Internal server error", err)
	}
}

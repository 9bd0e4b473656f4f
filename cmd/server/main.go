// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Zonoik09/Mangasaki-server/internal/api"
	"github.com/Zonoik09/Mangasaki-server/internal/config"
	"github.com/Zonoik09/Mangasaki-server/internal/database"
	"github.com/Zonoik09/Mangasaki-server/internal/idempotency"
	"github.com/Zonoik09/Mangasaki-server/internal/logging"
	"github.com/Zonoik09/Mangasaki-server/internal/presence"
	"github.com/Zonoik09/Mangasaki-server/internal/registry"
	"github.com/Zonoik09/Mangasaki-server/internal/router"
	"github.com/Zonoik09/Mangasaki-server/internal/supervisor"
	"github.com/Zonoik09/Mangasaki-server/internal/supervisor/services"
	ws "github.com/Zonoik09/Mangasaki-server/internal/websocket"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Server stopped with error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

//nolint:gocyclo // sequential wiring of every component
func run(cfg *config.Config) error {
	logging.Info().
		Str("version", version).
		Str("addr", cfg.Server.Addr()).
		Str("db_path", cfg.Database.Path).
		Str("environment", cfg.Server.Environment).
		Msg("Starting Mangasaki server")
	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("Production server accepts any origin; set CORS_ORIGINS and WS_ALLOWED_ORIGINS")
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	store := database.NewResilientStore(db, database.BreakerConfig{
		Name:             "duckdb",
		MaxRequests:      cfg.Database.BreakerMaxRequests,
		Interval:         cfg.Database.BreakerInterval,
		Timeout:          cfg.Database.BreakerTimeout,
		FailureThreshold: cfg.Database.BreakerFailureThreshold,
	})
	logging.Info().Msg("Database initialized successfully")

	tracker, err := idempotency.New(&cfg.Idempotency)
	if err != nil {
		return fmt.Errorf("initialize idempotency tracker: %w", err)
	}
	if tracker != nil {
		defer func() {
			if err := tracker.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing idempotency tracker")
			}
		}()
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	reg := registry.New()
	gw := ws.New(ws.ConfigFrom(cfg.WebSocket), reg)
	pq := presence.New(store, reg)

	rel, err := initRelay(cfg, tree, gw)
	if err != nil {
		return err
	}
	if rel != nil {
		defer func() {
			if err := rel.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing relay")
			}
		}()
	}

	var opts []router.Option
	if tracker != nil {
		opts = append(opts, router.WithIdempotency(tracker))
		tree.AddDataService(services.NewIdempotencyGCService(tracker, services.DefaultGCInterval))
	}
	if rel != nil {
		opts = append(opts, router.WithRelay(rel))
	}
	gw.SetObserver(router.New(router.Config{
		HandlerTimeout: cfg.Router.HandlerTimeout,
		IdempotencyTTL: cfg.Idempotency.TTL,
	}, gw, reg, store, pq, opts...))
	tree.AddMessagingService(services.NewGatewayService(gw))

	deps := api.Deps{
		Store:          store,
		DB:             db,
		Gateway:        gw,
		Directory:      reg,
		Presence:       pq,
		AllowedOrigins: cfg.WebSocket.AllowedOrigins,
		Version:        version,
	}
	if rel != nil {
		deps.Relay = rel
	}

	mwCfg := api.DefaultChiMiddlewareConfig()
	mwCfg.CORSAllowedOrigins = cfg.Security.CORSOrigins
	mwCfg.RateLimitRequests = cfg.Security.RateLimitReqs
	mwCfg.RateLimitWindow = cfg.Security.RateLimitWindow
	mwCfg.RateLimitDisabled = cfg.Security.RateLimitDisabled

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.NewRouter(api.NewHandler(deps), api.NewChiMiddleware(mwCfg)).SetupChi(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	var runErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Received shutdown signal, waiting for supervisor to finish...")
		runErr = <-errCh
	case runErr = <-errCh:
	}
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}
	return runErr
}

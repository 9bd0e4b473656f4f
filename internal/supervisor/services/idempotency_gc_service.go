// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

package services

import (
	"context"
	"errors"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/Zonoik09/Mangasaki-server/internal/idempotency"
	"github.com/Zonoik09/Mangasaki-server/internal/logging"
)

// DefaultGCInterval is how often expired idempotency replies are removed.
const DefaultGCInterval = time.Minute

var errDoNotRestart = suture.ErrDoNotRestart

// ExpiringStore is satisfied by every idempotency.Tracker.
type ExpiringStore interface {
	CleanupExpired(ctx context.Context) (int, error)
}

// valueLogCollector is implemented by trackers backed by badger.
type valueLogCollector interface {
	RunGC() error
}

// IdempotencyGCService removes expired replies on an interval and, for
// badger-backed trackers, reclaims value log space afterwards.
type IdempotencyGCService struct {
	store    ExpiringStore
	interval time.Duration
	name     string
}

func NewIdempotencyGCService(store ExpiringStore, interval time.Duration) *IdempotencyGCService {
	if interval <= 0 {
		interval = DefaultGCInterval
	}
	return &IdempotencyGCService{store: store, interval: interval, name: "idempotency-gc"}
}

// Serve implements suture.Service. Cleanup errors are logged and retried on
// the next tick; a closed store ends the service.
func (s *IdempotencyGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.collect(ctx); err != nil {
				return err
			}
		}
	}
}

func (s *IdempotencyGCService) collect(ctx context.Context) error {
	removed, err := s.store.CleanupExpired(ctx)
	switch {
	case errors.Is(err, idempotency.ErrClosed):
		logging.Info().Msg("Idempotency store closed, stopping cleanup")
		return errDoNotRestart
	case err != nil && !errors.Is(err, context.Canceled):
		logging.Warn().Err(err).Msg("Idempotency cleanup failed")
		return nil
	}
	if removed > 0 {
		logging.Debug().Int("removed", removed).Msg("Expired idempotency entries removed")
	}

	if gc, ok := s.store.(valueLogCollector); ok {
		if err := gc.RunGC(); err != nil {
			logging.Warn().Err(err).Msg("Idempotency value log GC failed")
		}
	}
	return nil
}

func (s *IdempotencyGCService) String() string {
	return s.name
}

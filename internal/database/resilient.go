// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/Zonoik09/Mangasaki-server/internal/logging"
	"github.com/Zonoik09/Mangasaki-server/internal/metrics"
	"github.com/Zonoik09/Mangasaki-server/internal/models"
)

// BreakerConfig tunes the circuit breaker in front of the store.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// ResilientStore fronts DB with a circuit breaker so the gateway loop fails
// fast instead of stalling on an unhealthy database. Business outcomes
// (not found, duplicate, already friends) and caller cancellation do not
// count as failures.
type ResilientStore struct {
	db *DB
	cb *gobreaker.CircuitBreaker[interface{}]
}

// NewResilientStore wraps db.
func NewResilientStore(db *DB, cfg BreakerConfig) *ResilientStore {
	if cfg.Name == "" {
		cfg.Name = "duckdb"
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			trip := counts.ConsecutiveFailures >= cfg.FailureThreshold
			if trip {
				logging.Warn().Uint32("consecutive_failures", counts.ConsecutiveFailures).
					Str("breaker", cfg.Name).Msg("Opening store circuit")
			}
			return trip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("Circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
		IsSuccessful: func(err error) bool {
			return err == nil || IsBusinessError(err) ||
				errors.Is(err, context.Canceled)
		},
	}
	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(0)

	return &ResilientStore{
		db: db,
		cb: gobreaker.NewCircuitBreaker[interface{}](settings),
	}
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// State reports the breaker state for health output.
func (s *ResilientStore) State() string {
	return s.cb.State().String()
}

// DB returns the wrapped database.
func (s *ResilientStore) DB() *DB {
	return s.db
}

func run[T any](s *ResilientStore, fn func() (T, error)) (T, error) {
	var zero T
	res, err := s.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	name := s.cb.Name()
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(name, "rejected").Inc()
		return zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
	case err != nil && !IsBusinessError(err):
		metrics.CircuitBreakerRequests.WithLabelValues(name, "failure").Inc()
		return zero, err
	case err != nil:
		metrics.CircuitBreakerRequests.WithLabelValues(name, "success").Inc()
		return zero, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(name, "success").Inc()
	v, _ := res.(T)
	return v, nil
}

type acceptResult struct {
	n       *models.Notification
	created bool
}

func (s *ResilientStore) FindUserByID(ctx context.Context, id int64) (*models.User, error) {
	return run(s, func() (*models.User, error) { return s.db.FindUserByID(ctx, id) })
}

func (s *ResilientStore) FindUserByNickname(ctx context.Context, nickname string) (*models.User, error) {
	return run(s, func() (*models.User, error) { return s.db.FindUserByNickname(ctx, nickname) })
}

func (s *ResilientStore) FindGallery(ctx context.Context, id int64) (*models.Gallery, error) {
	return run(s, func() (*models.Gallery, error) { return s.db.FindGallery(ctx, id) })
}

func (s *ResilientStore) AreFriends(ctx context.Context, a, b int64) (bool, error) {
	return run(s, func() (bool, error) { return s.db.AreFriends(ctx, a, b) })
}

func (s *ResilientStore) ListFriendNicknames(ctx context.Context, nickname string) ([]string, error) {
	return run(s, func() ([]string, error) { return s.db.ListFriendNicknames(ctx, nickname) })
}

func (s *ResilientStore) CreateFriendRequest(ctx context.Context, senderID, receiverID int64, message string) (*models.Notification, error) {
	return run(s, func() (*models.Notification, error) {
		return s.db.CreateFriendRequest(ctx, senderID, receiverID, message)
	})
}

func (s *ResilientStore) AcceptFriendship(ctx context.Context, acceptorID, requesterID int64, message string) (*models.Notification, bool, error) {
	r, err := run(s, func() (acceptResult, error) {
		n, created, err := s.db.AcceptFriendship(ctx, acceptorID, requesterID, message)
		return acceptResult{n: n, created: created}, err
	})
	return r.n, r.created, err
}

func (s *ResilientStore) CreateLike(ctx context.Context, senderID, receiverID, galleryID int64, message string) (*models.Notification, error) {
	return run(s, func() (*models.Notification, error) {
		return s.db.CreateLike(ctx, senderID, receiverID, galleryID, message)
	})
}

func (s *ResilientStore) CreateRecommendation(ctx context.Context, senderID, receiverID, mangaID int64, message string) (*models.Notification, error) {
	return run(s, func() (*models.Notification, error) {
		return s.db.CreateRecommendation(ctx, senderID, receiverID, mangaID, message)
	})
}

func (s *ResilientStore) ListNotifications(ctx context.Context, receiverID int64) ([]models.FeedItem, error) {
	return run(s, func() ([]models.FeedItem, error) { return s.db.ListNotifications(ctx, receiverID) })
}

func (s *ResilientStore) DeclineFriendRequest(ctx context.Context, id int64) error {
	_, err := run(s, func() (struct{}, error) { return struct{}{}, s.db.DeclineFriendRequest(ctx, id) })
	return err
}

func (s *ResilientStore) DeleteFriendship(ctx context.Context, id int64) error {
	_, err := run(s, func() (struct{}, error) { return struct{}{}, s.db.DeleteFriendship(ctx, id) })
	return err
}

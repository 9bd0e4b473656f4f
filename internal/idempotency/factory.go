// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

package idempotency

import (
	"fmt"
	"os"

	"github.com/Zonoik09/Mangasaki-server/internal/config"
	"github.com/Zonoik09/Mangasaki-server/internal/logging"
)

// Backends accepted by New.
const (
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// New builds the tracker selected by cfg. It returns nil when idempotency is
// disabled.
func New(cfg *config.IdempotencyConfig) (Tracker, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	switch cfg.Backend {
	case BackendMemory:
		logging.Info().Str("backend", BackendMemory).Msg("Idempotency tracker ready")
		return NewMemoryTracker(), nil

	case BackendBadger, "":
		if cfg.Path != "" {
			if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
				return nil, fmt.Errorf("create idempotency directory: %w", err)
			}
		}
		t, err := OpenBadger(cfg.Path)
		if err != nil {
			return nil, err
		}
		logging.Info().Str("backend", BackendBadger).Str("path", cfg.Path).Msg("Idempotency tracker ready")
		return t, nil
	}
	return nil, fmt.Errorf("unknown idempotency backend %q", cfg.Backend)
}

// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zonoik09/Mangasaki-server/internal/logging"
)

var demoUsers = []string{"alice", "bob", "carol", "dave"}

// SeedDemoData creates a few users, one gallery each and an alice-bob
// friendship so a local client has something to talk to. Existing users are
// left alone, which makes repeated seeding harmless.
func (db *DB) SeedDemoData(ctx context.Context) error {
	ids := make(map[string]int64, len(demoUsers))
	created := 0
	for _, nick := range demoUsers {
		u, err := db.CreateUser(ctx, nick)
		if errors.Is(err, ErrDuplicate) {
			existing, ferr := db.FindUserByNickname(ctx, nick)
			if ferr != nil {
				return ferr
			}
			ids[nick] = existing.ID
			continue
		}
		if err != nil {
			return fmt.Errorf("seed user %s: %w", nick, err)
		}
		ids[nick] = u.ID
		created++
		if _, err := db.CreateGallery(ctx, u.ID, nick+"'s shelf"); err != nil {
			return fmt.Errorf("seed gallery for %s: %w", nick, err)
		}
	}

	if _, _, err := db.AcceptFriendship(ctx, ids["alice"], ids["bob"], "alice accepted your friend request"); err != nil {
		return fmt.Errorf("seed friendship: %w", err)
	}

	logging.Info().Int("users_created", created).Msg("Demo data seeded")
	return nil
}

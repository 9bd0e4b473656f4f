// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Zonoik09/Mangasaki-server/internal/logging"
	"github.com/Zonoik09/Mangasaki-server/internal/models"
	"github.com/Zonoik09/Mangasaki-server/internal/validation"
)

// Notifications returns every notification addressed to a user, newest
// first.
func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	userID, verr := parseID("userID", chi.URLParam(r, "userID"))
	if verr != nil {
		respondValidation(w, verr)
		return
	}

	if _, err := h.deps.Store.FindUserByID(r.Context(), userID); err != nil {
		storeFailure(w, r, err, fmt.Sprintf("User %d not found", userID))
		return
	}
	items, err := h.deps.Store.ListNotifications(r.Context(), userID)
	if err != nil {
		storeFailure(w, r, err, "Notifications not found")
		return
	}

	count := len(items)
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: models.StatusSuccess,
		Data:   items,
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(start).Milliseconds(),
			Count:       &count,
		},
	})
}

// DeclineFriendRequest deletes a pending friend request.
func (h *Handler) DeclineFriendRequest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, verr := parseID("id", chi.URLParam(r, "id"))
	if verr != nil {
		respondValidation(w, verr)
		return
	}
	if err := h.deps.Store.DeclineFriendRequest(r.Context(), id); err != nil {
		storeFailure(w, r, err, fmt.Sprintf("Friend request %d not found", id))
		return
	}
	logging.Ctx(r.Context()).Info().Int64("friend_request_id", id).Msg("Friend request declined")
	respondData(w, map[string]interface{}{"id": id, "declined": true}, start)
}

// DeleteFriendship removes a friendship.
func (h *Handler) DeleteFriendship(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, verr := parseID("id", chi.URLParam(r, "id"))
	if verr != nil {
		respondValidation(w, verr)
		return
	}
	if err := h.deps.Store.DeleteFriendship(r.Context(), id); err != nil {
		storeFailure(w, r, err, fmt.Sprintf("Friendship %d not found", id))
		return
	}
	logging.Ctx(r.Context()).Info().Int64("friendship_id", id).Msg("Friendship deleted")
	respondData(w, map[string]interface{}{"id": id, "deleted": true}, start)
}

// Presence partitions a user's friends into online and offline.
func (h *Handler) Presence(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	username := chi.URLParam(r, "username")
	if verr := validation.ValidateVar("username", username, "required,nickname"); verr != nil {
		respondValidation(w, verr)
		return
	}

	res, err := h.deps.Presence.OnlineOffline(r.Context(), username)
	if err != nil {
		storeFailure(w, r, err, fmt.Sprintf("User %s not found", username))
		return
	}
	respondData(w, models.PresenceResponse{
		Username: username,
		Online:   res.Online,
		Offline:  res.Offline,
	}, start)
}

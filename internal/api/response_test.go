// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/Zonoik09/Mangasaki-server/internal/database"
	"github.com/Zonoik09/Mangasaki-server/internal/models"
)

func TestSanitizeLogValue(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"line\nbreak", "line\\x0abreak"},
		{"tab\there", "tab\\x09here"},
		{"del\x7f", "del\\x7f"},
		{"ユーザー", "ユーザー"},
	}
	for _, tt := range tests {
		if got := sanitizeLogValue(tt.in); got != tt.want {
			t.Errorf("sanitizeLogValue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

func TestRespondData(t *testing.T) {
	rec := httptest.NewRecorder()
	respondData(rec, map[string]string{"k": "v"}, time.Now())

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	resp := decodeResponse(t, rec)
	if resp.Status != models.StatusSuccess || resp.Error != nil {
		t.Errorf("response = %+v", resp)
	}
	if resp.Metadata.Timestamp.IsZero() {
		t.Error("timestamp should be set")
	}
}

func TestParseIDAndValidationResponse(t *testing.T) {
	if id, verr := parseID("id", "42"); verr != nil || id != 42 {
		t.Fatalf("parseID(42) = %d, %v", id, verr)
	}
	for _, raw := range []string{"", "x1", "-3", "0", "1234567890123456789"} {
		if _, verr := parseID("id", raw); verr == nil {
			t.Errorf("parseID(%q) should fail", raw)
		}
	}

	_, verr := parseID("userID", "abc")
	rec := httptest.NewRecorder()
	respondValidation(rec, verr)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Error == nil || resp.Error.Code != "VALIDATION_FAILED" {
		t.Fatalf("error = %+v", resp.Error)
	}
	if _, ok := resp.Error.Details["userID"]; !ok {
		t.Errorf("details = %v, want userID entry", resp.Error.Details)
	}
}

func TestStoreFailure(t *testing.T) {
	tests := []struct {
		err  error
		code int
		api  string
	}{
		{database.ErrNotFound, http.StatusNotFound, CodeNotFound},
		{database.ErrUnavailable, http.StatusServiceUnavailable, CodeServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		storeFailure(rec, httptest.NewRequest(http.MethodGet, "/x", nil), tt.err, "missing")
		resp := decodeResponse(t, rec)
		if rec.Code != tt.code || resp.Error == nil || resp.Error.Code != tt.api {
			t.Errorf("storeFailure(%v) = %d %+v", tt.err, rec.Code, resp.Error)
		}
	}
}

// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

package relay

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// ErrBadEnvelope marks a relay payload that cannot be decoded.
var ErrBadEnvelope = errors.New("bad relay envelope")

// Envelope is the payload published on the relay subject. Frame is the
// push frame exactly as it would be written to the receiver's socket.
type Envelope struct {
	Origin   string          `json:"origin"`
	Username string          `json:"username"`
	Frame    json.RawMessage `json:"frame"`
}

func encodeEnvelope(e *Envelope) ([]byte, error) {
	return json.Marshal(e)
}

func decodeEnvelope(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadEnvelope, err)
	}
	if e.Username == "" || len(e.Frame) == 0 {
		return nil, fmt.Errorf("%w: missing username or frame", ErrBadEnvelope)
	}
	return &e, nil
}

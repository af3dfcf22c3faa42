// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides network and HTTP I/O helpers shared by the
// relay daemon and its clients.
//
// IsExpectedCloseError classifies errors that occur during normal
// teardown of a WebSocket-to-pty relay.
//
// The HTTP helpers bound response body reads at MaxResponseSize. They
// serve the small JSON endpoints the relay exposes
// (/api/relay/connections) and the body of a rejected WebSocket
// handshake, not streaming data.
package netutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// MaxResponseSize is the bound on JSON response body reads: 1 MB. The
// largest response termbridge produces is a connection registry
// snapshot.
const MaxResponseSize int64 = 1 << 20

// ReadResponse reads a response body up to MaxResponseSize bytes.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// DecodeResponse reads a JSON response body (up to MaxResponseSize
// bytes) and decodes it into v.
func DecodeResponse(body io.Reader, v any) error {
	data, err := ReadResponse(body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	return json.Unmarshal(data, v)
}

// ErrorBody reads an HTTP error response body and returns it as a
// string for diagnostic error messages. Read errors are ignored; a
// partial body is still useful.
func ErrorBody(body io.Reader) string {
	data, _ := ReadResponse(body)
	return string(data)
}

// WriteJSON encodes v as the response body with the given status code.
// An encoding failure after the header is written can only be logged by
// the caller, so it is returned.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

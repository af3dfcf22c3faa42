// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package protocol defines what travels over a termbridge WebSocket.
//
// The relay endpoint is [Endpoint] with the tmux session named by the
// [SessionParameter] query parameter. After the upgrade both directions
// carry terminal bytes. Client-to-relay messages may instead be a
// control envelope: a JSON object whose "type" field selects the
// operation. The only operation is resize:
//
//	{"type":"resize","cols":100,"rows":40}
//
// A message is treated as an envelope only if its first byte is '{' and
// the whole message decodes to a recognized, well-formed operation.
// Anything else, including JSON that fails to parse, unknown types, and
// resize envelopes with missing or out-of-range sizes, is terminal
// input and reaches the pty verbatim. Keystrokes that happen to start
// with '{' therefore still work.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

const (
	// Endpoint is the HTTP path of the WebSocket upgrade.
	Endpoint = "/api/terminal"

	// SessionParameter is the query parameter naming the tmux session.
	SessionParameter = "session"
)

// WebSocket close codes the relay sends.
const (
	// CloseNormal ends a connection whose terminal went away.
	CloseNormal = 1000

	// CloseGoingAway ends connections when the relay shuts down.
	CloseGoingAway = 1001

	// ClosePolicyViolation rejects a session name that reached Attach
	// without passing the pre-upgrade check.
	ClosePolicyViolation = 1008

	// CloseSpawnFailed ends a connection whose pty could not be started.
	// No terminal data was ever sent.
	CloseSpawnFailed = 1011
)

// Close reasons accompanying the codes above.
const (
	ReasonSpawnFailed    = "PTY spawn failed"
	ReasonShutdown       = "relay shutting down"
	ReasonProcessEnded   = "terminal process exited"
	ReasonInvalidSession = "invalid session name"
)

// TypeResize is the "type" of a resize envelope.
const TypeResize = "resize"

// MaxDimension is the largest accepted column or row count.
const MaxDimension = 65535

// Control is a recognized control envelope.
type Control struct {
	Type    string
	Columns uint16
	Rows    uint16
}

// envelope is the wire shape. Sizes stay raw so that strings,
// fractions, and exponents are rejected rather than coerced.
type envelope struct {
	Type string          `json:"type"`
	Cols json.RawMessage `json:"cols"`
	Rows json.RawMessage `json:"rows"`
}

// ParseControl reports whether data is a control envelope and returns
// it. A false result means data is terminal input.
func ParseControl(data []byte) (Control, bool) {
	if len(data) == 0 || data[0] != '{' {
		return Control{}, false
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	var message envelope
	if err := decoder.Decode(&message); err != nil {
		return Control{}, false
	}
	// Anything but whitespace after the object makes this input.
	if decoder.InputOffset() != int64(len(bytes.TrimRight(data, " \t\r\n"))) {
		return Control{}, false
	}

	switch message.Type {
	case TypeResize:
		columns, ok := dimension(message.Cols)
		if !ok {
			return Control{}, false
		}
		rows, ok := dimension(message.Rows)
		if !ok {
			return Control{}, false
		}
		return Control{Type: TypeResize, Columns: columns, Rows: rows}, true
	}
	return Control{}, false
}

// dimension accepts a plain JSON integer in 1..MaxDimension.
func dimension(raw json.RawMessage) (uint16, bool) {
	if len(raw) == 0 || raw[0] < '1' || raw[0] > '9' {
		return 0, false
	}
	value, err := strconv.ParseUint(string(raw), 10, 16)
	if err != nil || value == 0 {
		return 0, false
	}
	return uint16(value), true
}

// EncodeResize returns the resize envelope for a columns x rows
// terminal.
func EncodeResize(columns, rows int) ([]byte, error) {
	if columns < 1 || columns > MaxDimension || rows < 1 || rows > MaxDimension {
		return nil, fmt.Errorf("resize %dx%d: dimensions must be in 1..%d", columns, rows, MaxDimension)
	}
	return json.Marshal(struct {
		Type string `json:"type"`
		Cols int    `json:"cols"`
		Rows int    `json:"rows"`
	}{TypeResize, columns, rows})
}

// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"errors"
	"io"
	"net"
	"os"
	"syscall"

	"github.com/gorilla/websocket"
)

// IsExpectedCloseError reports whether err is a normal connection
// termination: EOF, closed connection, closed file, broken pipe,
// connection reset, or a WebSocket close frame with a normal,
// going-away, no-status, or abnormal-closure code.
//
// These errors occur during relay teardown when one side goes away and
// the other side's in-flight read or write fails as a result. A phone
// that loses its network produces 1006 (abnormal closure) on the
// server, which is routine for this workload. Callers log these at
// debug level instead of error.
func IsExpectedCloseError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, os.ErrClosed) {
		return true
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
		websocket.CloseAbnormalClosure,
	) {
		return true
	}
	if errors.Is(err, websocket.ErrCloseSent) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		// EIO is what a pty master read returns once the slave side has
		// no remaining openers.
		return errno == syscall.EPIPE || errno == syscall.ECONNRESET || errno == syscall.EIO
	}
	return false
}

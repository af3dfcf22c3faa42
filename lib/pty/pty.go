// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

package pty

import (
	"errors"
	"fmt"
)

// Size is a terminal window size in character cells.
type Size struct {
	Columns uint16
	Rows    uint16
}

// DefaultSize is the geometry a process starts with before the client
// reports its own.
var DefaultSize = Size{Columns: 80, Rows: 24}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Columns, s.Rows)
}

// Driver spawns pty processes attached to named sessions.
type Driver interface {
	// Spawn starts a process attached to sessionName with the given
	// initial size. Errors are *SpawnError values. Spawn never retries.
	Spawn(sessionName string, size Size) (Process, error)
}

// Process is one running pty process.
type Process interface {
	// Write sends bytes to the process's terminal input.
	Write(data []byte) (int, error)

	// Resize changes the window size without restarting the process.
	Resize(size Size) error

	// Output delivers terminal output in the order it was produced.
	// The channel is closed when no more output will arrive.
	Output() <-chan []byte

	// Exited is closed once the process has exited and its output has
	// been drained.
	Exited() <-chan struct{}

	// ExitCode is the exit status after Exited is closed, -1 before.
	// A process killed by a signal reports 128 plus the signal number.
	ExitCode() int

	// PID is the operating system process id.
	PID() int

	// Destroy stops the process and releases the pty. It is safe to
	// call more than once and after the process has exited; it returns
	// once the process is gone.
	Destroy() error
}

// ErrSessionNotFound means the named session does not exist on the
// tmux server.
var ErrSessionNotFound = errors.New("session not found")

// SpawnError reports why Spawn could not start a process.
type SpawnError struct {
	Session string
	// Op names the step that failed: "validate", "lookup", "allocate",
	// or "start".
	Op  string
	Err error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn for session %q: %s: %v", e.Session, e.Op, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"fmt"
	"time"
)

// State is the connection state seen by the viewer.
type State int

const (
	StateConnecting State = iota
	StateConnected
	StateReconnecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Backoff is the reconnect schedule.
type Backoff struct {
	// Base is the delay before the first retry. Default: 1s
	Base time.Duration

	// MaxAttempts is the number of automatic retries before giving up.
	// Default: 5
	MaxAttempts int
}

// DefaultBackoff retries after 1, 2, 4, 8, and 16 seconds.
var DefaultBackoff = Backoff{Base: time.Second, MaxAttempts: 5}

// Delay returns Base * 2^attempt.
func (b Backoff) Delay(attempt int) time.Duration {
	return b.Base << attempt
}

func (b Backoff) withDefaults() Backoff {
	if b.Base <= 0 {
		b.Base = DefaultBackoff.Base
	}
	if b.MaxAttempts <= 0 {
		b.MaxAttempts = DefaultBackoff.MaxAttempts
	}
	return b
}

// Lifecycle is the connection state machine. The zero value is
// connecting with no attempts spent.
type Lifecycle struct {
	State State

	// Attempt counts automatic retries since the last successful open.
	Attempt int
}

// Dial records that a transport is being opened.
func (l *Lifecycle) Dial() {
	l.State = StateConnecting
}

// Opened records a successful open and forgets earlier failures.
func (l *Lifecycle) Opened() {
	l.State = StateConnected
	l.Attempt = 0
}

// Lost records an unexpected close and reports whether and when to
// retry. Once the attempts are spent the state becomes failed, and a
// failed lifecycle stays failed.
func (l *Lifecycle) Lost(backoff Backoff) (time.Duration, bool) {
	if l.State == StateFailed {
		return 0, false
	}
	if l.Attempt >= backoff.MaxAttempts {
		l.State = StateFailed
		return 0, false
	}
	delay := backoff.Delay(l.Attempt)
	l.Attempt++
	l.State = StateReconnecting
	return delay, true
}

// Retry starts over after a manual or visibility-triggered reconnect.
func (l *Lifecycle) Retry() {
	l.State = StateConnecting
	l.Attempt = 0
}

// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/termbridge/termbridge/lib/clock"
	"github.com/termbridge/termbridge/lib/netutil"
	"github.com/termbridge/termbridge/protocol"
)

// ErrNotConnected is returned by Send while no transport is open.
var ErrNotConnected = errors.New("terminal not connected")

// Conn is one open transport to the relay.
type Conn interface {
	// Read returns the next message from the relay.
	Read() ([]byte, error)

	// Write sends one message to the relay. Calls are serialized by
	// the Manager.
	Write(data []byte) error

	// Close ends the transport. It may be called concurrently with
	// Read, which must then return an error.
	Close() error
}

// Dialer opens transports.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Config configures a Manager.
type Config struct {
	// URL is the relay endpoint, usually built by EndpointURL.
	URL string

	Dialer Dialer

	// Clock schedules retries. Default: clock.Real()
	Clock clock.Clock

	// Backoff is the retry schedule. Default: DefaultBackoff
	Backoff Backoff

	// Geometry reports the local terminal size for the resize envelope
	// sent on every open. Nil skips the envelope.
	Geometry func() (columns, rows int)

	// OnMessage receives relay output. It is called from the transport's
	// read goroutine, one message at a time.
	OnMessage func(data []byte)

	// OnStateChange is called after each state transition.
	OnStateChange func(State)

	Logger *slog.Logger
}

// Manager owns the connection to one relay session. All methods are
// safe for concurrent use and never block on the network, except Send.
type Manager struct {
	url           string
	dialer        Dialer
	clock         clock.Clock
	backoff       Backoff
	geometry      func() (int, int)
	onMessage     func([]byte)
	onStateChange func(State)
	logger        *slog.Logger

	mu        sync.Mutex
	lifecycle Lifecycle
	closed    bool

	// reported is the last state passed to OnStateChange.
	reported    State
	hasReported bool

	// generation increments whenever the current transport is
	// abandoned. Dial results, reads, and retry timers carry the
	// generation they were started under and are ignored when it has
	// moved on.
	generation uint64
	conn       Conn
	cancelDial context.CancelFunc
	retry      *clock.Timer

	// deferred holds callbacks and closes queued while mu is held.
	deferred []func()

	writeMu sync.Mutex
}

// NewManager returns a Manager for config. Nothing is dialed until
// Connect.
func NewManager(config Config) *Manager {
	manager := &Manager{
		url:           config.URL,
		dialer:        config.Dialer,
		clock:         config.Clock,
		backoff:       config.Backoff.withDefaults(),
		geometry:      config.Geometry,
		onMessage:     config.OnMessage,
		onStateChange: config.OnStateChange,
		logger:        config.Logger,
	}
	if manager.clock == nil {
		manager.clock = clock.Real()
	}
	if manager.logger == nil {
		manager.logger = slog.New(slog.DiscardHandler)
	}
	return manager
}

// Connect abandons any pending retry or transport and dials now.
func (m *Manager) Connect() {
	m.locked(func() {
		if m.closed {
			return
		}
		m.connectLocked()
	})
}

// Reconnect is the manual retry: it resets the attempt counter and
// dials. It is the way out of StateFailed.
func (m *Manager) Reconnect() {
	m.locked(func() {
		if m.closed {
			return
		}
		m.lifecycle.Retry()
		m.connectLocked()
	})
}

// Visible is called when the viewer comes back to the foreground. It
// reconnects immediately, with a fresh attempt count, unless a
// transport is already open.
func (m *Manager) Visible() {
	m.locked(func() {
		if m.closed || m.conn != nil {
			return
		}
		m.logger.Debug("visible without a connection, reconnecting", "state", m.lifecycle.State.String())
		m.lifecycle.Retry()
		m.connectLocked()
	})
}

// Send writes data to the open transport.
func (m *Manager) Send(data []byte) error {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if err := conn.Write(data); err != nil {
		return fmt.Errorf("sending to relay: %w", err)
	}
	return nil
}

// SendResize sends a resize envelope for the given size.
func (m *Manager) SendResize(columns, rows int) error {
	envelope, err := protocol.EncodeResize(columns, rows)
	if err != nil {
		return err
	}
	return m.Send(envelope)
}

// Connected reports whether a transport is open.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn != nil
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lifecycle.State
}

// Attempt returns the number of automatic retries since the last open.
func (m *Manager) Attempt() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lifecycle.Attempt
}

// Close stops the Manager: the pending retry is cancelled, the
// transport is closed, and nothing reconnects afterwards. Later calls
// do nothing.
func (m *Manager) Close() error {
	m.locked(func() {
		if m.closed {
			return
		}
		m.closed = true
		m.abandonLocked()
	})
	return nil
}

// locked runs f under mu, then runs whatever f deferred with mu
// released.
func (m *Manager) locked(f func()) {
	m.mu.Lock()
	f()
	deferred := m.deferred
	m.deferred = nil
	m.mu.Unlock()

	for _, run := range deferred {
		run()
	}
}

// connectLocked replaces whatever is in flight with a new dial.
func (m *Manager) connectLocked() {
	m.abandonLocked()
	m.lifecycle.Dial()
	m.notifyLocked()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelDial = cancel
	generation := m.generation
	go m.dial(ctx, generation)
}

// abandonLocked cancels the retry timer and the current dial or
// transport. Events they produce later are stale.
func (m *Manager) abandonLocked() {
	m.generation++
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
	if m.cancelDial != nil {
		m.cancelDial()
		m.cancelDial = nil
	}
	if conn := m.conn; conn != nil {
		m.conn = nil
		m.deferred = append(m.deferred, func() {
			if err := conn.Close(); err != nil && !netutil.IsExpectedCloseError(err) {
				m.logger.Debug("closing replaced transport", "error", err)
			}
		})
	}
}

func (m *Manager) dial(ctx context.Context, generation uint64) {
	conn, err := m.dialer.Dial(ctx, m.url)
	m.locked(func() {
		if generation != m.generation || m.closed {
			if conn != nil {
				m.deferred = append(m.deferred, func() { conn.Close() })
			}
			return
		}
		m.cancelDial()
		m.cancelDial = nil

		if err != nil {
			m.logger.Warn("connecting to relay failed", "url", m.url, "error", err)
			m.lostLocked(generation)
			return
		}
		m.openedLocked(conn, generation)
	})
}

func (m *Manager) openedLocked(conn Conn, generation uint64) {
	m.conn = conn
	m.lifecycle.Opened()
	m.logger.Info("connected to relay", "url", m.url)

	// The resize is queued ahead of OnStateChange so that it reaches
	// the relay before anything the callback sends.
	if m.geometry != nil {
		columns, rows := m.geometry()
		envelope, err := protocol.EncodeResize(columns, rows)
		if err != nil {
			m.logger.Debug("skipping initial resize", "error", err)
		} else {
			m.deferred = append(m.deferred, func() {
				m.writeMu.Lock()
				defer m.writeMu.Unlock()
				if err := conn.Write(envelope); err != nil {
					m.logger.Debug("sending initial resize", "error", err)
				}
			})
		}
	}
	m.notifyLocked()

	go m.read(conn, generation)
}

func (m *Manager) read(conn Conn, generation uint64) {
	for {
		data, err := conn.Read()
		if err != nil {
			m.locked(func() {
				if generation != m.generation || m.closed {
					return
				}
				m.conn = nil
				if netutil.IsExpectedCloseError(err) {
					m.logger.Info("relay connection closed", "error", err)
				} else {
					m.logger.Warn("relay connection lost", "error", err)
				}
				m.deferred = append(m.deferred, func() { conn.Close() })
				m.lostLocked(generation)
			})
			return
		}

		m.mu.Lock()
		current := generation == m.generation && !m.closed
		m.mu.Unlock()
		if current && m.onMessage != nil {
			m.onMessage(data)
		}
	}
}

// lostLocked applies an unexpected close and schedules the retry.
func (m *Manager) lostLocked(generation uint64) {
	delay, retry := m.lifecycle.Lost(m.backoff)
	m.notifyLocked()
	if !retry {
		m.logger.Warn("giving up on relay connection", "attempts", m.backoff.MaxAttempts)
		return
	}

	m.logger.Info("reconnecting", "delay", delay, "attempt", m.lifecycle.Attempt)
	m.retry = m.clock.AfterFunc(delay, func() {
		m.locked(func() {
			if generation != m.generation || m.closed {
				return
			}
			m.retry = nil
			m.connectLocked()
		})
	})
}

// notifyLocked queues OnStateChange if the state changed since the
// last call.
func (m *Manager) notifyLocked() {
	state := m.lifecycle.State
	if m.hasReported && m.reported == state {
		return
	}
	m.reported, m.hasReported = state, true
	if m.onStateChange == nil {
		return
	}
	m.deferred = append(m.deferred, func() { m.onStateChange(state) })
}

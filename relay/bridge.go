// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/termbridge/termbridge/lib/clock"
	"github.com/termbridge/termbridge/lib/netutil"
	"github.com/termbridge/termbridge/lib/pty"
	"github.com/termbridge/termbridge/protocol"
)

// DefaultHeartbeatInterval is the time between pings.
const DefaultHeartbeatInterval = 30 * time.Second

// ErrHeartbeatTimeout is returned by Run when the peer stopped
// answering pings.
var ErrHeartbeatTimeout = errors.New("heartbeat timeout: no pong since the previous ping")

// BridgeConfig configures a Bridge.
type BridgeConfig struct {
	// ID identifies the connection in logs.
	ID string

	Socket  Socket
	Process pty.Process

	// Clock drives the heartbeat. Default: clock.Real()
	Clock clock.Clock

	// HeartbeatInterval is the time between pings.
	// Default: DefaultHeartbeatInterval
	HeartbeatInterval time.Duration

	Logger *slog.Logger
}

// Bridge pairs one Socket with one pty.Process for the life of a
// connection.
type Bridge struct {
	id       string
	socket   Socket
	process  pty.Process
	clock    clock.Clock
	interval time.Duration
	logger   *slog.Logger

	// alive is cleared by each ping and set by each pong.
	alive  atomic.Bool
	ticker *clock.Ticker

	// drained is closed when the output pump has sent everything the
	// process produced.
	drained chan struct{}

	teardownOnce sync.Once
	stopping     chan struct{}
	done         chan struct{}
	cause        error
}

// teardownCause records why a Bridge ended and how the socket is
// closed.
type teardownCause struct {
	code   int
	reason string
	err    error

	// terminate drops the socket without a close handshake.
	terminate bool
}

// NewBridge returns a Bridge for config. Nothing runs until Run.
func NewBridge(config BridgeConfig) *Bridge {
	bridge := &Bridge{
		id:       config.ID,
		socket:   config.Socket,
		process:  config.Process,
		clock:    config.Clock,
		interval: config.HeartbeatInterval,
		logger:   config.Logger,
		drained:  make(chan struct{}),
		stopping: make(chan struct{}),
		done:     make(chan struct{}),
	}
	if bridge.clock == nil {
		bridge.clock = clock.Real()
	}
	if bridge.interval <= 0 {
		bridge.interval = DefaultHeartbeatInterval
	}
	if bridge.logger == nil {
		bridge.logger = slog.New(slog.DiscardHandler)
	}
	return bridge
}

// Done is closed when teardown has finished.
func (b *Bridge) Done() <-chan struct{} {
	return b.done
}

// Run pumps until the connection ends and returns after every pump
// goroutine has exited. It returns nil when the pty exited, the peer
// closed the socket normally, or ctx was cancelled;
// ErrHeartbeatTimeout when the peer stopped answering; otherwise the
// transport error.
func (b *Bridge) Run(ctx context.Context) error {
	b.alive.Store(true)
	b.socket.OnPong(func() { b.alive.Store(true) })

	b.ticker = b.clock.NewTicker(b.interval)

	var pumps sync.WaitGroup
	pumps.Add(3)
	go func() {
		defer pumps.Done()
		b.pumpInput()
	}()
	go func() {
		defer pumps.Done()
		b.pumpOutput()
	}()
	go func() {
		defer pumps.Done()
		b.supervise(ctx)
	}()

	pumps.Wait()
	return b.cause
}

// pumpInput forwards socket messages to the pty until the socket fails.
func (b *Bridge) pumpInput() {
	for {
		data, err := b.socket.Receive()
		if err != nil {
			cause := teardownCause{code: protocol.CloseNormal}
			if !netutil.IsExpectedCloseError(err) {
				cause.err = fmt.Errorf("receive: %w", err)
			}
			b.logger.Debug("socket receive ended", "error", err)
			b.teardown(cause)
			return
		}
		b.handleInput(data)
	}
}

// handleInput applies a control envelope or writes raw input. Failures
// are dropped: teardown is the only recovery for a dead pty.
func (b *Bridge) handleInput(data []byte) {
	if control, ok := protocol.ParseControl(data); ok {
		size := pty.Size{Columns: control.Columns, Rows: control.Rows}
		if err := b.process.Resize(size); err != nil {
			b.logger.Debug("resize failed", "size", size.String(), "error", err)
		}
		return
	}
	if len(data) == 0 {
		return
	}
	if _, err := b.process.Write(data); err != nil {
		b.logger.Debug("pty write failed", "bytes", len(data), "error", err)
	}
}

// pumpOutput forwards pty output to the socket until output ends.
// Chunks produced while the socket is not open are dropped.
func (b *Bridge) pumpOutput() {
	defer close(b.drained)
	var framer textFramer
	send := func(text []byte) {
		if len(text) == 0 || !b.socket.Open() {
			return
		}
		if err := b.socket.Send(text); err != nil {
			b.logger.Debug("socket send failed", "bytes", len(text), "error", err)
		}
	}
	for chunk := range b.process.Output() {
		send(framer.frame(chunk))
	}
	send(framer.flush())
}

// supervise runs the heartbeat and watches for pty exit and
// cancellation.
func (b *Bridge) supervise(ctx context.Context) {
	for {
		select {
		case <-b.ticker.C:
			if !b.alive.Swap(false) {
				b.logger.Info("terminating unresponsive connection", "interval", b.interval)
				b.teardown(teardownCause{code: protocol.CloseNormal, err: ErrHeartbeatTimeout, terminate: true})
				return
			}
			if err := b.socket.Ping(); err != nil {
				b.logger.Debug("ping failed", "error", err)
			}

		case <-b.process.Exited():
			// Output closes before Exited, so this only waits for the
			// final sends.
			<-b.drained
			b.teardown(teardownCause{code: protocol.CloseNormal, reason: protocol.ReasonProcessEnded})
			return

		case <-ctx.Done():
			b.teardown(teardownCause{code: protocol.CloseGoingAway, reason: protocol.ReasonShutdown})
			return

		case <-b.stopping:
			return
		}
	}
}

// teardown releases everything exactly once: heartbeat, process,
// socket. The cause is recorded before the socket goes away, so a
// reader woken by the close cannot replace it. Later calls wait for
// the first to finish and return.
func (b *Bridge) teardown(cause teardownCause) {
	b.teardownOnce.Do(func() {
		b.cause = cause.err
		b.ticker.Stop()
		close(b.stopping)

		if err := b.process.Destroy(); err != nil {
			b.logger.Warn("destroying pty process", "error", err)
		}
		if cause.terminate {
			if err := b.socket.Terminate(); err != nil {
				b.logger.Debug("terminate failed", "error", err)
			}
		} else if err := b.socket.Close(cause.code, cause.reason); err != nil {
			b.logger.Debug("closing socket", "error", err)
		}

		attrs := []any{"exit_code", b.process.ExitCode(), "close_code", cause.code}
		if cause.err != nil {
			attrs = append(attrs, "error", cause.err)
		}
		b.logger.Info("connection closed", attrs...)
		close(b.done)
	})
}

// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/termbridge/termbridge/lib/clock"
	"github.com/termbridge/termbridge/lib/pty"
	"github.com/termbridge/termbridge/lib/pty/ptytest"
	"github.com/termbridge/termbridge/lib/testutil"
	"github.com/termbridge/termbridge/protocol"
)

const testTimeout = 5 * time.Second

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// bridgeHarness runs one Bridge over a fake socket and process.
type bridgeHarness struct {
	socket  *fakeSocket
	process *ptytest.Process
	clock   *clock.FakeClock
	bridge  *Bridge
	cancel  context.CancelFunc
	result  chan error
}

func startBridge(t *testing.T, socket *fakeSocket) *bridgeHarness {
	t.Helper()
	harness := &bridgeHarness{
		socket:  socket,
		process: ptytest.NewProcess(4242),
		clock:   clock.Fake(epoch),
		result:  make(chan error, 1),
	}
	harness.bridge = NewBridge(BridgeConfig{
		ID:                "test-connection",
		Socket:            socket,
		Process:           harness.process,
		Clock:             harness.clock,
		HeartbeatInterval: 30 * time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	harness.cancel = cancel
	go func() { harness.result <- harness.bridge.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-harness.result:
		case <-harness.bridge.Done():
		case <-time.After(testTimeout):
			t.Error("bridge did not stop")
		}
	})

	// The ticker is registered before the pumps start.
	harness.clock.WaitForTimers(1)
	return harness
}

func (h *bridgeHarness) wait(t *testing.T) error {
	t.Helper()
	return testutil.RequireReceive(t, h.result, testTimeout, "waiting for Run to return")
}

func TestBridgeWritesInput(t *testing.T) {
	t.Parallel()
	harness := startBridge(t, newFakeSocket())

	harness.socket.deliver("ls -la\r")
	if got := testutil.RequireReceive(t, harness.process.Written(), testTimeout); string(got) != "ls -la\r" {
		t.Errorf("written = %q, want %q", got, "ls -la\r")
	}

	// Keystrokes that look like JSON but are not a resize reach the pty.
	for _, input := range []string{
		"{",
		`{"type":"resize","cols":"120","rows":40}`,
		`{"type":"resize","cols":0,"rows":40}`,
		`{"type":"paste","data":"x"}`,
	} {
		harness.socket.deliver(input)
		if got := testutil.RequireReceive(t, harness.process.Written(), testTimeout); string(got) != input {
			t.Errorf("written = %q, want %q", got, input)
		}
	}
}

func TestBridgeAppliesResize(t *testing.T) {
	t.Parallel()
	harness := startBridge(t, newFakeSocket())

	harness.socket.deliver(`{"type":"resize","cols":120,"rows":40}`)
	got := testutil.RequireReceive(t, harness.process.Resized(), testTimeout)
	if want := (pty.Size{Columns: 120, Rows: 40}); got != want {
		t.Errorf("resized to %v, want %v", got, want)
	}

	// The envelope must not leak into the terminal.
	harness.socket.deliver("q")
	if written := testutil.RequireReceive(t, harness.process.Written(), testTimeout); string(written) != "q" {
		t.Errorf("written = %q, want %q", written, "q")
	}
}

func TestBridgeSendsOutput(t *testing.T) {
	t.Parallel()
	harness := startBridge(t, newFakeSocket())

	harness.process.Emit([]byte("\x1b[1mhello\x1b[0m"))
	if got := testutil.RequireReceive(t, harness.socket.sent, testTimeout); string(got) != "\x1b[1mhello\x1b[0m" {
		t.Errorf("sent = %q", got)
	}

	harness.process.Emit([]byte("\xe2\x94"))
	harness.process.Emit([]byte("\x80"))
	if got := testutil.RequireReceive(t, harness.socket.sent, testTimeout); string(got) != "─" {
		t.Errorf("sent = %q, want %q", got, "─")
	}
}

func TestBridgeProcessExit(t *testing.T) {
	t.Parallel()
	harness := startBridge(t, newFakeSocket())

	harness.process.Emit([]byte("[exited]\r\n"))
	harness.process.Exit(0)

	if err := harness.wait(t); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	// Output produced before exit is delivered before the close.
	if got := testutil.RequireReceive(t, harness.socket.sent, testTimeout); string(got) != "[exited]\r\n" {
		t.Errorf("sent = %q", got)
	}
	code, reason := harness.socket.closed()
	if code != protocol.CloseNormal || reason != protocol.ReasonProcessEnded {
		t.Errorf("closed with %d %q, want %d %q", code, reason, protocol.CloseNormal, protocol.ReasonProcessEnded)
	}
	testutil.RequireClosed(t, harness.bridge.Done(), testTimeout)
}

func TestBridgePeerClose(t *testing.T) {
	t.Parallel()
	harness := startBridge(t, newFakeSocket())

	harness.socket.fail(&websocket.CloseError{Code: websocket.CloseGoingAway, Text: "tab closed"})

	if err := harness.wait(t); err != nil {
		t.Fatalf("Run() = %v, want nil for a normal close", err)
	}
	if got := harness.process.DestroyCount(); got != 1 {
		t.Errorf("DestroyCount() = %d, want 1", got)
	}
	if got := harness.process.ExitCode(); got != 129 {
		t.Errorf("ExitCode() = %d, want 129", got)
	}
	if got := harness.clock.PendingCount(); got != 0 {
		t.Errorf("%d timers still pending after teardown", got)
	}
}

func TestBridgeTransportError(t *testing.T) {
	t.Parallel()
	harness := startBridge(t, newFakeSocket())

	boom := errors.New("tls: bad record MAC")
	harness.socket.fail(boom)

	if err := harness.wait(t); !errors.Is(err, boom) {
		t.Fatalf("Run() = %v, want wrapping %v", err, boom)
	}
	if got := harness.process.DestroyCount(); got != 1 {
		t.Errorf("DestroyCount() = %d, want 1", got)
	}
}

func TestBridgeTeardownRunsOnce(t *testing.T) {
	t.Parallel()
	harness := startBridge(t, newFakeSocket())

	// Three triggers at once: peer close, cancellation, and process exit.
	harness.socket.fail(&websocket.CloseError{Code: websocket.CloseNormalClosure})
	harness.cancel()
	harness.process.Exit(1)

	harness.wait(t)
	if got := harness.process.DestroyCount(); got != 1 {
		t.Errorf("DestroyCount() = %d, want 1", got)
	}
	if got := harness.socket.closeCalls.Load(); got != 1 {
		t.Errorf("Close called %d times, want 1", got)
	}
}

func TestBridgeContextCancel(t *testing.T) {
	t.Parallel()
	harness := startBridge(t, newFakeSocket())

	harness.cancel()

	if err := harness.wait(t); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	code, reason := harness.socket.closed()
	if code != protocol.CloseGoingAway || reason != protocol.ReasonShutdown {
		t.Errorf("closed with %d %q, want %d %q", code, reason, protocol.CloseGoingAway, protocol.ReasonShutdown)
	}
}

func TestBridgeHeartbeat(t *testing.T) {
	t.Parallel()

	t.Run("responsive peer stays connected", func(t *testing.T) {
		t.Parallel()
		harness := startBridge(t, newFakeSocket())

		for i := 0; i < 4; i++ {
			harness.clock.Advance(30 * time.Second)
			testutil.RequireReceive(t, harness.socket.pings, testTimeout, "ping %d", i+1)
		}
		select {
		case err := <-harness.result:
			t.Fatalf("Run returned %v while the peer answered every ping", err)
		default:
		}
		if harness.socket.terminated.Load() {
			t.Error("responsive socket was terminated")
		}
	})

	t.Run("silent peer is terminated", func(t *testing.T) {
		t.Parallel()
		socket := newFakeSocket()
		socket.answerPings = false
		harness := startBridge(t, socket)

		harness.clock.Advance(30 * time.Second)
		testutil.RequireReceive(t, socket.pings, testTimeout, "first ping")

		harness.clock.Advance(30 * time.Second)
		if err := harness.wait(t); !errors.Is(err, ErrHeartbeatTimeout) {
			t.Fatalf("Run() = %v, want ErrHeartbeatTimeout", err)
		}
		if !socket.terminated.Load() {
			t.Error("silent socket was not terminated")
		}
		if got := harness.process.DestroyCount(); got != 1 {
			t.Errorf("DestroyCount() = %d, want 1", got)
		}
	})

	t.Run("timeout survives the reader ending first", func(t *testing.T) {
		t.Parallel()
		socket := newFakeSocket()
		socket.answerPings = false
		socket.receiveEnded = make(chan struct{})
		harness := startBridge(t, socket)

		harness.clock.Advance(30 * time.Second)
		testutil.RequireReceive(t, socket.pings, testTimeout, "first ping")

		// Terminate returns only after Receive has failed, so the input
		// pump reaches teardown while the heartbeat is still in it.
		harness.clock.Advance(30 * time.Second)
		if err := harness.wait(t); !errors.Is(err, ErrHeartbeatTimeout) {
			t.Fatalf("Run() = %v, want ErrHeartbeatTimeout", err)
		}
		if got := socket.closeCalls.Load(); got != 0 {
			t.Errorf("Close called %d times on a terminated socket, want 0", got)
		}
	})
}

func TestBridgeDropsOutputWhileClosed(t *testing.T) {
	t.Parallel()
	socket := newFakeSocket()
	harness := startBridge(t, socket)

	socket.open.Store(false)
	harness.process.Emit([]byte("lost"))
	harness.process.Exit(0)
	harness.wait(t)

	select {
	case data := <-socket.sent:
		t.Errorf("sent %q on a closed socket", data)
	default:
	}
}

// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/termbridge/termbridge/lib/clock"
	"github.com/termbridge/termbridge/lib/netutil"
	"github.com/termbridge/termbridge/lib/pty"
	"github.com/termbridge/termbridge/lib/tmux"
	"github.com/termbridge/termbridge/protocol"
)

// ServerConfig configures a Server.
type ServerConfig struct {
	// Driver spawns the pty process for each connection.
	Driver pty.Driver

	// InitialSize is the pty size before the client reports its own.
	// Default: pty.DefaultSize
	InitialSize pty.Size

	// HeartbeatInterval is passed to every Bridge.
	HeartbeatInterval time.Duration

	// AllowedOrigins lists browser origins accepted besides same-origin
	// requests. "*" accepts any origin. Requests without an Origin
	// header (non-browser clients) are always accepted.
	AllowedOrigins []string

	// Registry tracks live connections. Default: a new Registry.
	Registry *Registry

	// Clock drives heartbeats and connection timestamps.
	// Default: clock.Real()
	Clock clock.Clock

	Logger *slog.Logger
}

// Server serves the terminal WebSocket endpoint.
type Server struct {
	driver         pty.Driver
	initialSize    pty.Size
	interval       time.Duration
	allowedOrigins []string
	registry       *Registry
	clock          clock.Clock
	logger         *slog.Logger
	upgrader       websocket.Upgrader

	// shutdown is cancelled by Shutdown; every Bridge context derives
	// from it.
	shutdown     context.Context
	cancel       context.CancelFunc
	shuttingDown atomic.Bool
}

// NewServer returns a Server for config.
func NewServer(config ServerConfig) *Server {
	server := &Server{
		driver:         config.Driver,
		initialSize:    config.InitialSize,
		interval:       config.HeartbeatInterval,
		allowedOrigins: config.AllowedOrigins,
		registry:       config.Registry,
		clock:          config.Clock,
		logger:         config.Logger,
	}
	if server.initialSize == (pty.Size{}) {
		server.initialSize = pty.DefaultSize
	}
	if server.registry == nil {
		server.registry = NewRegistry()
	}
	if server.clock == nil {
		server.clock = clock.Real()
	}
	if server.logger == nil {
		server.logger = slog.New(slog.DiscardHandler)
	}
	server.upgrader = websocket.Upgrader{
		ReadBufferSize:    4096,
		WriteBufferSize:   32 * 1024,
		EnableCompression: true,
		CheckOrigin:       server.checkOrigin,
	}
	server.shutdown, server.cancel = context.WithCancel(context.Background())
	return server
}

// Registry returns the registry of live connections.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Handler returns the relay's HTTP routes: the terminal endpoint,
// /healthz, and /api/relay/connections.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(protocol.Endpoint, s)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if s.shuttingDown.Load() {
			http.Error(w, "shutting down", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("GET /api/relay/connections", func(w http.ResponseWriter, r *http.Request) {
		if err := netutil.WriteJSON(w, http.StatusOK, s.registry.Snapshot()); err != nil {
			s.logger.Debug("writing connection list", "error", err)
		}
	})
	return mux
}

// ServeHTTP upgrades a terminal request and runs its Bridge until the
// connection ends. The session name is validated before the upgrade;
// an invalid one gets 400 and no WebSocket.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != protocol.Endpoint {
		http.NotFound(w, r)
		return
	}

	session := r.URL.Query().Get(protocol.SessionParameter)
	if err := tmux.CheckSessionName(session); err != nil {
		s.logger.Warn("rejected terminal request", "remote_addr", r.RemoteAddr, "error", err)
		http.Error(w, protocol.ReasonInvalidSession, http.StatusBadRequest)
		return
	}

	if s.shuttingDown.Load() {
		http.Error(w, "relay shutting down", http.StatusServiceUnavailable)
		return
	}

	// Upgrade writes its own HTTP error response on failure.
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	// The connection outlives the request's cancellation semantics once
	// hijacked; Shutdown is what ends it.
	if err := s.Attach(context.WithoutCancel(r.Context()), NewWebSocket(conn), session); err != nil {
		var spawnErr *pty.SpawnError
		if errors.As(err, &spawnErr) || errors.Is(err, ErrHeartbeatTimeout) {
			return
		}
		s.logger.Warn("terminal connection ended with error", "session", session, "error", err)
	}
}

// Attach spawns a pty for session and bridges it to socket until
// either side ends, ctx is cancelled, or the server shuts down. A spawn
// failure closes the socket with 1011 and returns the *pty.SpawnError;
// nothing is ever sent to the peer in that case.
func (s *Server) Attach(ctx context.Context, socket Socket, session string) error {
	if err := tmux.CheckSessionName(session); err != nil {
		socket.Close(protocol.ClosePolicyViolation, protocol.ReasonInvalidSession)
		return err
	}

	id := uuid.NewString()
	logger := s.logger.With("connection_id", id, "session", session)

	process, err := s.driver.Spawn(session, s.initialSize)
	if err != nil {
		logger.Error("pty spawn failed", "error", err)
		socket.Close(protocol.CloseSpawnFailed, protocol.ReasonSpawnFailed)
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.shutdown, cancel)
	defer stop()

	bridge := NewBridge(BridgeConfig{
		ID:                id,
		Socket:            socket,
		Process:           process,
		Clock:             s.clock,
		HeartbeatInterval: s.interval,
		Logger:            logger,
	})

	info := ConnectionInfo{
		ID:         id,
		Session:    session,
		RemoteAddr: socket.RemoteAddr(),
		PID:        process.PID(),
		StartedAt:  s.clock.Now().UTC(),
	}
	if err := s.registry.Add(info, cancel); err != nil {
		// A duplicate UUID; the bridge never ran, so release by hand.
		process.Destroy()
		socket.Close(protocol.CloseSpawnFailed, protocol.ReasonSpawnFailed)
		return fmt.Errorf("registering connection: %w", err)
	}
	defer s.registry.Remove(id)

	logger.Info("terminal connected", "remote_addr", info.RemoteAddr, "pid", info.PID)
	return bridge.Run(ctx)
}

// Shutdown closes every live connection with 1001 and waits until they
// are gone or ctx is done. New requests get 503 from then on.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shuttingDown.Store(true)
	s.cancel()
	closing := s.registry.CloseAll()
	if closing > 0 {
		s.logger.Info("closing terminal connections", "count", closing)
	}
	return s.registry.Wait(ctx)
}

// checkOrigin accepts requests without an Origin header, same-origin
// requests, and configured origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if slices.Contains(s.allowedOrigins, "*") {
		return true
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	if strings.EqualFold(parsed.Host, r.Host) {
		return true
	}

	origin = strings.TrimSuffix(origin, "/")
	for _, allowed := range s.allowedOrigins {
		if strings.EqualFold(origin, strings.TrimSuffix(allowed, "/")) {
			return true
		}
	}
	s.logger.Warn("rejected cross-origin terminal request", "origin", origin, "host", r.Host)
	return false
}

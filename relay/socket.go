// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/termbridge/termbridge/lib/netutil"
)

// Socket is the transport side of a Bridge.
type Socket interface {
	// Receive returns the next text or binary message.
	Receive() ([]byte, error)

	// Send writes data as one text message.
	Send(data []byte) error

	// Ping sends a liveness probe.
	Ping() error

	// OnPong registers the callback for probe answers. It is called
	// before the first Receive.
	OnPong(func())

	// Open reports whether sends can still reach the peer.
	Open() bool

	// Close sends a close frame with code and reason and closes the
	// connection. Only the first call has effect.
	Close(code int, reason string) error

	// Terminate closes the connection without a close handshake.
	Terminate() error

	// RemoteAddr identifies the peer for logs and the registry.
	RemoteAddr() string
}

// writeTimeout bounds every frame write, so a stalled peer cannot
// block the output pump forever.
const writeTimeout = 10 * time.Second

// maxMessageSize bounds inbound messages. Pasted text is the largest
// legitimate input.
const maxMessageSize = 1 << 20

// webSocket adapts a gorilla connection to Socket. gorilla allows one
// concurrent writer for data frames; control frames and Close may be
// called from any goroutine.
type webSocket struct {
	conn *websocket.Conn

	writeMu sync.Mutex
	open    atomic.Bool

	closeOnce sync.Once
	closeErr  error
}

// NewWebSocket returns a Socket for an upgraded connection.
func NewWebSocket(conn *websocket.Conn) Socket {
	conn.SetReadLimit(maxMessageSize)
	socket := &webSocket{conn: conn}
	socket.open.Store(true)
	return socket
}

func (s *webSocket) Receive() ([]byte, error) {
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		s.open.Store(false)
		return nil, err
	}
	return data, nil
}

func (s *webSocket) Send(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.open.Store(false)
		return err
	}
	return nil
}

func (s *webSocket) Ping() error {
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

func (s *webSocket) OnPong(f func()) {
	s.conn.SetPongHandler(func(string) error {
		f()
		return nil
	})
}

func (s *webSocket) Open() bool {
	return s.open.Load()
}

func (s *webSocket) Close(code int, reason string) error {
	s.closeOnce.Do(func() {
		wasOpen := s.open.Swap(false)
		if wasOpen {
			message := websocket.FormatCloseMessage(code, reason)
			err := s.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(writeTimeout))
			if err != nil && !netutil.IsExpectedCloseError(err) {
				s.closeErr = err
			}
		}
		if err := s.conn.Close(); err != nil && !netutil.IsExpectedCloseError(err) && s.closeErr == nil {
			s.closeErr = err
		}
	})
	return s.closeErr
}

func (s *webSocket) Terminate() error {
	s.open.Store(false)
	// gorilla's Close drops the TCP connection without a close frame.
	err := s.conn.Close()
	if netutil.IsExpectedCloseError(err) {
		return nil
	}
	return err
}

func (s *webSocket) RemoteAddr() string {
	return s.conn.RemoteAddr().String()
}

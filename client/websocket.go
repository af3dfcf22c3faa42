// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/termbridge/termbridge/lib/netutil"
	"github.com/termbridge/termbridge/lib/tmux"
	"github.com/termbridge/termbridge/lib/version"
	"github.com/termbridge/termbridge/protocol"
)

// EndpointURL returns the terminal endpoint for session on the relay
// at base. http and https bases map to ws and wss.
func EndpointURL(base, session string) (string, error) {
	if err := tmux.CheckSessionName(session); err != nil {
		return "", err
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing relay URL: %w", err)
	}
	switch parsed.Scheme {
	case "http", "ws":
		parsed.Scheme = "ws"
	case "https", "wss":
		parsed.Scheme = "wss"
	default:
		return "", fmt.Errorf("relay URL %q: unsupported scheme %q", base, parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("relay URL %q has no host", base)
	}
	parsed.Path = protocol.Endpoint
	parsed.RawQuery = url.Values{protocol.SessionParameter: {session}}.Encode()
	parsed.Fragment = ""
	return parsed.String(), nil
}

// WebSocketDialer dials the relay with gorilla/websocket.
type WebSocketDialer struct {
	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer

	// Header is sent with the handshake. A User-Agent is added when
	// missing.
	Header http.Header

	// Program names the caller in the User-Agent.
	Program string
}

// Dial implements Dialer.
func (d WebSocketDialer) Dial(ctx context.Context, endpoint string) (Conn, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	header := d.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	if header.Get("User-Agent") == "" {
		program := d.Program
		if program == "" {
			program = "termbridge"
		}
		header.Set("User-Agent", version.UserAgent(program))
	}

	conn, response, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if errors.Is(err, websocket.ErrBadHandshake) && response != nil {
			defer response.Body.Close()
			return nil, fmt.Errorf("dialing %s: %s: %s", endpoint, response.Status, netutil.ErrorBody(response.Body))
		}
		return nil, fmt.Errorf("dialing %s: %w", endpoint, err)
	}
	return &webSocketConn{conn: conn}, nil
}

// webSocketConn adapts a gorilla client connection to Conn. gorilla's
// default ping handler answers the relay's heartbeat during Read.
type webSocketConn struct {
	conn      *websocket.Conn
	closeOnce sync.Once
}

func (c *webSocketConn) Read() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *webSocketConn) Write(data []byte) error {
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *webSocketConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		c.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(time.Second))
		err = c.conn.Close()
	})
	return err
}

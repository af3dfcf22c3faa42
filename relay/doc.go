// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package relay bridges WebSocket connections to tmux attach clients.
//
// [Server] is the HTTP handler for the upgrade endpoint. It validates
// the session name before upgrading, spawns one pty process per
// connection through the injected pty.Driver, and runs a [Bridge]
// between the two. Live bridges are tracked in a [Registry], which is
// also what /api/relay/connections reports and what Shutdown drains.
//
// A Bridge pumps bytes in both directions:
//
//   - socket to pty: control envelopes (see package protocol) are
//     applied to the pty; every other message is written verbatim
//   - pty to socket: each output chunk is sent as one text frame while
//     the socket is open and dropped otherwise
//
// and runs a ping/pong heartbeat so that a phone that vanished without
// a close frame is noticed within two intervals. Teardown happens once,
// whichever of pty exit, socket close, heartbeat failure, or context
// cancellation comes first: heartbeat stopped, process destroyed,
// socket closed.
//
// The transport is abstracted as [Socket]; [NewWebSocket] adapts a
// gorilla/websocket connection. Tests drive Bridges with in-memory
// sockets, lib/pty/ptytest processes, and a fake clock.
package relay

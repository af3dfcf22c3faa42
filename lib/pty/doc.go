// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package pty owns the pseudo-terminal processes the relay bridges to
// WebSocket connections.
//
// A [Driver] spawns one [Process] per connection. The relay only sees
// the two interfaces, so tests substitute the in-memory implementation
// from lib/pty/ptytest and never start a real process.
//
// [TmuxDriver] is the real implementation: it allocates a pty pair
// through /dev/ptmx, sets the initial window size on the master, and
// starts "tmux -u attach-session -t =NAME" with the slave as its
// controlling terminal. The process never interprets terminal content;
// bytes written go to the master unchanged and bytes read come back as
// output chunks.
//
// Destroying a process hangs up the attach client (SIGHUP), the way
// closing a terminal window would. The tmux session itself keeps
// running and the next connection reattaches to it.
package pty

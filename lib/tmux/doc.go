// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package tmux provides a typed interface to the tmux server the relay
// attaches to.
//
// Session names arrive from the network and end up as tmux targets, so
// every entry point that takes one runs [CheckSessionName] first. The
// accepted alphabet is [A-Za-z0-9_-]; anything else is rejected before
// a process is started.
//
// [Server] injects -S (when a socket is configured), the resolved tmux
// binary, and the augmented environment into every command. An empty
// socket path targets the user's default server, which is where their
// own sessions live; tests use [NewTestServer] for an isolated one.
//
// [AugmentPath] and [ResolveBinary] exist because daemons started by
// launchd or systemd get a minimal PATH that often lacks the package
// manager's bin directory.
package tmux

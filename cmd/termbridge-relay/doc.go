// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

// Termbridge-relay serves tmux sessions to browsers and phones over
// WebSocket.
//
// Each connection to /api/terminal?session=NAME gets its own tmux
// client attached to the existing session NAME on a fresh pty. Closing
// the connection detaches that client; the session keeps running.
//
// Configuration comes from the file named by --config or
// TERMBRIDGE_CONFIG (YAML, or JSON with comments for .json/.jsonc), or
// from built-in defaults. --listen overrides the configured address;
// without it the PORT environment variable replaces the port.
//
// Environment variables:
//
//	TERMBRIDGE_CONFIG  configuration file path
//	TERMBRIDGE_DEBUG   set to "1" for debug logging
//	PORT               listen port when --listen is not given
package main

// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports what build of termbridge is running: in
// --version output, in the relay's startup log, and in the User-Agent
// the attach client sends with its WebSocket handshake.
package version

// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for termbridge packages.
//
// [RequireReceive], [RequireSend], and [RequireClosed] wrap the select
// with a wall-clock fallback so a broken pump or a missed teardown
// fails the test instead of hanging it. Timers under test run on the
// fake clock from lib/clock.
//
// [SocketDir] creates a short directory under /tmp for tmux server
// sockets, which are Unix domain sockets bound by the 108-byte sun_path
// limit.
//
// [UniqueID] generates distinct session names for tests sharing one
// tmux server.
//
// All helpers call t.Fatalf on failure rather than returning errors.
package testutil

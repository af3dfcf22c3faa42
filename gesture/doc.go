// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package gesture turns single-finger touch streams into terminal
// mouse protocol.
//
// A vertical swipe becomes SGR mouse-wheel events sent to the relay,
// which tmux (with mouse on) turns into scrollback. A long press enters
// selection mode: the local terminal emulator's mouse reporting is
// switched off so that its own text selection works, and on exit the
// exact tracking mode that was active before is switched back on.
// Those mode changes go to the local emulator only; tmux never sees
// them.
package gesture

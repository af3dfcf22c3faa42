// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package client keeps one terminal connection to a relay alive from
// the viewer's side.
//
// The lifecycle is split in two. [Lifecycle] and [Backoff] are the pure
// state machine: connecting, connected, reconnecting, failed, with
// exponential backoff capped at a number of attempts. They hold no
// timers and no transport, so every transition can be tested directly.
//
// [Manager] drives a Lifecycle with real events. It dials through an
// injected [Dialer], schedules retries on a clock.Clock, sends the
// initial resize envelope when a transport opens, and ignores events
// from transports it has already replaced. Only [Manager.Reconnect] and
// [Manager.Visible] leave the failed state; [Manager.Close] stops
// everything for good.
//
// [WebSocketDialer] is the gorilla/websocket transport used by
// termbridge-attach.
package client

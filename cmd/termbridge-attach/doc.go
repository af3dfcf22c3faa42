// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

// Termbridge-attach connects the local terminal to a tmux session
// served by termbridge-relay.
//
//	termbridge-attach --url https://relay.example:3100 work
//
// The local terminal is put in raw mode and every keystroke goes to the
// relay. Window size changes are forwarded as resize envelopes. Lost
// connections are retried with backoff; once the retries are spent,
// press r to try again. Resuming the process after a suspend retries at
// once. Ctrl-] detaches.
package main

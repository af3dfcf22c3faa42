// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock is the time source for every timer in termbridge: the
// relay heartbeat, the client reconnect backoff, and the long-press
// detector in the gesture translator.
//
// Production code takes a [Clock] and is handed [Real]. Tests hand it a
// [FakeClock] and move time with Advance:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	manager := client.NewManager(client.Config{Clock: fake, ...})
//	fake.WaitForTimers(1)      // backoff timer registered
//	fake.Advance(time.Second)  // reconnect fires now
//
// AfterFunc callbacks on a FakeClock run synchronously inside Advance,
// so a test observes their effects as soon as Advance returns.
package clock

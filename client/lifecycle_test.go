// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"testing"
	"time"
)

func TestBackoffDelay(t *testing.T) {
	t.Parallel()
	backoff := Backoff{Base: 250 * time.Millisecond, MaxAttempts: 5}
	for attempt, want := range []time.Duration{
		250 * time.Millisecond,
		500 * time.Millisecond,
		time.Second,
		2 * time.Second,
		4 * time.Second,
	} {
		if got := backoff.Delay(attempt); got != want {
			t.Errorf("Delay(%d) = %v, want %v", attempt, got, want)
		}
	}
}

func TestLifecycleBackoffThenFailed(t *testing.T) {
	t.Parallel()
	var lifecycle Lifecycle
	lifecycle.Dial()

	for attempt := 0; attempt < DefaultBackoff.MaxAttempts; attempt++ {
		delay, retry := lifecycle.Lost(DefaultBackoff)
		if !retry {
			t.Fatalf("Lost() #%d: no retry, want one", attempt+1)
		}
		if want := time.Second << attempt; delay != want {
			t.Errorf("Lost() #%d delay = %v, want %v", attempt+1, delay, want)
		}
		if lifecycle.State != StateReconnecting {
			t.Errorf("state = %v, want reconnecting", lifecycle.State)
		}
		lifecycle.Dial()
	}

	if _, retry := lifecycle.Lost(DefaultBackoff); retry {
		t.Fatal("retry scheduled after the attempts were spent")
	}
	if lifecycle.State != StateFailed {
		t.Fatalf("state = %v, want failed", lifecycle.State)
	}

	// A late close cannot move failed back to reconnecting.
	if _, retry := lifecycle.Lost(DefaultBackoff); retry || lifecycle.State != StateFailed {
		t.Fatalf("Lost() on failed: retry=%v state=%v", retry, lifecycle.State)
	}
}

func TestLifecycleOpenedResetsAttempts(t *testing.T) {
	t.Parallel()
	var lifecycle Lifecycle
	lifecycle.Lost(DefaultBackoff)
	lifecycle.Lost(DefaultBackoff)
	lifecycle.Opened()

	if lifecycle.State != StateConnected || lifecycle.Attempt != 0 {
		t.Fatalf("after Opened: %+v", lifecycle)
	}
	if delay, _ := lifecycle.Lost(DefaultBackoff); delay != time.Second {
		t.Errorf("first delay after a good connection = %v, want 1s", delay)
	}
}

func TestLifecycleRetryLeavesFailed(t *testing.T) {
	t.Parallel()
	lifecycle := Lifecycle{State: StateFailed, Attempt: 5}
	lifecycle.Retry()
	if lifecycle.State != StateConnecting || lifecycle.Attempt != 0 {
		t.Fatalf("after Retry: %+v", lifecycle)
	}
	if delay, retry := lifecycle.Lost(DefaultBackoff); !retry || delay != DefaultBackoff.Base {
		t.Errorf("Lost() after Retry = %v, %v; want %v, true", delay, retry, DefaultBackoff.Base)
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()
	for state, want := range map[State]string{
		StateConnecting:   "connecting",
		StateConnected:    "connected",
		StateReconnecting: "reconnecting",
		StateFailed:       "failed",
		State(9):          "State(9)",
	} {
		if got := state.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}

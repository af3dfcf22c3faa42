// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"slices"
	"sort"
	"sync"
	"time"
)

// FakeClock is a Clock whose time only moves when Advance is called.
// It is safe for concurrent use.
//
// AfterFunc callbacks run synchronously inside Advance, in deadline
// order. A callback must not call Advance.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	pending []*scheduled
	changed *sync.Cond
}

// scheduled is one registered After, AfterFunc, or ticker.
type scheduled struct {
	at time.Time

	// Exactly one of channel and callback is set.
	channel  chan time.Time
	callback func()

	// period is non-zero for tickers, which are re-armed after firing.
	period time.Duration

	cancelled bool
	fired     bool
}

// Fake returns a FakeClock reading start.
func Fake(start time.Time) *FakeClock {
	fake := &FakeClock{now: start}
	fake.changed = sync.NewCond(&fake.mu)
	return fake
}

// Now returns the fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After returns a channel that receives once the clock passes now+d.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	channel := make(chan time.Time, 1)
	if d <= 0 {
		channel <- c.now
		return channel
	}
	c.addLocked(&scheduled{at: c.now.Add(d), channel: channel})
	return channel
}

// AfterFunc registers f to run when the clock passes now+d. A
// non-positive d runs f before AfterFunc returns.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) *Timer {
	entry := &scheduled{callback: f}
	if d <= 0 {
		entry.fired = true
		f()
	} else {
		c.mu.Lock()
		entry.at = c.now.Add(d)
		c.addLocked(entry)
		c.mu.Unlock()
	}

	return &Timer{
		stop: func() bool {
			c.mu.Lock()
			defer c.mu.Unlock()
			if entry.cancelled || entry.fired {
				return false
			}
			entry.cancelled = true
			return true
		},
		// A non-positive d fires on the next Advance.
		reset: func(d time.Duration) bool {
			c.mu.Lock()
			defer c.mu.Unlock()
			wasPending := !entry.cancelled && !entry.fired
			entry.at = c.now.Add(d)
			entry.cancelled = false
			entry.fired = false
			c.rearmLocked(entry)
			return wasPending
		},
	}
}

// NewTicker returns a Ticker firing every d of fake time.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: NewTicker called with non-positive period")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	channel := make(chan time.Time, 1)
	entry := &scheduled{at: c.now.Add(d), channel: channel, period: d}
	c.addLocked(entry)

	return &Ticker{
		C: channel,
		stop: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			entry.cancelled = true
		},
		reset: func(d time.Duration) {
			if d <= 0 {
				panic("clock: Ticker.Reset called with non-positive period")
			}
			c.mu.Lock()
			defer c.mu.Unlock()
			entry.period = d
			entry.at = c.now.Add(d)
			entry.cancelled = false
			c.rearmLocked(entry)
		},
	}
}

// Advance moves the clock forward by d and fires everything due at or
// before the new time. A ticker spanning several periods fires once per
// period; sends that find the channel full are dropped.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	target := c.now
	c.mu.Unlock()

	for {
		due := c.takeDue(target)
		if len(due) == 0 {
			return
		}
		for _, entry := range due {
			if entry.callback != nil {
				entry.callback()
				continue
			}
			select {
			case entry.channel <- target:
			default:
			}
		}
	}
}

// takeDue removes the entries due at target, re-arms tickers, and
// returns the due entries sorted by deadline.
func (c *FakeClock) takeDue(target time.Time) []*scheduled {
	c.mu.Lock()
	defer c.mu.Unlock()

	var due, keep []*scheduled
	for _, entry := range c.pending {
		switch {
		case entry.cancelled:
		case entry.at.After(target):
			keep = append(keep, entry)
		default:
			due = append(due, entry)
		}
	}

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })

	for _, entry := range due {
		if entry.period > 0 {
			entry.at = entry.at.Add(entry.period)
			keep = append(keep, entry)
		} else {
			entry.fired = true
		}
	}
	c.pending = keep
	return due
}

// WaitForTimers blocks until at least n entries are pending. Tests call
// it before Advance so that a goroutine has registered its timer first.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.pendingLocked() < n {
		c.changed.Wait()
	}
}

// PendingCount returns the number of live (not cancelled, not fired)
// entries.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingLocked()
}

func (c *FakeClock) addLocked(entry *scheduled) {
	c.pending = append(c.pending, entry)
	c.changed.Broadcast()
}

// rearmLocked puts entry back in pending unless it is still there. A
// stopped entry stays in pending until the next Advance sweeps it.
func (c *FakeClock) rearmLocked(entry *scheduled) {
	if slices.Contains(c.pending, entry) {
		c.changed.Broadcast()
		return
	}
	c.addLocked(entry)
}

func (c *FakeClock) pendingLocked() int {
	count := 0
	for _, entry := range c.pending {
		if !entry.cancelled {
			count++
		}
	}
	return count
}

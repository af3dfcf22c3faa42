// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ConnectionInfo describes one live connection.
type ConnectionInfo struct {
	ID         string    `json:"id"`
	Session    string    `json:"session"`
	RemoteAddr string    `json:"remote_addr"`
	PID        int       `json:"pid"`
	StartedAt  time.Time `json:"started_at"`
}

// Registry tracks live connections. Server inserts a connection when
// its Bridge starts and removes it when the Bridge returns.
type Registry struct {
	mu      sync.Mutex
	entries map[string]registryEntry
	// changed is closed and replaced on every Remove, waking Wait.
	changed chan struct{}
}

type registryEntry struct {
	info  ConnectionInfo
	close func()
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]registryEntry),
		changed: make(chan struct{}),
	}
}

// Add inserts a connection. close is called by CloseAll and must not
// block until the connection is gone.
func (r *Registry) Add(info ConnectionInfo, close func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[info.ID]; exists {
		return fmt.Errorf("connection %s already registered", info.ID)
	}
	r.entries[info.ID] = registryEntry{info: info, close: close}
	return nil
}

// Remove deletes a connection and reports whether it was present.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[id]; !exists {
		return false
	}
	delete(r.entries, id)
	close(r.changed)
	r.changed = make(chan struct{})
	return true
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Snapshot returns the live connections, oldest first.
func (r *Registry) Snapshot() []ConnectionInfo {
	r.mu.Lock()
	snapshot := make([]ConnectionInfo, 0, len(r.entries))
	for _, entry := range r.entries {
		snapshot = append(snapshot, entry.info)
	}
	r.mu.Unlock()

	sort.Slice(snapshot, func(i, j int) bool {
		if !snapshot[i].StartedAt.Equal(snapshot[j].StartedAt) {
			return snapshot[i].StartedAt.Before(snapshot[j].StartedAt)
		}
		return snapshot[i].ID < snapshot[j].ID
	})
	return snapshot
}

// CloseAll asks every live connection to close and returns how many
// were asked. Connections leave the registry as their Bridges finish.
func (r *Registry) CloseAll() int {
	r.mu.Lock()
	closers := make([]func(), 0, len(r.entries))
	for _, entry := range r.entries {
		closers = append(closers, entry.close)
	}
	r.mu.Unlock()

	for _, close := range closers {
		close()
	}
	return len(closers)
}

// Wait blocks until the registry is empty or ctx is done.
func (r *Registry) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		if len(r.entries) == 0 {
			r.mu.Unlock()
			return nil
		}
		changed := r.changed
		r.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return fmt.Errorf("waiting for %d connections to close: %w", r.Len(), ctx.Err())
		}
	}
}

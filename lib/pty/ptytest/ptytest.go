// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package ptytest provides an in-memory pty.Driver and pty.Process for
// tests of code that bridges terminals, such as the relay.
//
// A test creates a [Driver], hands it to the code under test, receives
// each spawned [Process] from [Driver.Processes], and then plays the
// terminal's part: [Process.Emit] produces output, [Process.Exit] ends
// the process, and [Process.Written] / [Process.Resized] observe what
// the code under test sent.
package ptytest

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/termbridge/termbridge/lib/pty"
)

// Spawn records one Driver.Spawn call.
type Spawn struct {
	Session string
	Size    pty.Size
}

// Driver is a pty.Driver that creates Processes.
type Driver struct {
	mu        sync.Mutex
	err       error
	spawns    []Spawn
	nextPID   int
	processes chan *Process
}

// NewDriver returns a Driver whose spawns all succeed.
func NewDriver() *Driver {
	return &Driver{nextPID: 1000, processes: make(chan *Process, 16)}
}

// FailWith makes every later Spawn return err. The call is still
// recorded.
func (d *Driver) FailWith(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

// Spawn implements pty.Driver.
func (d *Driver) Spawn(sessionName string, size pty.Size) (pty.Process, error) {
	d.mu.Lock()
	d.spawns = append(d.spawns, Spawn{Session: sessionName, Size: size})
	if d.err != nil {
		err := d.err
		d.mu.Unlock()
		return nil, &pty.SpawnError{Session: sessionName, Op: "start", Err: err}
	}
	d.nextPID++
	process := NewProcess(d.nextPID)
	d.mu.Unlock()

	d.processes <- process
	return process, nil
}

// Spawns returns every Spawn call so far.
func (d *Driver) Spawns() []Spawn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Spawn(nil), d.spawns...)
}

// Processes delivers each successfully spawned Process.
func (d *Driver) Processes() <-chan *Process {
	return d.processes
}

// Process is an in-memory pty.Process.
type Process struct {
	pid int

	written chan []byte
	resized chan pty.Size

	// emitting is held for reading by Emit while it may send on output,
	// and for writing by Exit while it closes output.
	emitting sync.RWMutex
	output   chan []byte
	closing  chan struct{}
	exited   chan struct{}
	exitOnce sync.Once
	exitCode atomic.Int64

	destroyCount atomic.Int32
}

// NewProcess returns a running Process.
func NewProcess(pid int) *Process {
	process := &Process{
		pid:     pid,
		written: make(chan []byte, 256),
		resized: make(chan pty.Size, 64),
		output:  make(chan []byte, 64),
		closing: make(chan struct{}),
		exited:  make(chan struct{}),
	}
	process.exitCode.Store(-1)
	return process
}

// Emit produces output. It blocks while the output queue is full and
// returns without effect once the process has exited.
func (p *Process) Emit(data []byte) {
	p.emitting.RLock()
	defer p.emitting.RUnlock()
	select {
	case <-p.closing:
		return
	default:
	}
	select {
	case p.output <- append([]byte(nil), data...):
	case <-p.closing:
	}
}

// Exit ends the process with code. Only the first call has effect.
func (p *Process) Exit(code int) {
	p.exitOnce.Do(func() {
		close(p.closing)
		p.emitting.Lock()
		close(p.output)
		p.emitting.Unlock()
		p.exitCode.Store(int64(code))
		close(p.exited)
	})
}

// Written delivers each Write call's bytes.
func (p *Process) Written() <-chan []byte { return p.written }

// Resized delivers each Resize call's size.
func (p *Process) Resized() <-chan pty.Size { return p.resized }

// DestroyCount reports how many times Destroy was called.
func (p *Process) DestroyCount() int { return int(p.destroyCount.Load()) }

// Write implements pty.Process. Writes after exit fail with
// os.ErrClosed.
func (p *Process) Write(data []byte) (int, error) {
	select {
	case <-p.closing:
		return 0, os.ErrClosed
	default:
	}
	p.written <- append([]byte(nil), data...)
	return len(data), nil
}

// Resize implements pty.Process.
func (p *Process) Resize(size pty.Size) error {
	select {
	case <-p.closing:
		return os.ErrClosed
	default:
	}
	p.resized <- size
	return nil
}

func (p *Process) Output() <-chan []byte  { return p.output }
func (p *Process) Exited() <-chan struct{} { return p.exited }
func (p *Process) ExitCode() int           { return int(p.exitCode.Load()) }
func (p *Process) PID() int                { return p.pid }

// Destroy implements pty.Process. A running process exits with 129, as
// a tmux client does on SIGHUP.
func (p *Process) Destroy() error {
	p.destroyCount.Add(1)
	p.Exit(129)
	return nil
}

var (
	_ pty.Driver  = (*Driver)(nil)
	_ pty.Process = (*Process)(nil)
)

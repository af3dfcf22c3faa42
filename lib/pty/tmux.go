// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

package pty

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/termbridge/termbridge/lib/clock"
	"github.com/termbridge/termbridge/lib/tmux"
)

// readBufferSize bounds one output chunk.
const readBufferSize = 32 * 1024

// outputQueue is how many chunks may wait for the consumer before the
// reader stops reading from the master.
const outputQueue = 64

// destroyGrace is how long Destroy waits after SIGHUP before SIGKILL.
const destroyGrace = 2 * time.Second

// TmuxDriverConfig configures a TmuxDriver.
type TmuxDriverConfig struct {
	// Server is the tmux server sessions are attached on. Its Env
	// (or the relay's environment when nil) is the base environment of
	// every attach client.
	Server *tmux.Server

	// Term is the TERM value for the attach client.
	// Default: xterm-256color
	Term string

	// WorkingDir is the attach client's working directory.
	// Default: the user's home directory.
	WorkingDir string

	// Clock schedules the SIGKILL fallback in Destroy.
	// Default: clock.Real()
	Clock clock.Clock

	Logger *slog.Logger
}

// TmuxDriver spawns "tmux attach-session" clients on fresh ptys.
type TmuxDriver struct {
	server     *tmux.Server
	term       string
	workingDir string
	clock      clock.Clock
	logger     *slog.Logger
}

// NewTmuxDriver returns a TmuxDriver for config.
func NewTmuxDriver(config TmuxDriverConfig) *TmuxDriver {
	driver := &TmuxDriver{
		server:     config.Server,
		term:       config.Term,
		workingDir: config.WorkingDir,
		clock:      config.Clock,
		logger:     config.Logger,
	}
	if driver.term == "" {
		driver.term = "xterm-256color"
	}
	if driver.workingDir == "" {
		driver.workingDir, _ = os.UserHomeDir()
	}
	if driver.clock == nil {
		driver.clock = clock.Real()
	}
	if driver.logger == nil {
		driver.logger = slog.New(slog.DiscardHandler)
	}
	return driver
}

// environ returns the attach client's environment: the server's (or
// the relay's) environment with TERM replaced and tmux's nesting
// variables removed.
func (d *TmuxDriver) environ() []string {
	base := d.server.Env()
	if base == nil {
		base = os.Environ()
	}
	environ := tmux.StripEnv(base, "TERM", "TMUX", "TMUX_PANE")
	return append(environ, "TERM="+d.term)
}

// Spawn attaches a new tmux client to sessionName.
func (d *TmuxDriver) Spawn(sessionName string, size Size) (Process, error) {
	fail := func(op string, err error) (Process, error) {
		return nil, &SpawnError{Session: sessionName, Op: op, Err: err}
	}

	if err := tmux.CheckSessionName(sessionName); err != nil {
		return fail("validate", err)
	}
	environ := d.environ()
	binary, err := tmux.ResolveBinary(d.server.Binary(), environ)
	if err != nil {
		return fail("lookup", err)
	}
	if !d.server.HasSession(sessionName) {
		return fail("lookup", ErrSessionNotFound)
	}

	master, slavePath, err := openPTY()
	if err != nil {
		return fail("allocate", err)
	}
	if err := setWindowSize(master, size); err != nil {
		master.Close()
		return fail("allocate", fmt.Errorf("set initial window size: %w", err))
	}
	slave, err := os.OpenFile(slavePath, os.O_RDWR|syscall.O_NOCTTY, 0)
	if err != nil {
		master.Close()
		return fail("allocate", fmt.Errorf("open pty slave %s: %w", slavePath, err))
	}

	cmd, err := d.server.AttachCommand(sessionName)
	if err != nil {
		slave.Close()
		master.Close()
		return fail("validate", err)
	}
	cmd.Path = binary
	cmd.Err = nil
	cmd.Env = environ
	cmd.Dir = d.workingDir
	cmd.Stdin = slave
	cmd.Stdout = slave
	cmd.Stderr = slave
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
		Ctty:    0, // fd 0 in the child is the slave
	}

	if err := cmd.Start(); err != nil {
		slave.Close()
		master.Close()
		return fail("start", err)
	}
	// The child holds its own copies on fds 0-2.
	slave.Close()

	process := newTmuxProcess(cmd, master, d.clock)
	d.logger.Info("attached tmux client",
		"session", sessionName,
		"pid", process.PID(),
		"size", size.String(),
	)
	return process, nil
}

// tmuxProcess is a Process backed by a tmux client on a pty master.
type tmuxProcess struct {
	cmd    *exec.Cmd
	master *os.File
	clock  clock.Clock

	output    chan []byte
	exited    chan struct{}
	destroyed chan struct{}
	exitCode  atomic.Int64

	destroyOnce sync.Once
	destroyErr  error
}

func newTmuxProcess(cmd *exec.Cmd, master *os.File, clk clock.Clock) *tmuxProcess {
	process := &tmuxProcess{
		cmd:       cmd,
		master:    master,
		clock:     clk,
		output:    make(chan []byte, outputQueue),
		exited:    make(chan struct{}),
		destroyed: make(chan struct{}),
	}
	process.exitCode.Store(-1)

	readerDone := make(chan struct{})
	go process.readOutput(readerDone)
	go process.wait(readerDone)
	return process
}

// readOutput copies master output into the output channel until the
// slave side is gone (EIO) or the master is closed.
func (p *tmuxProcess) readOutput(readerDone chan<- struct{}) {
	defer close(readerDone)
	defer close(p.output)

	buffer := make([]byte, readBufferSize)
	for {
		n, err := p.master.Read(buffer)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buffer[:n])
			select {
			case p.output <- chunk:
			case <-p.destroyed:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// wait reaps the process, then waits for the reader so that Exited
// never overtakes the last output chunk.
func (p *tmuxProcess) wait(readerDone <-chan struct{}) {
	_ = p.cmd.Wait()
	p.exitCode.Store(int64(exitCode(p.cmd.ProcessState)))
	<-readerDone
	close(p.exited)
}

// exitCode maps a process state to a shell-style status: the exit
// status, or 128+signal for signal deaths.
func exitCode(state *os.ProcessState) int {
	if state == nil {
		return -1
	}
	if status, ok := state.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return 128 + int(status.Signal())
	}
	return state.ExitCode()
}

func (p *tmuxProcess) Write(data []byte) (int, error) {
	return p.master.Write(data)
}

func (p *tmuxProcess) Resize(size Size) error {
	if err := setWindowSize(p.master, size); err != nil {
		return fmt.Errorf("resize pty to %s: %w", size, err)
	}
	return nil
}

func (p *tmuxProcess) Output() <-chan []byte  { return p.output }
func (p *tmuxProcess) Exited() <-chan struct{} { return p.exited }
func (p *tmuxProcess) ExitCode() int           { return int(p.exitCode.Load()) }
func (p *tmuxProcess) PID() int                { return p.cmd.Process.Pid }

// Size reports the current window size of the pty.
func (p *tmuxProcess) Size() (Size, error) {
	return getWindowSize(p.master)
}

func (p *tmuxProcess) Destroy() error {
	p.destroyOnce.Do(func() {
		close(p.destroyed)

		if err := p.cmd.Process.Signal(syscall.SIGHUP); err != nil && !errors.Is(err, os.ErrProcessDone) {
			p.destroyErr = fmt.Errorf("hang up tmux client %d: %w", p.PID(), err)
		}
		kill := p.clock.AfterFunc(destroyGrace, func() {
			_ = p.cmd.Process.Kill()
		})

		if err := p.master.Close(); err != nil && p.destroyErr == nil {
			p.destroyErr = fmt.Errorf("close pty master: %w", err)
		}

		<-p.exited
		kill.Stop()
	})
	return p.destroyErr
}

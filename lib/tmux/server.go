// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

package tmux

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// ServerConfig describes how to reach a tmux server.
type ServerConfig struct {
	// Binary is the tmux executable. Empty means "tmux". A bare name
	// is resolved against the PATH in Env, or the process PATH when Env
	// is nil.
	Binary string

	// SocketPath is passed as -S. Empty targets the default server for
	// the current user.
	SocketPath string

	// ConfigFile is passed as -f on new-session, which is the command
	// that may start the server. "/dev/null" skips ~/.tmux.conf. Empty
	// uses tmux's own resolution.
	ConfigFile string

	// Env is the environment for every tmux process. Nil inherits the
	// relay's environment.
	Env []string
}

// Server represents one tmux server. Every command built through it
// carries the same binary, socket, and environment.
type Server struct {
	binary     string
	socketPath string
	configFile string
	env        []string
}

// NewServer returns a Server for config.
func NewServer(config ServerConfig) *Server {
	binary := config.Binary
	if binary == "" {
		binary = "tmux"
	}
	return &Server{
		binary:     binary,
		socketPath: config.SocketPath,
		configFile: config.ConfigFile,
		env:        config.Env,
	}
}

// SocketPath returns the -S socket path, or "" for the default server.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Binary returns the tmux executable commands are built with.
func (s *Server) Binary() string {
	return s.binary
}

// Env returns the environment given to tmux processes (nil means
// inherited).
func (s *Server) Env() []string {
	return s.env
}

// exactTarget prefixes name with "=" so tmux matches the session name
// exactly instead of treating it as a prefix or pattern.
func exactTarget(sessionName string) string {
	return "=" + sessionName
}

func (s *Server) args(args []string) []string {
	if s.socketPath == "" {
		return args
	}
	return append([]string{"-S", s.socketPath}, args...)
}

// Command returns an *exec.Cmd for a tmux command line without running
// it. The caller controls Stdin, Stdout, Stderr, Dir, and SysProcAttr
// before starting the process; lib/pty uses this to put the attach
// client on a pty slave.
//
// Global flags such as -u may precede the subcommand:
//
//	cmd := server.Command("-u", "attach-session", "-t", "=main")
func (s *Server) Command(args ...string) *exec.Cmd {
	cmd := exec.Command(s.binary, s.args(args)...)
	s.prepare(cmd)
	return cmd
}

// CommandContext is like Command but kills the process when ctx is
// done.
func (s *Server) CommandContext(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, s.binary, s.args(args)...)
	s.prepare(cmd)
	return cmd
}

// prepare sets the environment and, when Env is set, looks a bare
// binary name up in Env's PATH. os/exec alone would search the relay's
// own PATH.
func (s *Server) prepare(cmd *exec.Cmd) {
	cmd.Env = s.env
	if s.env == nil || strings.ContainsRune(s.binary, '/') {
		return
	}
	if path, err := ResolveBinary(s.binary, s.env); err == nil {
		cmd.Path = path
		cmd.Err = nil
	}
}

// Run executes a tmux command and returns its combined output.
//
//	output, err := server.Run("list-clients", "-t", "=main")
func (s *Server) Run(args ...string) (string, error) {
	output, err := s.Command(args...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("tmux %s: %w (%s)",
			strings.Join(args, " "), err, strings.TrimSpace(string(output)))
	}
	return string(output), nil
}

// AttachCommand returns the command that attaches a client to the
// named session with UTF-8 forced on. The name is validated first.
func (s *Server) AttachCommand(sessionName string) (*exec.Cmd, error) {
	if err := CheckSessionName(sessionName); err != nil {
		return nil, err
	}
	return s.Command("-u", "attach-session", "-t", exactTarget(sessionName)), nil
}

// HasSession reports whether the named session exists. It returns
// false for invalid names and when the server is not running.
func (s *Server) HasSession(sessionName string) bool {
	if !ValidSessionName(sessionName) {
		return false
	}
	return s.Command("has-session", "-t", exactTarget(sessionName)).Run() == nil
}

// NewSession creates a detached session. If command is non-empty, the
// session runs it instead of the default shell.
func (s *Server) NewSession(sessionName string, command ...string) error {
	if err := CheckSessionName(sessionName); err != nil {
		return err
	}
	var args []string
	if s.configFile != "" {
		args = append(args, "-f", s.configFile)
	}
	args = append(args, "new-session", "-d", "-s", sessionName)
	args = append(args, command...)
	if output, err := s.Command(args...).CombinedOutput(); err != nil {
		return fmt.Errorf("tmux new-session %q: %w (%s)",
			sessionName, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// KillSession terminates a session. A session or server that is already
// gone is not an error.
func (s *Server) KillSession(sessionName string) error {
	if err := CheckSessionName(sessionName); err != nil {
		return err
	}
	output, err := s.Command("kill-session", "-t", exactTarget(sessionName)).CombinedOutput()
	if err != nil {
		outputString := strings.TrimSpace(string(output))
		if isGone(outputString) {
			return nil
		}
		return fmt.Errorf("tmux kill-session %q: %w (%s)", sessionName, err, outputString)
	}
	return nil
}

// KillServer terminates the server and every session on it. A stopped
// server is not an error.
func (s *Server) KillServer() error {
	output, err := s.Command("kill-server").CombinedOutput()
	if err != nil {
		outputString := strings.TrimSpace(string(output))
		// "server exited unexpectedly" shows up while the socket file
		// lingers after the server process has gone.
		if isGone(outputString) || strings.Contains(outputString, "server exited unexpectedly") {
			return nil
		}
		return fmt.Errorf("tmux kill-server: %w (%s)", err, outputString)
	}
	return nil
}

func isGone(output string) bool {
	return strings.Contains(output, "can't find session") ||
		strings.Contains(output, "no server running") ||
		strings.Contains(output, "error connecting to")
}

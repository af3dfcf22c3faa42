// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

package tmux_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"

	"github.com/termbridge/termbridge/lib/testutil"
	"github.com/termbridge/termbridge/lib/tmux"
)

func TestCommandArguments(t *testing.T) {
	t.Parallel()

	withSocket := tmux.NewServer(tmux.ServerConfig{Binary: "/usr/bin/tmux", SocketPath: "/tmp/relay.sock", Env: []string{"PATH=/bin"}})
	cmd := withSocket.Command("-u", "attach-session", "-t", "=main")
	if cmd.Path != "/usr/bin/tmux" {
		t.Errorf("Path = %q, want /usr/bin/tmux", cmd.Path)
	}
	if want := []string{"/usr/bin/tmux", "-S", "/tmp/relay.sock", "-u", "attach-session", "-t", "=main"}; !reflect.DeepEqual(cmd.Args, want) {
		t.Errorf("Args = %q, want %q", cmd.Args, want)
	}
	if !reflect.DeepEqual(cmd.Env, []string{"PATH=/bin"}) {
		t.Errorf("Env = %q", cmd.Env)
	}

	defaultServer := tmux.NewServer(tmux.ServerConfig{Binary: "/usr/bin/tmux"})
	if want := []string{"/usr/bin/tmux", "kill-server"}; !reflect.DeepEqual(defaultServer.Command("kill-server").Args, want) {
		t.Errorf("default server Args = %q, want %q", defaultServer.Command("kill-server").Args, want)
	}
	if defaultServer.Command("kill-server").Env != nil {
		t.Error("nil Env should inherit the relay environment")
	}
}

func TestAttachCommand(t *testing.T) {
	t.Parallel()

	server := tmux.NewServer(tmux.ServerConfig{Binary: "/usr/bin/tmux"})

	cmd, err := server.AttachCommand("work")
	if err != nil {
		t.Fatalf("AttachCommand: %v", err)
	}
	if want := []string{"/usr/bin/tmux", "-u", "attach-session", "-t", "=work"}; !reflect.DeepEqual(cmd.Args, want) {
		t.Errorf("Args = %q, want %q", cmd.Args, want)
	}

	if _, err := server.AttachCommand("work; rm -rf ~"); !errors.Is(err, tmux.ErrInvalidSessionName) {
		t.Fatalf("AttachCommand with injected name = %v, want ErrInvalidSessionName", err)
	}
}

func TestInvalidNamesNeverReachTmux(t *testing.T) {
	t.Parallel()

	// The binary does not exist, so anything that got as far as exec
	// would report a different error.
	server := tmux.NewServer(tmux.ServerConfig{Binary: "/nonexistent/tmux"})
	name := "x$(touch /tmp/pwned)"

	if server.HasSession(name) {
		t.Error("HasSession returned true for an invalid name")
	}
	if err := server.NewSession(name); !errors.Is(err, tmux.ErrInvalidSessionName) {
		t.Errorf("NewSession = %v, want ErrInvalidSessionName", err)
	}
	if err := server.KillSession(name); !errors.Is(err, tmux.ErrInvalidSessionName) {
		t.Errorf("KillSession = %v, want ErrInvalidSessionName", err)
	}
}

func TestNewSession(t *testing.T) {
	server := tmux.NewTestServer(t)
	name := testutil.UniqueID("session")

	if err := server.NewSession(name, "sleep", "infinity"); err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if !server.HasSession(name) {
		t.Fatal("HasSession returned false for a session that was just created")
	}
}

func TestHasSessionMatchesExactly(t *testing.T) {
	server := tmux.NewTestServer(t)

	if err := server.NewSession("project-long", "sleep", "infinity"); err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if server.HasSession("project") {
		t.Fatal("HasSession matched a session by prefix")
	}
	if !server.HasSession("project-long") {
		t.Fatal("HasSession missed the exact name")
	}
}

func TestSessionEndsWithCommand(t *testing.T) {
	server := tmux.NewTestServer(t)

	if err := server.NewSession("ephemeral", "true"); err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	for server.HasSession("ephemeral") {
		if t.Context().Err() != nil {
			break
		}
		runtime.Gosched()
	}
	if server.HasSession("ephemeral") {
		t.Fatal("session still exists after command exited")
	}
}

func TestKillSession(t *testing.T) {
	server := tmux.NewTestServer(t)

	if err := server.NewSession("doomed", "sleep", "infinity"); err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := server.KillSession("doomed"); err != nil {
		t.Fatalf("KillSession: %v", err)
	}
	if server.HasSession("doomed") {
		t.Fatal("session still exists after KillSession")
	}
	if err := server.KillSession("doomed"); err != nil {
		t.Fatalf("KillSession on missing session: %v", err)
	}
}

func TestKillServer(t *testing.T) {
	server := tmux.NewTestServer(t)

	if err := server.NewSession("session-a", "sleep", "infinity"); err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := server.KillServer(); err != nil {
		t.Fatalf("KillServer: %v", err)
	}
	if server.HasSession("session-a") || server.HasSession("_guard") {
		t.Fatal("sessions still exist after KillServer")
	}
	if err := server.KillServer(); err != nil {
		t.Fatalf("KillServer on stopped server: %v", err)
	}
}

func TestCommandResolvesBinaryInEnvPath(t *testing.T) {
	t.Parallel()

	// The directory is only on the server's PATH, not the test
	// process's.
	directory := t.TempDir()
	script := filepath.Join(directory, "tmux-shim")
	if err := os.WriteFile(script, []byte("#!/bin/sh\necho \"shim $*\"\n"), 0o755); err != nil {
		t.Fatalf("writing shim: %v", err)
	}

	server := tmux.NewServer(tmux.ServerConfig{Binary: "tmux-shim", Env: []string{"PATH=" + directory}})
	if cmd := server.Command("list-sessions"); cmd.Path != script {
		t.Errorf("Path = %q, want %q", cmd.Path, script)
	}
	output, err := server.Run("list-sessions")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if output != "shim list-sessions\n" {
		t.Errorf("output = %q, want %q", output, "shim list-sessions\n")
	}
}

func TestRunReportsOutputOnError(t *testing.T) {
	server := tmux.NewTestServer(t)

	// has-session exits 1 for a missing target on every tmux version;
	// display-message does not on 3.3a.
	_, err := server.Run("has-session", "-t", "=absent")
	if err == nil {
		t.Fatal("expected error for missing target")
	}
	if !strings.Contains(err.Error(), "has-session -t =absent") {
		t.Fatalf("error does not name the command: %v", err)
	}
}

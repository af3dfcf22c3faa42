// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

package tmux

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/termbridge/termbridge/lib/testutil"
)

// NewTestServer creates an isolated tmux server for a test, or skips
// the test when tmux is not installed. The server:
//   - listens on a short /tmp socket (108-byte sun_path limit)
//   - passes -f /dev/null so ~/.tmux.conf is never loaded
//   - keeps a _guard session running "sleep infinity" so the server
//     outlives the sessions the test creates and kills
//   - is killed by t.Cleanup
//
// Tests must only run tmux through the returned Server. Without -S a
// command targets the developer's own server.
func NewTestServer(t *testing.T) *Server {
	t.Helper()

	binary, err := exec.LookPath("tmux")
	if err != nil {
		t.Skip("tmux not installed")
	}

	socketPath := filepath.Join(testutil.SocketDir(t), "tmux.sock")
	server := NewServer(ServerConfig{
		Binary:     binary,
		SocketPath: socketPath,
		ConfigFile: "/dev/null",
		Env:        StripEnv(os.Environ(), "TMUX", "TMUX_PANE"),
	})

	if err := server.NewSession("_guard", "sleep", "infinity"); err != nil {
		t.Fatalf("start tmux test server: %v", err)
	}

	t.Cleanup(func() {
		server.KillServer()
	})

	return server
}

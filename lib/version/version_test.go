// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"
)

func stamp(t *testing.T, commit, dirty, built string) {
	t.Helper()
	savedCommit, savedDirty, savedTime := GitCommit, GitDirty, BuildTime
	t.Cleanup(func() { GitCommit, GitDirty, BuildTime = savedCommit, savedDirty, savedTime })
	GitCommit, GitDirty, BuildTime = commit, dirty, built
}

func TestInfo(t *testing.T) {
	stamp(t, "abc1234", "true", "2026-03-01T00:00:00Z")

	want := Version + " (abc1234-dirty, 2026-03-01T00:00:00Z)"
	if got := Info(); got != want {
		t.Fatalf("Info() = %q, want %q", got, want)
	}
	if got := Full(); !strings.HasPrefix(got, want+"\n  Go: ") {
		t.Fatalf("Full() = %q, want prefix %q", got, want)
	}
}

func TestUserAgent(t *testing.T) {
	stamp(t, "abc1234", "false", "unknown")
	if got, want := UserAgent("termbridge-attach"), "termbridge-attach/"+Version+" (abc1234)"; got != want {
		t.Fatalf("UserAgent() = %q, want %q", got, want)
	}
}

func TestCommitWithoutLdflags(t *testing.T) {
	stamp(t, "", "", "unknown")
	// Test binaries carry no VCS stamp.
	if got := commit(); got == "" {
		t.Fatal("commit() is empty")
	}
}

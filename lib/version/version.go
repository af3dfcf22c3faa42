// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set with -ldflags -X, for example:
//
//	go build -ldflags "-X github.com/termbridge/termbridge/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Without ldflags, GitCommit and GitDirty fall back to the VCS stamp
// the go command embeds in module builds.
var (
	GitCommit = ""
	GitDirty  = ""
	BuildTime = "unknown"
	Version   = "0.1.0-dev"
)

// commit returns the short commit, "-dirty" suffixed when the tree had
// local changes, or "unknown".
func commit() string {
	revision, dirty := GitCommit, GitDirty == "true"
	if revision == "" {
		revision, dirty = vcsStamp()
	}
	if revision == "" {
		return "unknown"
	}
	if dirty {
		revision += "-dirty"
	}
	return revision
}

func vcsStamp() (revision string, dirty bool) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", false
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
			if len(revision) > 7 {
				revision = revision[:7]
			}
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return revision, dirty
}

// Info returns "VERSION (COMMIT, BUILD_TIME)" for --version and the
// startup log line.
func Info() string {
	return fmt.Sprintf("%s (%s, %s)", Version, commit(), BuildTime)
}

// Full is Info plus the Go toolchain and platform.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// UserAgent returns "program/VERSION (COMMIT)" for handshake headers.
func UserAgent(program string) string {
	return fmt.Sprintf("%s/%s (%s)", program, Version, commit())
}

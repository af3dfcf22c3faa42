// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

package tmux

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestAugmentPath(t *testing.T) {
	t.Parallel()

	extra := []string{"/opt/homebrew/bin", "/usr/local/bin"}
	tests := []struct {
		name    string
		environ []string
		want    []string
	}{
		{
			name:    "prepends missing directories",
			environ: []string{"HOME=/home/u", "PATH=/usr/bin:/bin"},
			want:    []string{"HOME=/home/u", "PATH=/opt/homebrew/bin:/usr/local/bin:/usr/bin:/bin"},
		},
		{
			name:    "keeps directories already present",
			environ: []string{"PATH=/usr/local/bin:/usr/bin"},
			want:    []string{"PATH=/opt/homebrew/bin:/usr/local/bin:/usr/bin"},
		},
		{
			name:    "nothing missing",
			environ: []string{"PATH=/usr/bin:/opt/homebrew/bin:/usr/local/bin"},
			want:    []string{"PATH=/usr/bin:/opt/homebrew/bin:/usr/local/bin"},
		},
		{
			name:    "no PATH at all",
			environ: []string{"HOME=/home/u"},
			want:    []string{"HOME=/home/u", "PATH=/opt/homebrew/bin:/usr/local/bin"},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := AugmentPath(test.environ, extra)
			if !reflect.DeepEqual(got, test.want) {
				t.Fatalf("AugmentPath = %q, want %q", got, test.want)
			}
		})
	}

	original := []string{"PATH=/bin"}
	AugmentPath(original, extra)
	if original[0] != "PATH=/bin" {
		t.Fatal("AugmentPath modified its input")
	}
}

func TestStripEnv(t *testing.T) {
	t.Parallel()

	got := StripEnv([]string{"TMUX=/tmp/tmux-1000/default,1,0", "HOME=/home/u", "TMUX_PANE=%1", "TMUXX=keep"}, "TMUX", "TMUX_PANE")
	want := []string{"HOME=/home/u", "TMUXX=keep"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("StripEnv = %q, want %q", got, want)
	}
}

func TestLookupEnv(t *testing.T) {
	t.Parallel()

	environ := []string{"TERM=dumb", "HOME=/home/u", "TERM=xterm-256color"}
	if value, ok := LookupEnv(environ, "TERM"); !ok || value != "xterm-256color" {
		t.Fatalf("LookupEnv(TERM) = %q, %v; want the last entry", value, ok)
	}
	if _, ok := LookupEnv(environ, "PATH"); ok {
		t.Fatal("LookupEnv(PATH) found a missing key")
	}
}

func TestResolveBinary(t *testing.T) {
	t.Parallel()

	directory := t.TempDir()
	executable := filepath.Join(directory, "tmux")
	if err := os.WriteFile(executable, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	plain := filepath.Join(directory, "notes")
	if err := os.WriteFile(plain, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	environ := []string{"PATH=/nonexistent:" + directory}

	got, err := ResolveBinary("tmux", environ)
	if err != nil {
		t.Fatalf("ResolveBinary(tmux): %v", err)
	}
	if got != executable {
		t.Fatalf("ResolveBinary(tmux) = %q, want %q", got, executable)
	}

	if got, err := ResolveBinary(executable, nil); err != nil || got != executable {
		t.Fatalf("ResolveBinary(absolute) = %q, %v", got, err)
	}

	for _, name := range []string{"notes", "missing", plain, directory} {
		if _, err := ResolveBinary(name, environ); !errors.Is(err, ErrBinaryNotFound) {
			t.Errorf("ResolveBinary(%q) = %v, want ErrBinaryNotFound", name, err)
		}
	}
}

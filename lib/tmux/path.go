// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

package tmux

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ErrBinaryNotFound is returned by [ResolveBinary] when no executable
// matches.
var ErrBinaryNotFound = errors.New("executable not found")

// AugmentPath returns a copy of environ whose PATH starts with each
// directory in extra that PATH does not already contain. Order within
// extra is preserved. A missing PATH becomes the extra directories
// alone.
func AugmentPath(environ []string, extra []string) []string {
	result := make([]string, 0, len(environ)+1)
	current := ""
	found := false
	for _, entry := range environ {
		if value, ok := strings.CutPrefix(entry, "PATH="); ok {
			current = value
			found = true
			continue
		}
		result = append(result, entry)
	}

	var existing []string
	if current != "" {
		existing = filepath.SplitList(current)
	}
	var missing []string
	for _, directory := range extra {
		if directory == "" || slices.Contains(existing, directory) || slices.Contains(missing, directory) {
			continue
		}
		missing = append(missing, directory)
	}

	path := strings.Join(append(missing, existing...), string(os.PathListSeparator))
	if path == "" && !found {
		return result
	}
	return append(result, "PATH="+path)
}

// LookupEnv returns the value of key in environ.
func LookupEnv(environ []string, key string) (string, bool) {
	for i := len(environ) - 1; i >= 0; i-- {
		if value, ok := strings.CutPrefix(environ[i], key+"="); ok {
			return value, true
		}
	}
	return "", false
}

// StripEnv returns a copy of environ without the given keys. The relay
// removes TMUX so that a daemon started from inside tmux can still
// attach clients without tmux refusing to nest.
func StripEnv(environ []string, keys ...string) []string {
	result := make([]string, 0, len(environ))
	for _, entry := range environ {
		name, _, _ := strings.Cut(entry, "=")
		if slices.Contains(keys, name) {
			continue
		}
		result = append(result, entry)
	}
	return result
}

// ResolveBinary finds the executable for name using the PATH in
// environ rather than the process's own PATH. A name containing a slash
// is checked as given.
func ResolveBinary(name string, environ []string) (string, error) {
	if strings.ContainsRune(name, '/') {
		if err := checkExecutable(name); err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrBinaryNotFound, name, err)
		}
		return name, nil
	}

	path, _ := LookupEnv(environ, "PATH")
	for _, directory := range filepath.SplitList(path) {
		if directory == "" {
			continue
		}
		candidate := filepath.Join(directory, name)
		if checkExecutable(candidate) == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s not in PATH %q", ErrBinaryNotFound, name, path)
}

func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return errors.New("is a directory")
	}
	if info.Mode().Perm()&0o111 == 0 {
		return errors.New("not executable")
	}
	return nil
}

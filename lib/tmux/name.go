// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

package tmux

import (
	"errors"
	"fmt"
)

// ErrInvalidSessionName is wrapped by every error [CheckSessionName]
// returns.
var ErrInvalidSessionName = errors.New("invalid session name")

// ValidSessionName reports whether name is non-empty and consists only
// of ASCII letters, digits, underscore, and hyphen.
func ValidSessionName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_' || c == '-':
		default:
			return false
		}
	}
	return true
}

// CheckSessionName returns nil for a valid name and an error wrapping
// [ErrInvalidSessionName] otherwise.
func CheckSessionName(name string) error {
	if ValidSessionName(name) {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidSessionName, name)
}

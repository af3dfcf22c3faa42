// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

package gesture

import (
	"fmt"

	"github.com/charmbracelet/x/ansi"
)

// MouseMode is a terminal mouse-tracking mode.
type MouseMode int

const (
	MouseNone  MouseMode = iota
	MouseX10             // DEC mode 9: press only
	MouseVT200           // DEC mode 1000: press and release
	MouseDrag            // DEC mode 1002: plus motion while pressed
	MouseAny             // DEC mode 1003: all motion
)

// String returns the xterm.js name of the mode.
func (m MouseMode) String() string {
	switch m {
	case MouseNone:
		return "none"
	case MouseX10:
		return "x10"
	case MouseVT200:
		return "vt200"
	case MouseDrag:
		return "drag"
	case MouseAny:
		return "any"
	default:
		return fmt.Sprintf("MouseMode(%d)", int(m))
	}
}

// ParseMouseMode maps an xterm.js mouseTrackingMode name to a
// MouseMode.
func ParseMouseMode(name string) (MouseMode, error) {
	switch name {
	case "none":
		return MouseNone, nil
	case "x10":
		return MouseX10, nil
	case "vt200":
		return MouseVT200, nil
	case "drag":
		return MouseDrag, nil
	case "any":
		return MouseAny, nil
	}
	return MouseNone, fmt.Errorf("unknown mouse tracking mode %q", name)
}

// EnableSequence returns the DECSET that turns the mode on, or "" for
// MouseNone.
func (m MouseMode) EnableSequence() string {
	switch m {
	case MouseX10:
		return ansi.SetModeMouseX10
	case MouseVT200:
		return ansi.SetModeMouseNormal
	case MouseDrag:
		return ansi.SetModeMouseButtonEvent
	case MouseAny:
		return ansi.SetModeMouseAnyEvent
	default:
		return ""
	}
}

// DisableMouseSequence turns off every tracking mode and SGR encoding.
const DisableMouseSequence = ansi.ResetModeMouseX10 +
	ansi.ResetModeMouseNormal +
	ansi.ResetModeMouseButtonEvent +
	ansi.ResetModeMouseAnyEvent +
	ansi.ResetModeMouseExtSgr

// ScrollDirection is the direction of one wheel event.
type ScrollDirection int

const (
	// ScrollBack moves into history (wheel up, button 64).
	ScrollBack ScrollDirection = iota
	// ScrollForward moves toward the newest output (wheel down, button 65).
	ScrollForward
)

// ScrollSequence returns the SGR wheel event for direction at cell 1;1.
func ScrollSequence(direction ScrollDirection) string {
	button := ansi.MouseWheelUp
	if direction == ScrollForward {
		button = ansi.MouseWheelDown
	}
	return ansi.MouseSgr(ansi.EncodeMouseButton(button, false, false, false, false), 0, 0, false)
}

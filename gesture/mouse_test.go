// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

package gesture

import "testing"

func TestScrollSequence(t *testing.T) {
	t.Parallel()
	if got, want := ScrollSequence(ScrollBack), "\x1b[<64;1;1M"; got != want {
		t.Errorf("ScrollSequence(ScrollBack) = %q, want %q", got, want)
	}
	if got, want := ScrollSequence(ScrollForward), "\x1b[<65;1;1M"; got != want {
		t.Errorf("ScrollSequence(ScrollForward) = %q, want %q", got, want)
	}
}

func TestMouseModes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mode   MouseMode
		enable string
	}{
		{"none", MouseNone, ""},
		{"x10", MouseX10, "\x1b[?9h"},
		{"vt200", MouseVT200, "\x1b[?1000h"},
		{"drag", MouseDrag, "\x1b[?1002h"},
		{"any", MouseAny, "\x1b[?1003h"},
	}
	for _, test := range tests {
		mode, err := ParseMouseMode(test.name)
		if err != nil {
			t.Fatalf("ParseMouseMode(%q) = %v", test.name, err)
		}
		if mode != test.mode {
			t.Errorf("ParseMouseMode(%q) = %v, want %v", test.name, mode, test.mode)
		}
		if got := mode.String(); got != test.name {
			t.Errorf("String() = %q, want %q", got, test.name)
		}
		if got := mode.EnableSequence(); got != test.enable {
			t.Errorf("%v.EnableSequence() = %q, want %q", mode, got, test.enable)
		}
	}

	if _, err := ParseMouseMode("VT200"); err == nil {
		t.Error("ParseMouseMode accepted a name with the wrong case")
	}
}

func TestDisableMouseSequence(t *testing.T) {
	t.Parallel()
	want := "\x1b[?9l\x1b[?1000l\x1b[?1002l\x1b[?1003l\x1b[?1006l"
	if DisableMouseSequence != want {
		t.Errorf("DisableMouseSequence = %q, want %q", DisableMouseSequence, want)
	}
}

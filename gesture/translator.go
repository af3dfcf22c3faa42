// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

package gesture

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/termbridge/termbridge/lib/clock"
)

// Point is one touch position in CSS pixels.
type Point struct {
	X, Y float64
}

// Input is where scroll events go. client.Manager implements it.
type Input interface {
	Connected() bool
	Send(data []byte) error
}

// Terminal is the local terminal emulator.
type Terminal interface {
	// MouseTrackingMode returns the mode the remote program enabled.
	MouseTrackingMode() MouseMode

	// WriteLocal feeds a sequence to the emulator without sending it
	// to the relay.
	WriteLocal(sequence string)

	Selection() string
	ClearSelection()
}

// Clipboard receives copied selections.
type Clipboard interface {
	WriteText(text string) error
}

// Defaults for Config.
const (
	DefaultSensitivity    = 20.0
	DefaultSwipeThreshold = 15.0
	DefaultMoveThreshold  = 10.0
	DefaultLongPress      = 500 * time.Millisecond
)

// Config configures a Translator.
type Config struct {
	Input    Input
	Terminal Terminal

	// Clipboard is optional. Without one, ExitSelection(true) only
	// clears the selection.
	Clipboard Clipboard

	// Haptic is called when selection mode starts. Optional.
	Haptic func()

	// Clock times the long press. Default: clock.Real()
	Clock clock.Clock

	// Sensitivity is the vertical distance per wheel event.
	Sensitivity float64

	// SwipeThreshold is the vertical distance before a touch counts as
	// a swipe.
	SwipeThreshold float64

	// MoveThreshold is the distance on either axis that cancels a
	// pending long press.
	MoveThreshold float64

	// LongPress is the hold time that enters selection mode.
	LongPress time.Duration

	Logger *slog.Logger
}

// Translator is the gesture state machine for one terminal view. All
// methods are safe for concurrent use; events are applied one at a
// time.
type Translator struct {
	input     Input
	terminal  Terminal
	clipboard Clipboard
	haptic    func()
	clock     clock.Clock
	logger    *slog.Logger

	sensitivity    float64
	swipeThreshold float64
	moveThreshold  float64
	longPress      time.Duration

	mu sync.Mutex

	// touch counts touch starts; a long-press timer only acts on the
	// touch that armed it.
	touch     uint64
	start     Point
	scrolling bool
	remainder float64
	pressing  *clock.Timer

	selecting bool
	saved     MouseMode
}

// NewTranslator returns a Translator for config.
func NewTranslator(config Config) *Translator {
	translator := &Translator{
		input:          config.Input,
		terminal:       config.Terminal,
		clipboard:      config.Clipboard,
		haptic:         config.Haptic,
		clock:          config.Clock,
		logger:         config.Logger,
		sensitivity:    config.Sensitivity,
		swipeThreshold: config.SwipeThreshold,
		moveThreshold:  config.MoveThreshold,
		longPress:      config.LongPress,
	}
	if translator.clock == nil {
		translator.clock = clock.Real()
	}
	if translator.logger == nil {
		translator.logger = slog.New(slog.DiscardHandler)
	}
	if translator.sensitivity <= 0 {
		translator.sensitivity = DefaultSensitivity
	}
	if translator.swipeThreshold <= 0 {
		translator.swipeThreshold = DefaultSwipeThreshold
	}
	if translator.moveThreshold <= 0 {
		translator.moveThreshold = DefaultMoveThreshold
	}
	if translator.longPress <= 0 {
		translator.longPress = DefaultLongPress
	}
	return translator
}

// Selecting reports whether selection mode is active.
func (t *Translator) Selecting() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.selecting
}

// TouchStart begins a touch. Multi-finger touches, and every touch
// while selection mode is active, are left to the emulator.
func (t *Translator) TouchStart(points []Point) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(points) != 1 || t.selecting {
		return
	}

	t.touch++
	t.start = points[0]
	t.scrolling = false
	t.remainder = 0

	t.cancelPressLocked()
	touch := t.touch
	t.pressing = t.clock.AfterFunc(t.longPress, func() { t.pressed(touch) })
}

// TouchMove applies one move event and reports whether the touch is
// consumed as a scroll, in which case the caller suppresses native
// scrolling.
func (t *Translator) TouchMove(points []Point) bool {
	t.mu.Lock()
	if len(points) != 1 || t.selecting {
		t.mu.Unlock()
		return false
	}
	point := points[0]
	deltaY := t.start.Y - point.Y
	deltaX := point.X - t.start.X

	// A drag is never a long press, connected or not.
	if t.pressing != nil && (math.Abs(deltaX) > t.moveThreshold || math.Abs(deltaY) > t.moveThreshold) {
		t.cancelPressLocked()
	}
	if !t.input.Connected() {
		t.mu.Unlock()
		return false
	}
	if !t.scrolling && math.Abs(deltaY) < t.swipeThreshold {
		t.mu.Unlock()
		return false
	}
	t.cancelPressLocked()
	t.scrolling = true

	t.remainder += deltaY
	events := math.Trunc(t.remainder / t.sensitivity)
	t.remainder -= events * t.sensitivity
	t.start.Y = point.Y
	t.mu.Unlock()

	if events != 0 {
		t.scroll(int(events))
	}
	return true
}

// TouchEnd ends the touch.
func (t *Translator) TouchEnd() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelPressLocked()
	t.scrolling = false
	t.remainder = 0
}

// scroll sends |events| wheel events; positive scrolls forward.
func (t *Translator) scroll(events int) {
	sequence := []byte(ScrollSequence(ScrollForward))
	if events < 0 {
		sequence = []byte(ScrollSequence(ScrollBack))
		events = -events
	}
	for range events {
		if err := t.input.Send(sequence); err != nil {
			t.logger.Debug("dropping scroll events", "remaining", events, "error", err)
			return
		}
	}
}

func (t *Translator) pressed(touch uint64) {
	t.mu.Lock()
	if touch != t.touch || t.pressing == nil {
		t.mu.Unlock()
		return
	}
	t.pressing = nil
	t.mu.Unlock()
	t.EnterSelection()
}

// EnterSelection suspends mouse reporting in the local emulator so its
// own selection works. It reports whether selection mode was entered:
// with no tracking mode active there is nothing to suspend and native
// selection already works.
func (t *Translator) EnterSelection() bool {
	if t.Selecting() {
		return true
	}
	// The terminal is only called with mu released.
	mode := t.terminal.MouseTrackingMode()
	if mode == MouseNone {
		return false
	}

	t.mu.Lock()
	if t.selecting {
		t.mu.Unlock()
		return true
	}
	t.selecting = true
	t.saved = mode
	t.cancelPressLocked()
	t.mu.Unlock()

	t.terminal.WriteLocal(DisableMouseSequence)
	t.logger.Debug("selection mode started", "saved_mode", mode.String())
	if t.haptic != nil {
		t.haptic()
	}
	return true
}

// ExitSelection leaves selection mode, optionally copying the selection
// first, and restores the tracking mode that was active when it
// started. A copy failure is returned after the mode is restored.
func (t *Translator) ExitSelection(copySelection bool) error {
	t.mu.Lock()
	if !t.selecting {
		t.mu.Unlock()
		return nil
	}
	t.selecting = false
	mode := t.saved
	t.mu.Unlock()

	var copyErr error
	if copySelection && t.clipboard != nil {
		if text := t.terminal.Selection(); text != "" {
			if err := t.clipboard.WriteText(text); err != nil {
				copyErr = fmt.Errorf("copying selection: %w", err)
			}
		}
	}
	t.terminal.ClearSelection()
	t.terminal.WriteLocal(mode.EnableSequence() + ansi.SetModeMouseExtSgr)
	t.logger.Debug("selection mode ended", "restored_mode", mode.String(), "copied", copySelection)
	return copyErr
}

func (t *Translator) cancelPressLocked() {
	if t.pressing != nil {
		t.pressing.Stop()
		t.pressing = nil
	}
}

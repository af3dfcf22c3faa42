// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/muesli/termenv"

	"github.com/termbridge/termbridge/client"
)

// statusLine prints connection state changes between terminal output.
type statusLine struct {
	output  *termenv.Output
	session string
}

// newStatusLine writes to w with the color profile of the real stderr,
// since w itself is not a terminal.
func newStatusLine(w io.Writer, session string) *statusLine {
	profile := termenv.NewOutput(os.Stderr).EnvColorProfile()
	return &statusLine{output: termenv.NewOutput(w, termenv.WithProfile(profile)), session: session}
}

func (s *statusLine) show(state client.State) {
	color := s.output.Color("7")
	message := state.String()
	switch state {
	case client.StateConnected:
		color = s.output.Color("2")
		message = "attached to " + s.session
	case client.StateConnecting, client.StateReconnecting:
		color = s.output.Color("3")
		message += "..."
	case client.StateFailed:
		color = s.output.Color("1")
		message = "connection failed; press r to retry or Ctrl-] to quit"
	}
	s.print(s.output.String(message).Foreground(color).Bold())
}

func (s *statusLine) detached() {
	s.print(s.output.String("detached from " + s.session).Faint())
}

func (s *statusLine) print(text termenv.Style) {
	fmt.Fprintf(s.output, "\n[termbridge] %s\n", text)
}

// crlfWriter turns \n into \r\n for a terminal in raw mode.
type crlfWriter struct {
	w io.Writer
}

func (c crlfWriter) Write(p []byte) (int, error) {
	if _, err := c.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}

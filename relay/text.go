// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"unicode/utf8"
)

// textFramer turns pty output chunks into valid UTF-8 for text frames.
// A multi-byte character split across two reads is carried into the
// next chunk instead of being mangled, and bytes that are not UTF-8 at
// all become U+FFFD. Browsers fail the whole connection on an invalid
// text frame.
type textFramer struct {
	carry []byte
}

// frame returns the text for chunk, holding back an incomplete
// trailing character. The result may be empty.
func (f *textFramer) frame(chunk []byte) []byte {
	data := chunk
	if len(f.carry) > 0 {
		data = append(f.carry, chunk...)
		f.carry = nil
	}

	if cut := incompleteSuffix(data); cut > 0 {
		f.carry = append([]byte(nil), data[len(data)-cut:]...)
		data = data[:len(data)-cut]
	}

	if utf8.Valid(data) {
		return data
	}
	return replaceInvalid(data)
}

// flush returns whatever is still carried, as replacement characters.
func (f *textFramer) flush() []byte {
	if len(f.carry) == 0 {
		return nil
	}
	f.carry = nil
	return []byte(string(utf8.RuneError))
}

// incompleteSuffix returns the length of a truncated multi-byte
// sequence at the end of data, or 0.
func incompleteSuffix(data []byte) int {
	for i := 1; i < utf8.UTFMax && i <= len(data); i++ {
		c := data[len(data)-i]
		if !utf8.RuneStart(c) {
			continue
		}
		if c >= utf8.RuneSelf && !utf8.FullRune(data[len(data)-i:]) {
			return i
		}
		return 0
	}
	return 0
}

func replaceInvalid(data []byte) []byte {
	result := make([]byte, 0, len(data)+8)
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			result = utf8.AppendRune(result, utf8.RuneError)
		} else {
			result = append(result, data[:size]...)
		}
		data = data[size:]
	}
	return result
}

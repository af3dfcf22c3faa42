// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package pty

import (
	"errors"
	"os"
)

var errUnsupported = errors.New("pty allocation through /dev/ptmx is only implemented on linux")

func openPTY() (*os.File, string, error) {
	return nil, "", errUnsupported
}

func setWindowSize(*os.File, Size) error {
	return errUnsupported
}

func getWindowSize(*os.File) (Size, error) {
	return Size{}, errUnsupported
}

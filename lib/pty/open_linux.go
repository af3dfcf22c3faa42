// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

package pty

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// openPTY allocates a master/slave pair through the devpts interface.
// The master stays in non-blocking (poller) mode, so Close interrupts a
// pending Read; the descriptor is reached through SyscallConn rather
// than Fd, which would switch it to blocking mode.
func openPTY() (master *os.File, slavePath string, err error) {
	master, err = os.OpenFile("/dev/ptmx", os.O_RDWR|syscall.O_NOCTTY, 0)
	if err != nil {
		return nil, "", fmt.Errorf("open /dev/ptmx: %w", err)
	}

	var ptyNumber int
	err = control(master, func(fd int) error {
		var ioctlErr error
		ptyNumber, ioctlErr = unix.IoctlGetInt(fd, unix.TIOCGPTN)
		if ioctlErr != nil {
			return fmt.Errorf("get pty number (TIOCGPTN): %w", ioctlErr)
		}
		if ioctlErr = unix.IoctlSetPointerInt(fd, unix.TIOCSPTLCK, 0); ioctlErr != nil {
			return fmt.Errorf("unlock pty slave (TIOCSPTLCK): %w", ioctlErr)
		}
		return nil
	})
	if err != nil {
		master.Close()
		return nil, "", err
	}

	return master, fmt.Sprintf("/dev/pts/%d", ptyNumber), nil
}

// setWindowSize sets the window size on a pty master. The kernel sends
// SIGWINCH to the slave's foreground process group.
func setWindowSize(master *os.File, size Size) error {
	return control(master, func(fd int) error {
		return unix.IoctlSetWinsize(fd, unix.TIOCSWINSZ, &unix.Winsize{
			Col: size.Columns,
			Row: size.Rows,
		})
	})
}

// getWindowSize reads the window size back from a pty master.
func getWindowSize(master *os.File) (Size, error) {
	var size Size
	err := control(master, func(fd int) error {
		winsize, err := unix.IoctlGetWinsize(fd, unix.TIOCGWINSZ)
		if err != nil {
			return err
		}
		size = Size{Columns: winsize.Col, Rows: winsize.Row}
		return nil
	})
	return size, err
}

func control(file *os.File, f func(fd int) error) error {
	raw, err := file.SyscallConn()
	if err != nil {
		return err
	}
	var innerErr error
	if err := raw.Control(func(fd uintptr) { innerErr = f(int(fd)) }); err != nil {
		return err
	}
	return innerErr
}

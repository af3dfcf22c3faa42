// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/termbridge/termbridge/client"
	"github.com/termbridge/termbridge/lib/process"
	"github.com/termbridge/termbridge/lib/version"
)

// detachKey is Ctrl-], as in telnet.
const detachKey = 0x1d

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		relayURL    string
		session     string
		logLevel    string
		showVersion bool
	)

	flagSet := pflag.NewFlagSet("termbridge-attach", pflag.ContinueOnError)
	flagSet.StringVar(&relayURL, "url", envOr("TERMBRIDGE_URL", "http://localhost:3100"), "relay base URL (http, https, ws, or wss)")
	flagSet.StringVar(&session, "session", "", "tmux session name (or the first argument)")
	flagSet.StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return &process.ExitError{Code: 2, Err: err}
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if showVersion {
		fmt.Printf("termbridge-attach %s\n", version.Full())
		return nil
	}

	args := flagSet.Args()
	if session == "" && len(args) > 0 {
		session, args = args[0], args[1:]
	}
	if len(args) > 0 {
		return &process.ExitError{Code: 2, Err: fmt.Errorf("unexpected argument: %s", args[0])}
	}
	if session == "" {
		return &process.ExitError{Code: 2, Err: errors.New("a session name is required")}
	}

	endpoint, err := client.EndpointURL(relayURL, session)
	if err != nil {
		return &process.ExitError{Code: 2, Err: err}
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return &process.ExitError{Code: 2, Err: fmt.Errorf("--log-level: %w", err)}
	}

	stdin := int(os.Stdin.Fd())
	stdout := int(os.Stdout.Fd())
	if !term.IsTerminal(stdin) {
		return errors.New("stdin is not a terminal")
	}

	// Raw mode turns off output post-processing, so stderr lines need
	// their own carriage returns.
	stderr := crlfWriter{os.Stderr}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	status := newStatusLine(stderr, session)

	geometry := func() (int, int) {
		columns, rows, err := term.GetSize(stdout)
		if err != nil {
			return 80, 24
		}
		return columns, rows
	}

	manager := client.NewManager(client.Config{
		URL:           endpoint,
		Dialer:        client.WebSocketDialer{Program: "termbridge-attach"},
		Geometry:      geometry,
		OnMessage:     func(data []byte) { os.Stdout.Write(data) },
		OnStateChange: status.show,
		Logger:        logger,
	})
	defer manager.Close()

	saved, err := term.MakeRaw(stdin)
	if err != nil {
		return fmt.Errorf("entering raw mode: %w", err)
	}
	defer term.Restore(stdin, saved)

	signals := make(chan os.Signal, 4)
	signal.Notify(signals, syscall.SIGWINCH, syscall.SIGCONT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(signals)

	manager.Connect()

	input := make(chan []byte)
	inputErr := make(chan error, 1)
	go readInput(os.Stdin, input, inputErr)

	for {
		select {
		case sig := <-signals:
			switch sig {
			case syscall.SIGWINCH:
				columns, rows := geometry()
				if err := manager.SendResize(columns, rows); err != nil && !errors.Is(err, client.ErrNotConnected) {
					logger.Debug("sending resize", "error", err)
				}
			case syscall.SIGCONT:
				manager.Visible()
			default:
				status.detached()
				return nil
			}

		case data := <-input:
			if index := bytes.IndexByte(data, detachKey); index >= 0 {
				if index > 0 {
					manager.Send(data[:index])
				}
				status.detached()
				return nil
			}
			err := manager.Send(data)
			if errors.Is(err, client.ErrNotConnected) && manager.State() == client.StateFailed && bytes.ContainsAny(data, "rR") {
				manager.Reconnect()
			} else if err != nil && !errors.Is(err, client.ErrNotConnected) {
				logger.Debug("sending input", "error", err)
			}

		case err := <-inputErr:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading stdin: %w", err)
		}
	}
}

func readInput(r io.Reader, input chan<- []byte, inputErr chan<- error) {
	buffer := make([]byte, 4096)
	for {
		n, err := r.Read(buffer)
		if n > 0 {
			input <- append([]byte(nil), buffer[:n]...)
		}
		if err != nil {
			inputErr <- err
			return
		}
	}
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `termbridge-attach connects this terminal to a tmux session on a relay.

Keys:
  Ctrl-]   detach
  r        reconnect, after automatic retries have given up

Usage:
  termbridge-attach [flags] SESSION

Examples:
  # Attach to "work" on a local relay
  termbridge-attach work

  # Attach through a TLS reverse proxy
  termbridge-attach --url https://relay.example work

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}

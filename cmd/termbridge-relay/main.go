// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/termbridge/termbridge/lib/config"
	"github.com/termbridge/termbridge/lib/process"
	"github.com/termbridge/termbridge/lib/pty"
	"github.com/termbridge/termbridge/lib/tmux"
	"github.com/termbridge/termbridge/lib/version"
	"github.com/termbridge/termbridge/relay"
)

// shutdownTimeout bounds how long open terminals get to close.
const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath  string
		listen      string
		logLevel    string
		showVersion bool
	)

	flagSet := pflag.NewFlagSet("termbridge-relay", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "configuration file (default: $TERMBRIDGE_CONFIG, then built-in defaults)")
	flagSet.StringVar(&listen, "listen", "", "listen address, overriding the configuration")
	flagSet.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default: info)")
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
		fmt.Printf("termbridge-relay %s\n", version.Full())
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return &process.ExitError{Code: 2, Err: fmt.Errorf("unexpected argument: %s", args[0])}
	}

	logger, err := newLogger(logLevel)
	if err != nil {
		return &process.ExitError{Code: 2, Err: err}
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Listen = listen
	} else if port := os.Getenv("PORT"); port != "" {
		host, _, err := net.SplitHostPort(cfg.Listen)
		if err != nil {
			return fmt.Errorf("listen address %q: %w", cfg.Listen, err)
		}
		cfg.Listen = net.JoinHostPort(host, port)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	environ := tmux.AugmentPath(os.Environ(), cfg.Tmux.ExtraPath)
	binary := cfg.Tmux.Binary
	if binary == "" {
		binary = "tmux"
	}
	resolved, err := tmux.ResolveBinary(binary, environ)
	if err != nil {
		return fmt.Errorf("tmux is required: %w", err)
	}
	logger.Info("using tmux", "binary", resolved, "socket", cfg.Tmux.Socket)

	tmuxServer := tmux.NewServer(tmux.ServerConfig{
		Binary:     resolved,
		SocketPath: cfg.Tmux.Socket,
		Env:        environ,
	})
	driver := pty.NewTmuxDriver(pty.TmuxDriverConfig{
		Server:     tmuxServer,
		Term:       cfg.Terminal.Term,
		WorkingDir: cfg.Terminal.WorkingDir,
		Logger:     logger,
	})
	relayServer := relay.NewServer(relay.ServerConfig{
		Driver: driver,
		InitialSize: pty.Size{
			Columns: uint16(cfg.Terminal.Columns),
			Rows:    uint16(cfg.Terminal.Rows),
		},
		HeartbeatInterval: cfg.Heartbeat.Interval,
		AllowedOrigins:    cfg.Origins.Allowed,
		Logger:            logger,
	})

	listener, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Listen, err)
	}
	httpServer := &http.Server{
		Handler:           relayServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() { serveErr <- httpServer.Serve(listener) }()
	logger.Info("relay listening",
		"address", listener.Addr().String(),
		"environment", string(cfg.Environment),
		"version", version.Info(),
	)

	select {
	case err := <-serveErr:
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}
	stop()

	logger.Info("shutting down", "connections", relayServer.Registry().Len())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Hijacked WebSocket connections are not tracked by http.Server, so
	// the relay drains its own.
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	if err := relayServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("closing terminals: %w", err)
	}
	logger.Info("relay stopped")
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// newLogger returns a text logger on stderr. TERMBRIDGE_DEBUG=1 means
// debug unless --log-level says otherwise.
func newLogger(level string) (*slog.Logger, error) {
	var logLevel slog.Level
	switch {
	case level != "":
		if err := logLevel.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("--log-level: %w", err)
		}
	case os.Getenv("TERMBRIDGE_DEBUG") == "1":
		logLevel = slog.LevelDebug
	default:
		logLevel = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})), nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `termbridge-relay serves tmux sessions over WebSocket.

Each connection to /api/terminal?session=NAME attaches a new tmux client
to the existing session NAME. Closing the connection detaches it; the
session keeps running.

Usage:
  termbridge-relay [flags]

Examples:
  # Serve with built-in defaults on 0.0.0.0:3100
  termbridge-relay

  # Serve on loopback only, behind a reverse proxy
  termbridge-relay --listen 127.0.0.1:3100 --config /etc/termbridge/relay.yaml

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}

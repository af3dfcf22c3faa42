// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for a relay on a personal machine reached over a
	// private network.
	Development Environment = "development"
	// Production is for a relay behind a reverse proxy.
	Production Environment = "production"
)

// EnvironmentVariable names the variable [Load] reads the config path
// from.
const EnvironmentVariable = "TERMBRIDGE_CONFIG"

// Config is the relay daemon configuration.
type Config struct {
	// Environment selects which override section applies.
	Environment Environment `yaml:"environment"`

	// Listen is the TCP address the HTTP server binds.
	// Default: 0.0.0.0:3100
	Listen string `yaml:"listen"`

	// Tmux configures how the multiplexer is located and invoked.
	Tmux TmuxConfig `yaml:"tmux"`

	// Terminal configures the pty each connection gets.
	Terminal TerminalConfig `yaml:"terminal"`

	// Heartbeat configures WebSocket liveness probing.
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`

	// Origins configures which browser origins may open a terminal.
	Origins OriginsConfig `yaml:"origins"`

	// Per-environment overrides, applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Listen    string           `yaml:"listen,omitempty"`
	Tmux      *TmuxConfig      `yaml:"tmux,omitempty"`
	Terminal  *TerminalConfig  `yaml:"terminal,omitempty"`
	Heartbeat *HeartbeatConfig `yaml:"heartbeat,omitempty"`
	Origins   *OriginsConfig   `yaml:"origins,omitempty"`
}

// TmuxConfig configures the tmux invocation.
type TmuxConfig struct {
	// Binary is the tmux executable. Empty means resolve "tmux" from
	// PATH plus ExtraPath at startup.
	Binary string `yaml:"binary"`

	// Socket is a tmux server socket path passed as -S. Empty means the
	// user's default server, which is where their sessions live.
	Socket string `yaml:"socket"`

	// ExtraPath lists directories prepended to PATH for tmux and its
	// children when missing. Package-manager install locations are not
	// on PATH for daemons started by launchd or systemd.
	// Default: /opt/homebrew/bin, /usr/local/bin
	ExtraPath []string `yaml:"extra_path"`
}

// TerminalConfig configures the pty each connection gets.
type TerminalConfig struct {
	// Columns and Rows are the initial window size. The client sends its
	// real size right after connecting.
	// Default: 80x24
	Columns int `yaml:"columns"`
	Rows    int `yaml:"rows"`

	// Term is the TERM value given to the tmux client.
	// Default: xterm-256color
	Term string `yaml:"term"`

	// WorkingDir is the working directory of the tmux client.
	// Default: ${HOME}
	WorkingDir string `yaml:"working_dir"`
}

// HeartbeatConfig configures WebSocket liveness probing.
type HeartbeatConfig struct {
	// Interval between pings. A connection that has not answered the
	// previous ping when the next one is due is terminated.
	// Default: 30s
	Interval time.Duration `yaml:"interval"`
}

// OriginsConfig configures the WebSocket origin check.
type OriginsConfig struct {
	// Allowed lists origins ("https://host[:port]") accepted in addition
	// to same-origin requests. "*" accepts any origin.
	Allowed []string `yaml:"allowed"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Environment: Development,
		Listen:      "0.0.0.0:3100",
		Tmux: TmuxConfig{
			ExtraPath: []string{"/opt/homebrew/bin", "/usr/local/bin"},
		},
		Terminal: TerminalConfig{
			Columns:    80,
			Rows:       24,
			Term:       "xterm-256color",
			WorkingDir: "${HOME}",
		},
		Heartbeat: HeartbeatConfig{
			Interval: 30 * time.Second,
		},
	}
}

// Load loads configuration from the file named by TERMBRIDGE_CONFIG,
// or returns the defaults when it is unset.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		cfg := Default()
		cfg.expandVariables()
		return cfg, nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path, applies the
// matching environment section, and expands variables.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

// loadFile decodes one file over the current values.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// JSON is a subset of YAML, so once comments and trailing commas
		// are gone the YAML decoder reads it with the same field tags.
		data = jsonc.ToJSON(data)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

// applyEnvironmentOverrides applies the section matching Environment.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
		// Without an explicit production section, stay off public
		// interfaces; a reverse proxy fronts the relay.
		if overrides == nil {
			overrides = &ConfigOverrides{Listen: "127.0.0.1:3100"}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Listen != "" {
		c.Listen = overrides.Listen
	}

	if overrides.Tmux != nil {
		if overrides.Tmux.Binary != "" {
			c.Tmux.Binary = overrides.Tmux.Binary
		}
		if overrides.Tmux.Socket != "" {
			c.Tmux.Socket = overrides.Tmux.Socket
		}
		if overrides.Tmux.ExtraPath != nil {
			c.Tmux.ExtraPath = overrides.Tmux.ExtraPath
		}
	}

	if overrides.Terminal != nil {
		if overrides.Terminal.Columns != 0 {
			c.Terminal.Columns = overrides.Terminal.Columns
		}
		if overrides.Terminal.Rows != 0 {
			c.Terminal.Rows = overrides.Terminal.Rows
		}
		if overrides.Terminal.Term != "" {
			c.Terminal.Term = overrides.Terminal.Term
		}
		if overrides.Terminal.WorkingDir != "" {
			c.Terminal.WorkingDir = overrides.Terminal.WorkingDir
		}
	}

	if overrides.Heartbeat != nil && overrides.Heartbeat.Interval != 0 {
		c.Heartbeat.Interval = overrides.Heartbeat.Interval
	}

	if overrides.Origins != nil && overrides.Origins.Allowed != nil {
		c.Origins.Allowed = overrides.Origins.Allowed
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} in path fields.
func (c *Config) expandVariables() {
	c.Tmux.Binary = expandVars(c.Tmux.Binary)
	c.Tmux.Socket = expandVars(c.Tmux.Socket)
	for i, directory := range c.Tmux.ExtraPath {
		c.Tmux.ExtraPath[i] = expandVars(directory)
	}
	c.Terminal.WorkingDir = expandVars(c.Terminal.WorkingDir)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} from the environment.
// An unset or empty variable takes the default, or the empty string.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %q", c.Environment))
	}

	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		errs = append(errs, fmt.Errorf("listen: %w", err))
	}

	if c.Tmux.Socket != "" && !filepath.IsAbs(c.Tmux.Socket) {
		errs = append(errs, fmt.Errorf("tmux.socket must be an absolute path, got %q", c.Tmux.Socket))
	}

	if c.Terminal.Columns < 1 || c.Terminal.Columns > 65535 {
		errs = append(errs, fmt.Errorf("terminal.columns must be in 1..65535, got %d", c.Terminal.Columns))
	}
	if c.Terminal.Rows < 1 || c.Terminal.Rows > 65535 {
		errs = append(errs, fmt.Errorf("terminal.rows must be in 1..65535, got %d", c.Terminal.Rows))
	}
	if c.Terminal.Term == "" {
		errs = append(errs, errors.New("terminal.term is required"))
	}

	if c.Heartbeat.Interval <= 0 {
		errs = append(errs, fmt.Errorf("heartbeat.interval must be positive, got %v", c.Heartbeat.Interval))
	}

	for _, origin := range c.Origins.Allowed {
		if origin == "*" {
			continue
		}
		parsed, err := url.Parse(origin)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" || (parsed.Path != "" && parsed.Path != "/") {
			errs = append(errs, fmt.Errorf("origins.allowed: %q is not a scheme://host[:port] origin", origin))
		}
	}

	return errors.Join(errs...)
}

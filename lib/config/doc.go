// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the termbridge
// relay daemon.
//
// Configuration comes from a single file named by the --config flag
// (via [LoadFile]) or the TERMBRIDGE_CONFIG environment variable (via
// [Load]). With neither, [Load] returns [Default] with variables
// expanded. There is no file discovery.
//
// Files ending in .json or .jsonc are treated as JSON with comments
// and trailing commas; everything else is YAML. Unknown keys are an
// error in both.
//
// The file may contain environment sections (development, production)
// that override base values when [Config].Environment matches.
// Production defaults are stricter: with no production section, the
// relay binds to loopback only.
//
// ${HOME} and ${VAR:-default} patterns are expanded in path fields
// after loading.
package config

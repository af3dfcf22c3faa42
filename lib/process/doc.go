// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers for the termbridge
// commands. Errors returned from run() are reported here, before or
// after the structured logger exists, so main() stays one line.
package process

// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging constructs the structured loggers the gen192
// binaries share.
package logging

import (
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewLogger creates a structured logger for command and daemon
// operations. When stderr is a terminal, uses slog.TextHandler for
// human-readable output. When stderr is piped or redirected (CI,
// scripts, systemd), uses slog.JSONHandler for machine-parseable
// output.
//
// Callers scope the logger with component-specific context via With():
//
//	logger := logging.NewLogger(verbose).With(
//	    "component", "publisher",
//	    "repository", repo,
//	)
func NewLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	options := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}

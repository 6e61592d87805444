// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging provides the configured zerolog logger for chatcat.
//
// Logs are written to a file rather than stdout: the terminal is owned by
// the interactive UI and stray writes would corrupt the display.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New returns a zerolog.Logger writing JSON lines to w at the given level.
// Unknown level strings fall back to info.
func New(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(w).
		Level(parseLevel(level)).
		With().
		Str("service", "chatcat").
		Timestamp().
		Logger()
}

// Open opens (or creates) the log file at path and returns a logger writing
// to it. The caller owns the returned file handle and should close it on
// shutdown.
func Open(path, level string) (zerolog.Logger, *os.File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return zerolog.Nop(), nil, err
	}
	return New(f, level), f, nil
}

// Nop returns a disabled logger for tests and ephemeral sessions.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	}
	return zerolog.InfoLevel
}

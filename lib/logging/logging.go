// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging builds the slog loggers used by the tether binaries.
//
// Both binaries log to stderr. stdout belongs to the relayed byte stream
// on the console side, so nothing but session payload may be written
// there.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// Format selects the slog handler.
type Format string

const (
	// FormatAuto picks text when the output is a terminal and JSON
	// otherwise.
	FormatAuto Format = "auto"
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseLevel maps debug, info, warn, and error (case-insensitive) to a
// slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug, info, warn, or error)", name)
	}
}

// New returns a logger writing to output at the named level. When
// format is FormatAuto (or empty) and output is a terminal the
// human-readable text handler is used; piped output gets JSON.
func New(output io.Writer, level string, format Format) (*slog.Logger, error) {
	parsedLevel, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	options := &slog.HandlerOptions{Level: parsedLevel}

	switch format {
	case FormatText:
		return slog.New(slog.NewTextHandler(output, options)), nil
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(output, options)), nil
	case FormatAuto, "":
		if isTerminal(output) {
			return slog.New(slog.NewTextHandler(output, options)), nil
		}
		return slog.New(slog.NewJSONHandler(output, options)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want auto, text, or json)", format)
	}
}

func isTerminal(output io.Writer) bool {
	file, ok := output.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

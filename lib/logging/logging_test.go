// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for name, want := range tests {
		got, err := ParseLevel(name)
		if err != nil {
			t.Errorf("ParseLevel(%q): %v", name, err)
			continue
		}
		if got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", name, got, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("ParseLevel(loud) succeeded")
	}
}

func TestNewAutoUsesJSONForNonTerminal(t *testing.T) {
	var output bytes.Buffer
	logger, err := New(&output, "info", FormatAuto)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("session started", "remote_addr", "127.0.0.1:4546")
	logger.Debug("suppressed")

	var record map[string]any
	if err := json.Unmarshal(output.Bytes(), &record); err != nil {
		t.Fatalf("output is not one JSON record: %v (%q)", err, output.String())
	}
	if record["msg"] != "session started" || record["remote_addr"] != "127.0.0.1:4546" {
		t.Errorf("unexpected record: %v", record)
	}
}

func TestNewText(t *testing.T) {
	var output bytes.Buffer
	logger, err := New(&output, "debug", FormatText)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("connect failed", "attempt", 2)
	if got := output.String(); !strings.Contains(got, "msg=\"connect failed\"") || !strings.Contains(got, "attempt=2") {
		t.Errorf("text output = %q", got)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, "info", Format("xml")); err == nil {
		t.Error("New accepted format xml")
	}
}

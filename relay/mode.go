// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// Mode selects how a spawned shell's standard streams are wired.
type Mode string

const (
	// ModePipe gives the shell three independent pipes. It works
	// everywhere but offers no line editing or job control.
	ModePipe Mode = "pipe"

	// ModePTY attaches stdin, stdout, and stderr to one
	// pseudo-terminal. Unix only.
	ModePTY Mode = "pty"
)

func (m Mode) String() string { return string(m) }

// ParseMode accepts "pipe" or "pty".
func ParseMode(name string) (Mode, error) {
	switch Mode(strings.ToLower(name)) {
	case ModePipe:
		return ModePipe, nil
	case ModePTY:
		return ModePTY, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want pipe or pty)", name)
	}
}

// DefaultMode is ModePTY where the platform supports pseudo-terminals
// and noPTY is false, otherwise ModePipe.
func DefaultMode(noPTY bool) Mode {
	if noPTY || !ptySupported {
		return ModePipe
	}
	return ModePTY
}

// DefaultShell returns cmd.exe on windows and /bin/bash elsewhere.
func DefaultShell() string {
	if runtime.GOOS == "windows" {
		return "cmd.exe"
	}
	return "/bin/bash"
}

// ShellCommand builds the argv for shell in mode. Bash under a PTY is
// started interactive (-i); everything else runs with no arguments.
func ShellCommand(shell string, mode Mode) []string {
	if mode == ModePTY && isBash(shell) {
		return []string{shell, "-i"}
	}
	return []string{shell}
}

// PipeModeHint returns an operator hint when shell is known to print
// job-control warnings without a terminal, or "" otherwise.
func PipeModeHint(shell string, mode Mode) string {
	if mode == ModePipe && runtime.GOOS != "windows" && isBash(shell) {
		return "bash without a pty may print job-control warnings; consider --shell /bin/sh"
	}
	return ""
}

func isBash(shell string) bool {
	return filepath.Base(shell) == "bash"
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports what build of tether-shell or tether-console
// is running.
//
// The commit comes from the VCS stamp the Go toolchain embeds in module
// builds. Release builds may override it, and set Version, with
// -ldflags:
//
//	go build -ldflags "-X github.com/bureau-foundation/tether/lib/version.Version=1.2.0"
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	Version   = "0.1.0-dev"
	GitCommit = ""
)

// Commit returns the short revision the binary was built from, with a
// "-dirty" suffix for modified trees, or "unknown".
func Commit() string {
	if GitCommit != "" {
		return GitCommit
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	return commitFromSettings(info.Settings)
}

func commitFromSettings(settings []debug.BuildSetting) string {
	var revision, modified string
	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value
		}
	}
	if revision == "" {
		return "unknown"
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	if modified == "true" {
		revision += "-dirty"
	}
	return revision
}

// Info is the one-line form printed by --version, for example
// "0.1.0-dev (3f2a9c1b7d0e, go1.25.6 linux/amd64)".
func Info() string {
	return fmt.Sprintf("%s (%s, %s %s/%s)", Version, Commit(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Print writes "binary Info()" to stdout.
func Print(binary string) {
	fmt.Printf("%s %s\n", binary, Info())
}

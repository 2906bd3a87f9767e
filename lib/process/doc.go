// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers for the tether
// binaries: reporting a fatal error before or after the structured
// logger exists, and mapping an error returned from run() to a process
// exit code.
package process

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads configuration for the tether binaries.
//
// Values are layered, later layers winning:
//
//  1. [Default]: the reference configuration (listener on 0.0.0.0:4546,
//     backoff 2s doubling to 15s, 1.5s termination grace).
//  2. One optional file, named by a --config flag or the TETHER_CONFIG
//     environment variable. There is no discovery. The extension picks
//     the decoder: .yaml/.yml, .toml, or .json/.jsonc (comments and
//     trailing commas allowed).
//  3. TETHER_* environment variables, for example
//     TETHER_INITIATOR_ADDRESS or TETHER_LISTENER_KEEPALIVE_IDLE.
//  4. Command-line flags, applied by the binary after [Load] returns.
//
// Callers run [Config.Validate] after the last layer.
//
// This package depends on no other tether packages.
package config

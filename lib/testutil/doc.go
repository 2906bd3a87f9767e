// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive], [RequireSend], and [RequireClosed] wrap the
// select-with-timeout safety valve so individual tests never block
// forever on a channel. [RequireEventually] polls a condition that has
// no channel to wait on (a process exiting, a PTY becoming readable).
//
// All helpers call t.Fatalf on failure rather than returning errors.
package testutil

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package relay is the session relay engine: it binds a TCP stream to a
// live shell process or to the operator's console and moves raw bytes
// in both directions until one side asks to stop.
//
// The wire carries no framing. The only reserved content is
// [QuitToken], the seven ASCII bytes ":leave:". The console side sends
// it when the operator's input reaches EOF, and the shell side ends the
// session when it sees the token inside a received chunk. The token is
// matched within a single read only; a token split across two reads is
// forwarded to the shell like any other bytes.
//
// Two supervisors drive sessions:
//
//   - [Initiator] dials out through a [Connector] (capped exponential
//     [Backoff], retried forever), spawns the shell with [Spawn], runs
//     one [Session], pauses, and dials again.
//   - [Listener] accepts one peer at a time and runs a [Session] bound
//     to a [Console]. It does not accept again until that session ends.
//
// A [Session] picks its strategy once. Against a pipe-mode [Process] it
// runs three directional forwarders (stdout, stderr, transport input).
// Against a PTY-mode process it runs a single loop that performs every
// write, fed by two readers. Against a [Console] it runs the two
// console workers. In every case [Session.Run] blocks until the session
// ends and reports why in a [SessionResult]; no forwarding error
// escapes it.
//
// Teardown always runs in the same order: close the transport,
// terminate the spawned process, release its descriptors. Each step is
// best-effort and independent of the others.
package relay

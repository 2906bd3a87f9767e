// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import "bytes"

// QuitToken is the in-band marker asking the shell side to end the
// session. It is sent raw, neither escaped nor framed.
var QuitToken = []byte(":leave:")

// ContainsQuit reports whether chunk contains QuitToken. Detection is
// per chunk: a token whose bytes straddle two reads is not seen.
func ContainsQuit(chunk []byte) bool {
	return bytes.Contains(chunk, QuitToken)
}

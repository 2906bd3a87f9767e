// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"time"

	"github.com/bureau-foundation/tether/lib/netutil"
)

// runTerminal relays between the transport and a PTY master. Two
// goroutines only read; every write happens on the loop goroutine.
func (s *Session) runTerminal(ctx context.Context) {
	terminal := s.Process.Terminal()
	fromRemote := make(chan chunk)
	fromTerminal := make(chan chunk)

	s.spawn(func() { s.readChunks(s.Transport, fromRemote) })
	s.spawn(func() { s.readChunks(terminal, fromTerminal) })
	s.spawn(func() { s.terminalLoop(ctx, fromRemote, fromTerminal) })
}

func (s *Session) terminalLoop(ctx context.Context, fromRemote, fromTerminal <-chan chunk) {
	terminal := s.Process.Terminal()
	processDone := s.Process.Done()
	var drain <-chan time.Time

	for {
		select {
		case <-s.stop.done:
			return

		case <-ctx.Done():
			s.stop.fire(EndCancelled, ctx.Err())
			return

		case received := <-fromRemote:
			if received.err != nil {
				s.transportFailed(received.err)
				return
			}
			if ContainsQuit(received.data) {
				s.quitReceived()
				return
			}
			if !s.writeLocal(terminal, received.data) {
				return
			}

		case output := <-fromTerminal:
			if output.err != nil {
				// EIO once every subordinate descriptor is closed.
				if netutil.IsExpectedCloseError(output.err) {
					s.stop.fire(EndProcessExit, nil)
				} else {
					s.stop.fire(EndIOError, output.err)
				}
				return
			}
			if !s.writeRemote(output.data) {
				return
			}

		case <-processDone:
			processDone = nil
			drain = s.clk.After(processDrainTimeout)

		case <-drain:
			s.stop.fire(EndProcessExit, nil)
			return
		}
	}
}

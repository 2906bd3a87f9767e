// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"io"
	"sync"

	"github.com/bureau-foundation/tether/lib/netutil"
)

// runPipes starts the three directional forwarders and the exit
// watcher for a pipe-mode shell.
func (s *Session) runPipes() {
	var outputs sync.WaitGroup
	outputs.Add(2)
	outputsDrained := make(chan struct{})

	s.spawn(func() {
		defer outputs.Done()
		s.forwardOutput("stdout", s.Process.Stdout())
	})
	s.spawn(func() {
		defer outputs.Done()
		s.forwardOutput("stderr", s.Process.Stderr())
	})
	s.spawn(func() {
		outputs.Wait()
		close(outputsDrained)
	})
	s.spawn(s.forwardInput)
	s.spawn(func() { s.watchExit(outputsDrained) })
}

// forwardOutput copies one shell output stream to the transport. EOF
// on the stream stops only this forwarder.
func (s *Session) forwardOutput(name string, src io.Reader) {
	buffer := make([]byte, bufferSize)
	for {
		n, err := src.Read(buffer)
		if n > 0 && !s.writeRemote(buffer[:n]) {
			return
		}
		if err != nil {
			if !netutil.IsExpectedCloseError(err) {
				s.log.Debug("shell stream read failed", "stream", name, "error", err)
			}
			return
		}
	}
}

// forwardInput copies transport data to the shell's stdin. A chunk
// containing QuitToken is dropped whole and ends the session.
func (s *Session) forwardInput() {
	stdin := s.Process.Stdin()
	buffer := make([]byte, bufferSize)
	for {
		n, err := s.Transport.Read(buffer)
		if n > 0 {
			data := buffer[:n]
			if ContainsQuit(data) {
				s.quitReceived()
				return
			}
			if !s.writeLocal(stdin, data) {
				return
			}
		}
		if err != nil {
			s.transportFailed(err)
			return
		}
	}
}

// watchExit ends the session once the shell has exited and its output
// has drained, or processDrainTimeout after the exit, whichever comes
// first.
func (s *Session) watchExit(outputsDrained <-chan struct{}) {
	select {
	case <-s.Process.Done():
	case <-s.stop.done:
		return
	}
	select {
	case <-outputsDrained:
	case <-s.clk.After(processDrainTimeout):
	case <-s.stop.done:
		return
	}
	s.stop.fire(EndProcessExit, nil)
}

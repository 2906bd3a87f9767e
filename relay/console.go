// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/term"
)

// DefaultQuitLinger is how long a console session waits, after sending
// QuitToken, for the shell side to close the connection.
const DefaultQuitLinger = 2 * time.Second

// Console is the operator's end of a listening session. One Console
// serves every session of a Listener in turn; Input is read by a single
// long-lived goroutine so a session ending never strands a pending
// read.
type Console struct {
	Input  io.Reader
	Output io.Writer

	// QuitLinger defaults to DefaultQuitLinger.
	QuitLinger time.Duration

	pumpOnce sync.Once
	input    chan chunk
}

// NewConsole returns a Console reading the process's standard input
// and writing its standard output.
func NewConsole() *Console {
	return &Console{Input: os.Stdin, Output: os.Stdout}
}

// TerminalFD returns the descriptor of Input when it is a terminal.
func (c *Console) TerminalFD() (int, bool) {
	file, ok := c.Input.(*os.File)
	if !ok {
		return 0, false
	}
	fd := int(file.Fd())
	return fd, term.IsTerminal(fd)
}

// chunks starts the input pump on first use. On a terminal EOF is
// delivered as a chunk and reading resumes, so each Ctrl-D ends one
// session. On anything else the channel is closed at EOF and every
// later session sees EOF at once.
func (c *Console) chunks() <-chan chunk {
	c.pumpOnce.Do(func() {
		c.input = make(chan chunk)
		_, interactive := c.TerminalFD()
		go c.pump(interactive)
	})
	return c.input
}

func (c *Console) pump(interactive bool) {
	for {
		buffer := make([]byte, bufferSize)
		n, err := c.Input.Read(buffer)
		if n > 0 {
			c.input <- chunk{data: buffer[:n]}
		}
		if err == nil {
			continue
		}
		if err == io.EOF && interactive {
			c.input <- chunk{err: io.EOF}
			continue
		}
		close(c.input)
		return
	}
}

func (c *Console) quitLinger() time.Duration {
	if c.QuitLinger > 0 {
		return c.QuitLinger
	}
	return DefaultQuitLinger
}

// runConsole starts the two console workers.
func (s *Session) runConsole() {
	var quitSent atomic.Bool
	s.spawn(func() { s.consoleOutput(&quitSent) })
	s.spawn(func() { s.consoleInput(&quitSent) })
}

// consoleOutput copies the transport to the console output. On EOF it
// half-closes the read side and stops the session.
func (s *Session) consoleOutput(quitSent *atomic.Bool) {
	buffer := make([]byte, bufferSize)
	for {
		n, err := s.Transport.Read(buffer)
		if n > 0 && !s.writeLocal(s.Console.Output, buffer[:n]) {
			return
		}
		if err != nil {
			closeRead(s.Transport, s.log)
			if quitSent.Load() {
				s.stop.fire(EndLocalClosed, nil)
			} else {
				s.transportFailed(err)
			}
			return
		}
	}
}

// consoleInput copies operator input to the transport. On local EOF it
// sends QuitToken, half-closes the write side, and gives the shell
// side QuitLinger to hang up before stopping the session itself.
func (s *Session) consoleInput(quitSent *atomic.Bool) {
	input := s.Console.chunks()
	for {
		var received chunk
		var open bool
		select {
		case received, open = <-input:
		case <-s.stop.done:
			return
		}
		if open && received.err == nil {
			if !s.writeRemote(received.data) {
				return
			}
			continue
		}

		s.log.Info("console input closed, sending quit token")
		quitSent.Store(true)
		if !s.writeRemote(QuitToken) {
			return
		}
		closeWrite(s.Transport, s.log)
		select {
		case <-s.stop.done:
		case <-s.clk.After(s.Console.quitLinger()):
			s.stop.fire(EndLocalClosed, nil)
		}
		return
	}
}

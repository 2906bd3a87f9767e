// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/tether/lib/clock"
	"github.com/bureau-foundation/tether/lib/metrics"
	"github.com/bureau-foundation/tether/lib/netutil"
)

// bufferSize is the read size for every relayed stream.
const bufferSize = 4096

// processDrainTimeout bounds how long output already written by an
// exited shell keeps flowing to the transport before the session ends.
const processDrainTimeout = 250 * time.Millisecond

// EndReason says why a session ended.
type EndReason string

const (
	// EndQuitToken: the shell side received QuitToken.
	EndQuitToken EndReason = "quit_token"

	// EndProcessExit: the spawned shell exited.
	EndProcessExit EndReason = "process_exit"

	// EndRemoteClosed: the peer closed the transport.
	EndRemoteClosed EndReason = "remote_closed"

	// EndLocalClosed: the local side went away. For a shell that is its
	// stdin refusing writes; for a console it is operator EOF.
	EndLocalClosed EndReason = "local_closed"

	// EndIOError: an unexpected read or write failure.
	EndIOError EndReason = "io_error"

	// EndCancelled: the context passed to Run was cancelled.
	EndCancelled EndReason = "cancelled"
)

// SessionResult describes a finished session.
type SessionResult struct {
	Reason EndReason

	// Err is the failure behind EndIOError or EndCancelled, nil
	// otherwise.
	Err error

	Duration time.Duration

	// BytesToRemote counts bytes written to the transport.
	BytesToRemote int64

	// BytesToLocal counts bytes written to the shell or console.
	BytesToLocal int64
}

// Session binds one transport connection to exactly one local
// endpoint: a spawned Process on the shell side, or a Console on the
// listening side. A Session is single-use.
type Session struct {
	Transport net.Conn

	// Process is set for shell-side sessions.
	Process *Process

	// Console is set for console-side sessions.
	Console *Console

	// ID appears in every log line of the session.
	ID uint64

	Clock   clock.Clock
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	stop     stopSignal
	counters counters
	workers  sync.WaitGroup
	log      *slog.Logger
	clk      clock.Clock
}

// stopSignal is closed exactly once; the first reason recorded wins.
type stopSignal struct {
	once   sync.Once
	done   chan struct{}
	reason EndReason
	err    error
}

func (s *stopSignal) fire(reason EndReason, err error) {
	s.once.Do(func() {
		s.reason = reason
		s.err = err
		close(s.done)
	})
}

type counters struct {
	toRemote atomic.Int64
	toLocal  atomic.Int64
}

// chunk is one read handed from a reader goroutine to a writer.
type chunk struct {
	data []byte
	err  error
}

// Run relays bytes until the session ends, tears the session down, and
// reports why it ended. It waits for every goroutine it started before
// returning.
func (s *Session) Run(ctx context.Context) SessionResult {
	s.stop.done = make(chan struct{})
	s.clk = s.Clock
	if s.clk == nil {
		s.clk = clock.Real()
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mode := s.mode()
	s.log = logger.With("session_id", s.ID, "mode", mode)
	s.Metrics.SessionStarted(mode)
	s.log.Info("session started", "remote", s.Transport.RemoteAddr().String())
	started := s.clk.Now()

	switch {
	case s.Console != nil:
		s.runConsole()
	case s.Process != nil && s.Process.Mode() == ModePTY:
		s.runTerminal(ctx)
	case s.Process != nil:
		s.runPipes()
	default:
		s.stop.fire(EndIOError, errors.New("session has no local endpoint"))
	}

	select {
	case <-s.stop.done:
	case <-ctx.Done():
		s.stop.fire(EndCancelled, ctx.Err())
	}

	s.teardown()
	s.workers.Wait()

	result := SessionResult{
		Reason:        s.stop.reason,
		Err:           s.stop.err,
		Duration:      s.clk.Now().Sub(started),
		BytesToRemote: s.counters.toRemote.Load(),
		BytesToLocal:  s.counters.toLocal.Load(),
	}
	s.Metrics.SessionEnded(string(result.Reason), result.Duration)
	attrs := []any{
		"reason", string(result.Reason),
		"duration", result.Duration,
		"bytes_to_remote", result.BytesToRemote,
		"bytes_to_local", result.BytesToLocal,
	}
	if result.Err != nil {
		attrs = append(attrs, "error", result.Err)
	}
	s.log.Info("session ended", attrs...)
	return result
}

func (s *Session) mode() string {
	switch {
	case s.Console != nil:
		return "console"
	case s.Process != nil:
		return string(s.Process.Mode())
	default:
		return "none"
	}
}

// teardown closes the transport, terminates the shell, and releases
// its descriptors, in that order. Each step runs regardless of how the
// previous one went.
func (s *Session) teardown() {
	closeTransport(s.Transport, s.log)
	if s.Process != nil {
		s.Process.Terminate()
		s.Process.Close()
	}
}

func (s *Session) spawn(worker func()) {
	s.workers.Add(1)
	go func() {
		defer s.workers.Done()
		worker()
	}()
}

// writeRemote writes data to the transport and accounts for it. A
// failure ends the session.
func (s *Session) writeRemote(data []byte) bool {
	n, err := s.Transport.Write(data)
	s.counters.toRemote.Add(int64(n))
	s.Metrics.BytesRelayed(metrics.DirectionToRemote, n)
	if err != nil {
		s.transportFailed(err)
		return false
	}
	return true
}

// writeLocal writes data to the shell or console. A failure ends the
// session with EndLocalClosed.
func (s *Session) writeLocal(destination io.Writer, data []byte) bool {
	n, err := destination.Write(data)
	s.counters.toLocal.Add(int64(n))
	s.Metrics.BytesRelayed(metrics.DirectionToLocal, n)
	if err != nil {
		s.log.Debug("local write failed", "error", err)
		s.stop.fire(EndLocalClosed, nil)
		return false
	}
	return true
}

// transportFailed ends the session after a transport read or write
// error. Orderly closes by the peer are not errors.
func (s *Session) transportFailed(err error) {
	if netutil.IsExpectedCloseError(err) {
		s.stop.fire(EndRemoteClosed, nil)
		return
	}
	s.stop.fire(EndIOError, err)
}

// quitReceived ends the session because data carried QuitToken.
func (s *Session) quitReceived() {
	s.Metrics.QuitTokenReceived()
	s.log.Info("quit token received")
	s.stop.fire(EndQuitToken, nil)
}

// readChunks reads src into fresh buffers and hands each one to out
// until a read fails or the session stops. The read error is delivered
// as a final chunk.
func (s *Session) readChunks(src io.Reader, out chan<- chunk) {
	for {
		buffer := make([]byte, bufferSize)
		n, err := src.Read(buffer)
		if n > 0 {
			select {
			case out <- chunk{data: buffer[:n]}:
			case <-s.stop.done:
				return
			}
		}
		if err != nil {
			select {
			case out <- chunk{err: err}:
			case <-s.stop.done:
			}
			return
		}
	}
}

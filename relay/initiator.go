// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bureau-foundation/tether/lib/clock"
	"github.com/bureau-foundation/tether/lib/metrics"
)

// DefaultReconnectPause separates the end of one session from the next
// connection attempt.
const DefaultReconnectPause = 2 * time.Second

// Initiator is the shell-side supervisor: connect, spawn, relay, pause,
// and connect again, forever.
type Initiator struct {
	Connector *Connector

	// Shell is the program to run, for example "/bin/bash". The argv
	// is derived with ShellCommand for the mode actually used.
	Shell string

	// Mode is the preferred stream wiring. ModePTY falls back to
	// ModePipe for a session when no pseudo-terminal is available.
	Mode Mode

	// GracePeriod is passed to Spawn.
	GracePeriod time.Duration

	// ReconnectPause defaults to DefaultReconnectPause.
	ReconnectPause time.Duration

	// Env is appended to the shell's environment.
	Env []string

	Clock   clock.Clock
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// OnSession, when set, is called with each finished session's
	// result.
	OnSession func(SessionResult)

	sessions uint64
}

func (i *Initiator) logger() *slog.Logger {
	if i.Logger != nil {
		return i.Logger
	}
	return slog.Default()
}

func (i *Initiator) clock() clock.Clock {
	if i.Clock != nil {
		return i.Clock
	}
	return clock.Real()
}

// Run loops until ctx is cancelled or the shell cannot be spawned.
// Cancellation is reported as an *AbortError recording whether it
// happened while connecting; a spawn failure is returned as the
// *SpawnError.
func (i *Initiator) Run(ctx context.Context) error {
	logger := i.logger()
	pause := i.ReconnectPause
	if pause <= 0 {
		pause = DefaultReconnectPause
	}

	for {
		connection, err := i.Connector.Connect(ctx)
		if err != nil {
			return &AbortError{Connecting: true, Err: err}
		}

		process, err := i.spawn()
		if err != nil {
			closeTransport(connection, logger)
			return err
		}

		i.sessions++
		session := &Session{
			Transport: connection,
			Process:   process,
			ID:        i.sessions,
			Clock:     i.Clock,
			Logger:    logger,
			Metrics:   i.Metrics,
		}
		result := session.Run(ctx)
		if i.OnSession != nil {
			i.OnSession(result)
		}
		if result.Reason == EndCancelled {
			return &AbortError{Err: result.Err}
		}

		logger.Info("reconnecting", "pause", pause)
		select {
		case <-i.clock().After(pause):
		case <-ctx.Done():
			return &AbortError{Err: ctx.Err()}
		}
	}
}

// spawn starts the shell in the preferred mode and retries once in
// pipe mode when the PTY cannot be allocated.
func (i *Initiator) spawn() (*Process, error) {
	options := ProcessOptions{
		GracePeriod: i.GracePeriod,
		Env:         i.Env,
		Clock:       i.Clock,
		Logger:      i.Logger,
		Metrics:     i.Metrics,
	}
	mode := i.Mode
	if mode == "" {
		mode = DefaultMode(false)
	}
	process, err := Spawn(ShellCommand(i.Shell, mode), mode, options)
	if err == nil || mode == ModePipe || !errors.Is(err, ErrPTYUnavailable) {
		return process, err
	}
	i.logger().Warn("pty unavailable, falling back to pipes", "error", err)
	return Spawn(ShellCommand(i.Shell, ModePipe), ModePipe, options)
}

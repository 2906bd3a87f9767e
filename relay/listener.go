// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"golang.org/x/term"

	"github.com/bureau-foundation/tether/lib/clock"
	"github.com/bureau-foundation/tether/lib/metrics"
	"github.com/bureau-foundation/tether/lib/netutil"
)

// Listener accepts shell connections one at a time and binds each to
// Console for the length of its session.
type Listener struct {
	// Address is the host:port to bind, for example "0.0.0.0:4546".
	Address string

	// KeepAlive is applied to every accepted connection.
	KeepAlive netutil.KeepAlive

	Console *Console

	// RawConsole puts a terminal console into raw mode for each
	// session so line editing and signal keys reach the remote PTY.
	RawConsole bool

	Clock   clock.Clock
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	mu       sync.Mutex
	listener net.Listener
	sessions uint64
}

func (l *Listener) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

// Listen binds Address. It must be called before Serve.
func (l *Listener) Listen() error {
	listener, err := net.Listen("tcp", l.Address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", l.Address, err)
	}
	l.mu.Lock()
	l.listener = listener
	l.mu.Unlock()
	l.logger().Info("listening", "address", listener.Addr().String())
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.listener == nil {
		return nil
	}
	return l.listener.Addr()
}

// Close stops accepting. An active session runs until it ends.
func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.listener == nil {
		return nil
	}
	return l.listener.Close()
}

// Serve accepts and runs sessions until ctx is cancelled, then returns
// nil. Accept failures other than the listener closing are logged and
// the loop continues.
func (l *Listener) Serve(ctx context.Context) error {
	l.mu.Lock()
	listener := l.listener
	l.mu.Unlock()
	if listener == nil {
		return errors.New("listener: Serve called before Listen")
	}

	stop := context.AfterFunc(ctx, func() { listener.Close() })
	defer stop()

	logger := l.logger()
	for {
		connection, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logger.Warn("accept failed", "error", err)
			continue
		}
		l.handle(ctx, connection)
	}
}

func (l *Listener) handle(ctx context.Context, connection net.Conn) {
	logger := l.logger()
	logger.Info("shell connected", "remote", connection.RemoteAddr().String())

	if err := netutil.SetNoDelay(connection); err != nil {
		logger.Debug("disabling nagle failed", "error", err)
	}
	if err := netutil.SetKeepAlive(connection, l.KeepAlive); err != nil {
		logger.Debug("configuring keepalive failed", "error", err)
	}

	if l.RawConsole {
		if restore := l.enterRawMode(); restore != nil {
			defer restore()
		}
	}

	l.sessions++
	session := &Session{
		Transport: connection,
		Console:   l.Console,
		ID:        l.sessions,
		Clock:     l.Clock,
		Logger:    logger,
		Metrics:   l.Metrics,
	}
	session.Run(ctx)
}

// enterRawMode switches a terminal console to raw mode and returns the
// function restoring it, or nil when the console is not a terminal.
func (l *Listener) enterRawMode() func() {
	fd, ok := l.Console.TerminalFD()
	if !ok {
		return nil
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		l.logger().Warn("entering raw mode failed", "error", err)
		return nil
	}
	return func() {
		if err := term.Restore(fd, state); err != nil {
			l.logger().Warn("restoring terminal failed", "error", err)
		}
	}
}

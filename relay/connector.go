// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"log/slog"
	"net"

	"github.com/bureau-foundation/tether/lib/clock"
	"github.com/bureau-foundation/tether/lib/metrics"
	"github.com/bureau-foundation/tether/lib/netutil"
)

// Dialer opens a stream connection. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Connector dials Address until it succeeds, sleeping between failed
// attempts for the delays handed out by Backoff.
type Connector struct {
	// Address is the host:port of the listener.
	Address string

	// Backoff supplies the delay after each failed attempt. It is
	// shared across calls to Connect and never reset. Defaults to
	// DefaultBackoffInitial doubling up to DefaultBackoffMax.
	Backoff *Backoff

	// Dialer defaults to a zero net.Dialer.
	Dialer Dialer

	Clock   clock.Clock
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

func (c *Connector) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Connector) dialer() Dialer {
	if c.Dialer != nil {
		return c.Dialer
	}
	return &net.Dialer{}
}

func (c *Connector) clock() clock.Clock {
	if c.Clock != nil {
		return c.Clock
	}
	return clock.Real()
}

// Connect returns the first connection that succeeds. Failures are
// logged with the upcoming delay and never returned; the only error is
// ctx.Err() once ctx is cancelled. Nagle is disabled on the returned
// connection when it is TCP.
func (c *Connector) Connect(ctx context.Context) (net.Conn, error) {
	if c.Backoff == nil {
		c.Backoff = NewBackoff(DefaultBackoffInitial, DefaultBackoffMax)
	}
	logger := c.logger()
	dialer := c.dialer()
	clk := c.clock()
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		connection, err := dialer.DialContext(ctx, "tcp", c.Address)
		if err == nil {
			if noDelayErr := netutil.SetNoDelay(connection); noDelayErr != nil {
				logger.Debug("disabling nagle failed", "error", noDelayErr)
			}
			logger.Info("connected", "address", c.Address, "local", connection.LocalAddr().String())
			return connection, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		delay := c.Backoff.Next()
		c.Metrics.ConnectFailed()
		failure := &ConnectError{Address: c.Address, Attempt: c.Backoff.Attempt(), Delay: delay, Err: err}
		logger.Warn("connect failed, retrying",
			"address", c.Address,
			"attempt", failure.Attempt,
			"retry_in", delay,
			"error", failure.Err,
		)

		select {
		case <-clk.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

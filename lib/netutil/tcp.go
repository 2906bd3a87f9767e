// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrNotTCP is returned by the tuning helpers when the connection is not
// a *net.TCPConn (for example a net.Pipe in tests or a Unix socket).
var ErrNotTCP = errors.New("connection is not TCP")

// KeepAlive describes TCP keepalive probing.
type KeepAlive struct {
	// Idle is how long the connection sits idle before the first probe.
	Idle time.Duration

	// Interval is the time between unanswered probes.
	Interval time.Duration

	// Count is how many unanswered probes mark the peer dead.
	Count int
}

// DefaultKeepAlive probes after 30s idle, every 10s, giving up after 3.
func DefaultKeepAlive() KeepAlive {
	return KeepAlive{Idle: 30 * time.Second, Interval: 10 * time.Second, Count: 3}
}

// SetNoDelay disables Nagle's algorithm so keystrokes and prompt
// fragments are sent without coalescing.
func SetNoDelay(connection net.Conn) error {
	tcpConnection, ok := connection.(*net.TCPConn)
	if !ok {
		return ErrNotTCP
	}
	if err := tcpConnection.SetNoDelay(true); err != nil {
		return fmt.Errorf("set TCP_NODELAY: %w", err)
	}
	return nil
}

// SetKeepAlive enables keepalive probing with the given policy.
// Platforms that lack per-socket idle/interval/count options apply
// whatever subset they support.
func SetKeepAlive(connection net.Conn, policy KeepAlive) error {
	tcpConnection, ok := connection.(*net.TCPConn)
	if !ok {
		return ErrNotTCP
	}
	err := tcpConnection.SetKeepAliveConfig(net.KeepAliveConfig{
		Enable:   true,
		Idle:     policy.Idle,
		Interval: policy.Interval,
		Count:    policy.Count,
	})
	if err != nil {
		return fmt.Errorf("set TCP keepalive: %w", err)
	}
	return nil
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"log/slog"
	"net"
)

// halfCloser is implemented by *net.TCPConn and *net.UnixConn.
type halfCloser interface {
	CloseRead() error
	CloseWrite() error
}

// closeRead shuts down the read side of connection when it supports
// half-close. Errors are logged and dropped.
func closeRead(connection net.Conn, logger *slog.Logger) {
	if closer, ok := connection.(halfCloser); ok {
		if err := closer.CloseRead(); err != nil {
			logger.Debug("transport close-read failed", "error", err)
		}
	}
}

// closeWrite shuts down the write side of connection, sending FIN to
// the peer, when it supports half-close. Errors are logged and dropped.
func closeWrite(connection net.Conn, logger *slog.Logger) {
	if closer, ok := connection.(halfCloser); ok {
		if err := closer.CloseWrite(); err != nil {
			logger.Debug("transport close-write failed", "error", err)
		}
	}
}

// closeTransport shuts down both directions and then closes
// connection. Safe to call on an already-closed connection.
func closeTransport(connection net.Conn, logger *slog.Logger) {
	closeRead(connection, logger)
	closeWrite(connection, logger)
	if err := connection.Close(); err != nil {
		logger.Debug("transport close failed", "error", err)
	}
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"bytes"
	"io"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"
)

// testLogger discards everything below error so test output stays
// readable.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// tcpPair returns both ends of a loopback TCP connection. local is
// meant for the code under test, remote for the test itself.
func tcpPair(t *testing.T) (local, remote *net.TCPConn) {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()

	accepted := make(chan net.Conn, 1)
	acceptErr := make(chan error, 1)
	go func() {
		connection, err := listener.Accept()
		if err != nil {
			acceptErr <- err
			return
		}
		accepted <- connection
	}()

	dialed, err := net.Dial("tcp", listener.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	select {
	case connection := <-accepted:
		local = connection.(*net.TCPConn)
	case err := <-acceptErr:
		t.Fatalf("accept: %v", err)
	case <-time.After(5 * time.Second): //nolint:realclock test hang prevention
		t.Fatal("timed out accepting loopback connection")
	}
	remote = dialed.(*net.TCPConn)
	t.Cleanup(func() {
		local.Close()
		remote.Close()
	})
	return local, remote
}

// readUntil reads from connection until the collected bytes contain
// expected, and returns everything read.
func readUntil(t *testing.T, connection net.Conn, expected string, timeout time.Duration) string {
	t.Helper()
	deadline := time.Now().Add(timeout)
	connection.SetReadDeadline(deadline)
	defer connection.SetReadDeadline(time.Time{})

	var collected strings.Builder
	buffer := make([]byte, 1024)
	for !strings.Contains(collected.String(), expected) {
		n, err := connection.Read(buffer)
		collected.Write(buffer[:n])
		if err != nil {
			if strings.Contains(collected.String(), expected) {
				break
			}
			t.Fatalf("reading for %q: %v (collected: %q)", expected, err, collected.String())
		}
	}
	return collected.String()
}

// readAll reads from connection until EOF.
func readAll(t *testing.T, connection net.Conn, timeout time.Duration) string {
	t.Helper()
	connection.SetReadDeadline(time.Now().Add(timeout))
	defer connection.SetReadDeadline(time.Time{})
	data, err := io.ReadAll(connection)
	if err != nil {
		t.Fatalf("reading to EOF: %v (collected: %q)", err, data)
	}
	return string(data)
}

// requireCommand skips the test when name is not on PATH.
func requireCommand(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available: %v", name, err)
	}
}

// requirePTY skips the test when the host cannot allocate
// pseudo-terminals.
func requirePTY(t *testing.T) {
	t.Helper()
	if !ptySupported {
		t.Skip("pseudo-terminals not supported on this platform")
	}
	if _, err := os.Stat("/dev/ptmx"); err != nil {
		t.Skipf("no /dev/ptmx: %v", err)
	}
}

// spawnForTest starts command and registers cleanup that terminates
// it.
func spawnForTest(t *testing.T, command []string, mode Mode, gracePeriod time.Duration) *Process {
	t.Helper()
	process, err := Spawn(command, mode, ProcessOptions{GracePeriod: gracePeriod, Logger: testLogger()})
	if err != nil {
		t.Fatalf("Spawn(%q): %v", command, err)
	}
	t.Cleanup(func() {
		process.Terminate()
		process.Close()
	})
	return process
}

// syncBuffer is a bytes.Buffer safe for one writer and concurrent
// readers.
type syncBuffer struct {
	mu     sync.Mutex
	buffer bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffer.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffer.String()
}

// blockingInput returns a reader that never yields data until the test
// ends.
func blockingInput(t *testing.T) io.Reader {
	t.Helper()
	reader, writer := io.Pipe()
	t.Cleanup(func() { writer.Close() })
	return reader
}

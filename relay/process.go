// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/tether/lib/clock"
	"github.com/bureau-foundation/tether/lib/metrics"
)

// DefaultGracePeriod is how long Terminate waits after the polite
// signal before it kills the process group.
const DefaultGracePeriod = 1500 * time.Millisecond

// killWait bounds the wait for exit after the forced kill.
const killWait = 2 * time.Second

// ProcessOptions configures Spawn.
type ProcessOptions struct {
	// GracePeriod defaults to DefaultGracePeriod.
	GracePeriod time.Duration

	// Env is appended to the parent's environment.
	Env []string

	Clock   clock.Clock
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Process is a running shell and the parent's ends of its standard
// streams. In ModePTY Stdin, Stdout, and Stderr all return the
// terminal master.
type Process struct {
	cmd  *exec.Cmd
	mode Mode

	stdin  *os.File
	stdout *os.File
	stderr *os.File

	// terminal is the PTY master, nil in pipe mode.
	terminal *os.File

	done    chan struct{}
	waitErr error

	gracePeriod time.Duration
	clock       clock.Clock
	logger      *slog.Logger
	metrics     *metrics.Metrics

	terminateOnce sync.Once
	closeOnce     sync.Once
	forcedKills   atomic.Int32
}

// Spawn starts command in mode. Any failure to allocate streams or to
// locate and execute the command is returned as a *SpawnError; in
// ModePTY a missing pseudo-terminal additionally wraps
// ErrPTYUnavailable.
func Spawn(command []string, mode Mode, options ProcessOptions) (*Process, error) {
	if len(command) == 0 {
		return nil, &SpawnError{Mode: mode, Err: errors.New("empty command")}
	}
	if options.GracePeriod <= 0 {
		options.GracePeriod = DefaultGracePeriod
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	cmd := exec.Command(command[0], command[1:]...)
	cmd.Env = append(os.Environ(), options.Env...)

	process := &Process{
		cmd:         cmd,
		mode:        mode,
		done:        make(chan struct{}),
		gracePeriod: options.GracePeriod,
		clock:       options.Clock,
		logger:      options.Logger,
		metrics:     options.Metrics,
	}

	var err error
	switch mode {
	case ModePipe:
		err = process.startPipes()
	case ModePTY:
		if !hasEnv(cmd.Env, "TERM") {
			cmd.Env = append(cmd.Env, "TERM=xterm-256color")
		}
		err = process.startTerminal()
	default:
		err = fmt.Errorf("unknown mode %q", mode)
	}
	if err != nil {
		return nil, &SpawnError{Command: command, Mode: mode, Err: err}
	}

	go process.wait()
	process.logger.Info("shell started",
		"command", strings.Join(command, " "),
		"mode", string(mode),
		"pid", cmd.Process.Pid,
	)
	return process, nil
}

// startPipes wires three os.Pipe pairs to the child. The child's ends
// are *os.File so exec hands them over directly and Wait does not
// depend on any copy goroutines.
func (p *Process) startPipes() error {
	var childEnds []*os.File
	closeChildEnds := func() {
		for _, f := range childEnds {
			f.Close()
		}
	}

	stdinRead, stdinWrite, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("creating stdin pipe: %w", err)
	}
	childEnds = append(childEnds, stdinRead)

	stdoutRead, stdoutWrite, err := os.Pipe()
	if err != nil {
		closeChildEnds()
		stdinWrite.Close()
		return fmt.Errorf("creating stdout pipe: %w", err)
	}
	childEnds = append(childEnds, stdoutWrite)

	stderrRead, stderrWrite, err := os.Pipe()
	if err != nil {
		closeChildEnds()
		stdinWrite.Close()
		stdoutRead.Close()
		return fmt.Errorf("creating stderr pipe: %w", err)
	}
	childEnds = append(childEnds, stderrWrite)

	p.cmd.Stdin = stdinRead
	p.cmd.Stdout = stdoutWrite
	p.cmd.Stderr = stderrWrite
	configurePipeProcess(p.cmd)

	err = p.cmd.Start()
	closeChildEnds()
	if err != nil {
		stdinWrite.Close()
		stdoutRead.Close()
		stderrRead.Close()
		return err
	}

	p.stdin = stdinWrite
	p.stdout = stdoutRead
	p.stderr = stderrRead
	return nil
}

func (p *Process) wait() {
	p.waitErr = p.cmd.Wait()
	close(p.done)
	p.logger.Debug("shell exited", "pid", p.cmd.Process.Pid, "status", p.exitStatus())
}

func (p *Process) exitStatus() string {
	if p.cmd.ProcessState == nil {
		return "unknown"
	}
	return p.cmd.ProcessState.String()
}

// Mode reports how the process's streams are wired.
func (p *Process) Mode() Mode { return p.mode }

// Pid returns the operating system process ID, which is also the
// process group ID on unix.
func (p *Process) Pid() int { return p.cmd.Process.Pid }

// Stdin is the writable end of the child's standard input.
func (p *Process) Stdin() io.Writer {
	if p.terminal != nil {
		return p.terminal
	}
	return p.stdin
}

// Stdout is the readable end of the child's standard output.
func (p *Process) Stdout() io.Reader {
	if p.terminal != nil {
		return p.terminal
	}
	return p.stdout
}

// Stderr is the readable end of the child's standard error. In
// ModePTY it is the same stream as Stdout.
func (p *Process) Stderr() io.Reader {
	if p.terminal != nil {
		return p.terminal
	}
	return p.stderr
}

// Terminal returns the PTY master, or nil in pipe mode.
func (p *Process) Terminal() *os.File { return p.terminal }

// Done is closed once the process has exited and been reaped.
func (p *Process) Done() <-chan struct{} { return p.done }

// Exited reports whether Done is closed.
func (p *Process) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// ExitCode returns the exit status, or -1 while the process runs or
// when it was killed by a signal.
func (p *Process) ExitCode() int {
	if !p.Exited() {
		return -1
	}
	return p.cmd.ProcessState.ExitCode()
}

// Err returns the error from waiting on the process once it has
// exited. A non-zero exit is an *exec.ExitError.
func (p *Process) Err() error {
	if !p.Exited() {
		return nil
	}
	return p.waitErr
}

// ForcedKills counts how many times Terminate escalated to killing the
// process group. It is at most one.
func (p *Process) ForcedKills() int { return int(p.forcedKills.Load()) }

// Terminate stops the process: a polite signal to its group, a wait of
// up to the grace period, then one forced kill. It returns once the
// process has exited or the post-kill wait has elapsed. Repeated calls
// are no-ops. Failures are logged at debug and otherwise ignored.
func (p *Process) Terminate() {
	p.terminateOnce.Do(func() {
		if p.Exited() {
			return
		}
		p.terminate()
	})
}

func (p *Process) awaitExit(timeout time.Duration) bool {
	select {
	case <-p.done:
		return true
	case <-p.clock.After(timeout):
		return false
	}
}

func (p *Process) recordForcedKill() {
	p.forcedKills.Add(1)
	p.metrics.ForcedKill()
	p.logger.Info("shell ignored termination, killing", "pid", p.cmd.Process.Pid, "grace_period", p.gracePeriod)
}

// Close releases the parent's stream descriptors. Blocked reads and
// writes on them return an error. Safe to call more than once.
func (p *Process) Close() {
	p.closeOnce.Do(func() {
		for _, f := range []*os.File{p.terminal, p.stdin, p.stdout, p.stderr} {
			if f == nil {
				continue
			}
			if err := f.Close(); err != nil {
				p.logger.Debug("closing shell stream failed", "name", f.Name(), "error", err)
			}
		}
	})
}

func hasEnv(env []string, key string) bool {
	prefix := key + "="
	for _, entry := range env {
		if strings.HasPrefix(entry, prefix) {
			return true
		}
	}
	return false
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package relay

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

const ptySupported = true

func configurePipeProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// startTerminal attaches all three standard streams of the child to the
// subordinate side of a fresh PTY and makes the child a session leader
// with that PTY as its controlling terminal.
func (p *Process) startTerminal() error {
	master, tty, err := pty.Open()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPTYUnavailable, err)
	}

	if err := disableEchoAndCanonical(int(tty.Fd())); err != nil {
		master.Close()
		tty.Close()
		return fmt.Errorf("configuring terminal: %w", err)
	}

	p.cmd.Stdin = tty
	p.cmd.Stdout = tty
	p.cmd.Stderr = tty
	p.cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
		Ctty:    0,
	}

	err = p.cmd.Start()
	tty.Close()
	if err != nil {
		master.Close()
		return err
	}

	pollable, err := pollableFile(master)
	master.Close()
	if err != nil {
		p.cmd.Process.Kill()
		p.cmd.Wait()
		return fmt.Errorf("preparing terminal master: %w", err)
	}
	p.terminal = pollable
	return nil
}

// disableEchoAndCanonical clears ECHO and ICANON so every byte
// written to the master reaches the shell immediately and is not
// reflected back by the line discipline.
func disableEchoAndCanonical(fd int) error {
	termios, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		return err
	}
	termios.Lflag &^= unix.ECHO | unix.ICANON
	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0
	return unix.IoctlSetTermios(fd, ioctlSetTermios, termios)
}

// pollableFile returns a non-blocking duplicate of file registered with
// the runtime poller, so Close on it interrupts a pending Read.
func pollableFile(file *os.File) (*os.File, error) {
	raw, err := file.SyscallConn()
	if err != nil {
		return nil, err
	}
	duplicate := -1
	var dupErr error
	if err := raw.Control(func(fd uintptr) {
		duplicate, dupErr = unix.FcntlInt(fd, unix.F_DUPFD_CLOEXEC, 0)
	}); err != nil {
		return nil, err
	}
	if dupErr != nil {
		return nil, dupErr
	}
	if err := unix.SetNonblock(duplicate, true); err != nil {
		unix.Close(duplicate)
		return nil, err
	}
	return os.NewFile(uintptr(duplicate), file.Name()), nil
}

func (p *Process) terminate() {
	pid := p.cmd.Process.Pid
	if err := unix.Kill(-pid, unix.SIGTERM); err != nil {
		p.logger.Debug("signalling process group failed", "pgid", pid, "error", err)
		if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
			p.logger.Debug("signalling shell failed", "pid", pid, "error", err)
		}
	}
	if p.awaitExit(p.gracePeriod) {
		return
	}

	p.recordForcedKill()
	if err := unix.Kill(-pid, unix.SIGKILL); err != nil {
		p.logger.Debug("killing process group failed", "pgid", pid, "error", err)
		if err := p.cmd.Process.Kill(); err != nil {
			p.logger.Debug("killing shell failed", "pid", pid, "error", err)
		}
	}
	if !p.awaitExit(killWait) {
		p.logger.Warn("shell still running after kill", "pid", pid)
	}
}

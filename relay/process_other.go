// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package relay

import "os/exec"

const ptySupported = false

func configurePipeProcess(*exec.Cmd) {}

func (p *Process) startTerminal() error {
	return ErrPTYUnavailable
}

// terminate kills the shell outright. Console processes on windows have
// no polite termination signal.
func (p *Process) terminate() {
	p.recordForcedKill()
	if err := p.cmd.Process.Kill(); err != nil {
		p.logger.Debug("killing shell failed", "pid", p.cmd.Process.Pid, "error", err)
	}
	if !p.awaitExit(killWait) {
		p.logger.Warn("shell still running after kill", "pid", p.cmd.Process.Pid)
	}
}

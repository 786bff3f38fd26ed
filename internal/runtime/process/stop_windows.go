//go:build windows

package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
)

// Interrupt asks the process tree to close without forcing it.
func (p *Process) Interrupt() error {
	if p.Exited() {
		return nil
	}
	if err := exec.Command("taskkill", "/T", "/PID", strconv.Itoa(p.pid)).Run(); err != nil {
		if p.Exited() {
			return nil
		}
		return fmt.Errorf("interrupt process %s (%d): %w", p.name, p.pid, err)
	}
	return nil
}

// Kill terminates the process tree, falling back to the direct child.
func (p *Process) Kill() error {
	if p.Exited() {
		return nil
	}
	if err := exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(p.pid)).Run(); err == nil {
		return nil
	}
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill process %s (%d): %w", p.name, p.pid, err)
	}
	return nil
}

// Alive reports whether the direct child is still running.
func (p *Process) Alive() bool {
	return !p.Exited()
}

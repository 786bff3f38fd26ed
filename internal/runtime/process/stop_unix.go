//go:build !windows

package process

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Interrupt sends SIGTERM to the process group. A group that no longer
// exists is not an error.
func (p *Process) Interrupt() error {
	return p.signalGroup(unix.SIGTERM)
}

// Kill sends SIGKILL to the process group.
func (p *Process) Kill() error {
	return p.signalGroup(unix.SIGKILL)
}

// Alive reports whether any member of the process group is still running.
// Once the whole group is gone the pgid can be reused, so callers should only
// trust it for a group whose leader they saw running recently.
func (p *Process) Alive() bool {
	err := unix.Kill(-p.pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

func (p *Process) signalGroup(sig unix.Signal) error {
	if err := unix.Kill(-p.pid, sig); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("signal process group %s (%d) with %s: %w", p.name, p.pid, unix.SignalName(sig), err)
	}
	return nil
}

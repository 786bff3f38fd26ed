package process

import (
	"errors"
	"fmt"
	"os/exec"
	"sync"
)

// Process is a running background launch.
type Process struct {
	name string
	cmd  *exec.Cmd
	pid  int
	done chan struct{}

	mu      sync.Mutex
	waitErr error
}

// Start runs commandLine through the platform shell, detached from the
// controlling terminal with standard streams bound to the null device. The
// command line is passed to the shell verbatim.
func Start(name, commandLine string) (*Process, error) {
	if commandLine == "" {
		return nil, fmt.Errorf("process %s requires a command", name)
	}

	cmd := ShellCommand(commandLine)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	Detach(cmd)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start process %s: %w", name, err)
	}

	p := &Process{
		name: name,
		cmd:  cmd,
		pid:  cmd.Process.Pid,
		done: make(chan struct{}),
	}
	go p.wait()
	return p, nil
}

func (p *Process) wait() {
	err := p.cmd.Wait()
	p.mu.Lock()
	p.waitErr = err
	p.mu.Unlock()
	close(p.done)
}

// Pid returns the process identifier of the shell.
func (p *Process) Pid() int {
	return p.pid
}

// Done is closed once the shell has exited and been reaped.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Exited reports whether the shell has exited. It never blocks.
func (p *Process) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// ExitCode returns the shell's exit code, or -1 while it is running or when
// it was terminated by a signal.
func (p *Process) ExitCode() int {
	if !p.Exited() {
		return -1
	}
	return p.cmd.ProcessState.ExitCode()
}

// Err returns the error reported by the wait call once the process exited.
func (p *Process) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var exitErr *exec.ExitError
	if errors.As(p.waitErr, &exitErr) {
		return nil
	}
	return p.waitErr
}

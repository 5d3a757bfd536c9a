package process

import (
	"os"
	"os/exec"
	"time"

	"github.com/pkg/errors"
)

// Process is a launched application
type Process struct {
	PID  int
	Path string

	proc *os.Process
}

// Launcher starts applications and waits for them to become responsive
type Launcher interface {
	// Launch starts path with args and returns without waiting for it to exit
	Launch(path string, args []string) (*Process, error)

	// WaitForInputIdle blocks until p is waiting for user input or timeout
	// elapses. It is best-effort: a nil error does not guarantee readiness.
	WaitForInputIdle(p *Process, timeout time.Duration) error
}

// ExecLauncher implements Launcher with os/exec
type ExecLauncher struct{}

// NewExecLauncher creates a launcher for the local machine
func NewExecLauncher() *ExecLauncher {
	return &ExecLauncher{}
}

// Launch starts the executable detached from the caller's stdio
func (l *ExecLauncher) Launch(path string, args []string) (*Process, error) {
	if path == "" {
		return nil, errors.New("executable path is empty")
	}

	cmd := exec.Command(path, args...)
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "failed to start %s", path)
	}

	// Reap the child so it does not linger as a zombie after it exits.
	go func() { _ = cmd.Wait() }()

	return &Process{
		PID:  cmd.Process.Pid,
		Path: path,
		proc: cmd.Process,
	}, nil
}

// WaitForInputIdle delegates to the platform implementation
func (l *ExecLauncher) WaitForInputIdle(p *Process, timeout time.Duration) error {
	if p == nil || p.PID == 0 {
		return errors.New("process was not started")
	}
	if timeout <= 0 {
		return nil
	}
	return waitForInputIdle(p, timeout)
}

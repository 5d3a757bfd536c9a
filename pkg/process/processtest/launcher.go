// Package processtest provides a process.Launcher that starts nothing
package processtest

import (
	"sync"
	"time"

	"github.com/hotstart/hotstart/pkg/process"
)

// Launcher records launches. OnLaunch runs after each successful launch,
// typically to open the app's window on a fake desktop. OnInputIdle, when
// set, stands in for WaitForInputIdle.
type Launcher struct {
	mu          sync.Mutex
	launches    [][]string
	Err         error
	OnLaunch    func(path string, args []string)
	OnInputIdle func(p *process.Process, timeout time.Duration) error
}

var _ process.Launcher = (*Launcher)(nil)

func (l *Launcher) Launch(path string, args []string) (*process.Process, error) {
	l.mu.Lock()
	l.launches = append(l.launches, append([]string{path}, args...))
	err, hook := l.Err, l.OnLaunch
	l.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if hook != nil {
		hook(path, args)
	}
	return &process.Process{PID: 4242, Path: path}, nil
}

func (l *Launcher) WaitForInputIdle(p *process.Process, timeout time.Duration) error {
	l.mu.Lock()
	hook := l.OnInputIdle
	l.mu.Unlock()

	if hook != nil {
		return hook(p, timeout)
	}
	return nil
}

func (l *Launcher) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.launches)
}

// Last returns the most recent launch, or nil
func (l *Launcher) Last() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.launches) == 0 {
		return nil
	}
	return l.launches[len(l.launches)-1]
}

// Launches returns every launch as path followed by its arguments
func (l *Launcher) Launches() [][]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([][]string(nil), l.launches...)
}

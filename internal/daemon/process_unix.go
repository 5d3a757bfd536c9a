//go:build !windows

package daemon

import (
	"os"
	"syscall"

	"github.com/pkg/errors"
)

func processAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))
	// EPERM means the process exists but belongs to someone else
	return err == nil || errors.Is(err, syscall.EPERM)
}

// terminate sends SIGTERM so the monitor can show its hidden windows
func terminate(pid int) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return process.Signal(syscall.SIGTERM)
}

//go:build !windows

package main

import (
	"os"
	"syscall"
)

// detach re-executes the binary with args in a new session, with the
// standard streams closed. It returns the child PID.
func detach(args []string) (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, err
	}

	procAttr := &os.ProcAttr{
		Env:   append(os.Environ(), childEnv+"=1"),
		Files: []*os.File{nil, nil, nil},
		Sys: &syscall.SysProcAttr{
			Setsid: true,
		},
	}

	proc, err := os.StartProcess(exe, append([]string{exe}, args...), procAttr)
	if err != nil {
		return 0, err
	}
	pid := proc.Pid
	return pid, proc.Release()
}

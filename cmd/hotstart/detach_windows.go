//go:build windows

package main

import (
	"os"
	"syscall"

	"golang.org/x/sys/windows"
)

// detach re-executes the binary with args without a console. It returns
// the child PID.
func detach(args []string) (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, err
	}

	procAttr := &os.ProcAttr{
		Env:   append(os.Environ(), childEnv+"=1"),
		Files: []*os.File{nil, nil, nil},
		Sys: &syscall.SysProcAttr{
			CreationFlags: windows.CREATE_NEW_PROCESS_GROUP | windows.DETACHED_PROCESS,
			HideWindow:    true,
		},
	}

	proc, err := os.StartProcess(exe, append([]string{exe}, args...), procAttr)
	if err != nil {
		return 0, err
	}
	pid := proc.Pid
	return pid, proc.Release()
}

//go:build windows

package process

import (
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	procWaitForInputIdle = user32.NewProc("WaitForInputIdle")
)

const waitFailed = 0xFFFFFFFF

func waitForInputIdle(p *Process, timeout time.Duration) error {
	h, err := windows.OpenProcess(windows.SYNCHRONIZE|windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(p.PID))
	if err != nil {
		return errors.Wrap(err, "failed to open process")
	}
	defer windows.CloseHandle(h)

	ret, _, callErr := procWaitForInputIdle.Call(uintptr(h), uintptr(timeout.Milliseconds()))
	if ret == waitFailed {
		// Console applications have no message queue and always fail here.
		return errors.Wrap(callErr, "WaitForInputIdle failed")
	}
	return nil
}

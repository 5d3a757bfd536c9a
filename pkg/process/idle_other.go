//go:build !linux && !windows

package process

import "time"

func waitForInputIdle(p *Process, timeout time.Duration) error {
	return nil
}

//go:build linux

package process

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const idlePollInterval = 25 * time.Millisecond

// waitForInputIdle has no kernel equivalent on Linux. A GUI process that has
// finished starting up sleeps in its event loop, so two consecutive samples
// in state S are taken as "idle".
func waitForInputIdle(p *Process, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	sleeping := 0

	for time.Now().Before(deadline) {
		state, err := readProcessState(p.PID)
		if err != nil {
			return errors.Wrap(err, "process exited before becoming idle")
		}

		if state == 'S' {
			sleeping++
			if sleeping >= 2 {
				return nil
			}
		} else {
			sleeping = 0
		}

		time.Sleep(idlePollInterval)
	}

	return nil
}

// readProcessState returns the state field of /proc/<pid>/stat
func readProcessState(pid int) (byte, error) {
	statPath := filepath.Join("/proc", strconv.Itoa(pid), "stat")
	statData, err := os.ReadFile(statPath)
	if err != nil {
		return 0, err
	}
	return parseStatState(string(statData))
}

// parseStatState extracts the state letter following the "(comm)" field.
// comm may itself contain spaces and parentheses, so the last ')' is used.
func parseStatState(stat string) (byte, error) {
	endIdx := strings.LastIndex(stat, ")")
	if endIdx == -1 || endIdx+2 >= len(stat) {
		return 0, errors.Errorf("malformed stat line: %q", stat)
	}
	return stat[endIdx+2], nil
}

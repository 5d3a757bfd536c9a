package daemon

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrNotRunning is returned by Stop when no live monitor owns the PID file
var ErrNotRunning = errors.New("monitor is not running")

// ErrAlreadyRunning is returned by Acquire when another live process owns
// the PID file
var ErrAlreadyRunning = errors.New("monitor is already running")

type Daemon struct {
	pidFile string
}

func New(pidFile string) *Daemon {
	return &Daemon{pidFile: pidFile}
}

func (d *Daemon) PIDFile() string {
	return d.pidFile
}

func (d *Daemon) WritePID() error {
	if err := os.MkdirAll(filepath.Dir(d.pidFile), 0755); err != nil {
		return errors.Wrap(err, "failed to create PID directory")
	}
	return os.WriteFile(d.pidFile, []byte(strconv.Itoa(os.Getpid())), 0644)
}

// ReadPID returns 0 without error when there is no PID file
func (d *Daemon) ReadPID() (int, error) {
	data, err := os.ReadFile(d.pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "failed to read PID file")
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, errors.Wrap(err, "invalid PID in file")
	}

	return pid, nil
}

// RemovePID removes the PID file if it still names this process
func (d *Daemon) RemovePID() error {
	pid, err := d.ReadPID()
	if err == nil && pid != 0 && pid != os.Getpid() {
		return nil
	}
	if err := os.Remove(d.pidFile); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove PID file")
	}
	return nil
}

// IsRunning reports whether the PID file names a live process. Stale files
// are removed.
func (d *Daemon) IsRunning() (bool, int, error) {
	pid, err := d.ReadPID()
	if err != nil {
		return false, 0, err
	}

	if pid == 0 {
		return false, 0, nil
	}

	if pid == os.Getpid() {
		return true, pid, nil
	}

	if !processAlive(pid) {
		_ = os.Remove(d.pidFile)
		return false, 0, nil
	}

	return true, pid, nil
}

// Acquire claims the PID file for this process
func (d *Daemon) Acquire() error {
	running, pid, err := d.IsRunning()
	if err != nil {
		return errors.Wrap(err, "error checking monitor status")
	}
	if running && pid != os.Getpid() {
		return errors.Wrapf(ErrAlreadyRunning, "PID %d", pid)
	}
	return d.WritePID()
}

// Stop asks the running monitor to exit and removes its PID file
func (d *Daemon) Stop() error {
	running, pid, err := d.IsRunning()
	if err != nil {
		return errors.Wrap(err, "error checking monitor status")
	}

	if !running {
		return ErrNotRunning
	}

	if err := terminate(pid); err != nil {
		return errors.Wrapf(err, "failed to stop PID %d", pid)
	}

	if err := os.Remove(d.pidFile); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove PID file")
	}

	return nil
}

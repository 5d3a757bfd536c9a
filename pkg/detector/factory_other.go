//go:build !windows

package detector

import (
	"os"

	"github.com/pkg/errors"

	"github.com/hotstart/hotstart/pkg/integrations/x11"
	"github.com/hotstart/hotstart/pkg/window"
)

const goos = "unix"

// New returns the X11 backend. Wayland compositors do not let clients hide
// or focus foreign windows, so a Wayland session only works through
// XWayland and only for X11 applications.
func New() (window.Query, error) {
	if os.Getenv("DISPLAY") == "" {
		if DetectDisplayServer() == "wayland" {
			return nil, errors.Wrap(ErrUnsupported, "wayland session without XWayland")
		}
		return nil, errors.Wrap(ErrUnsupported, "no display found (DISPLAY is not set)")
	}

	q, err := x11.New()
	if err != nil {
		return nil, err
	}
	return q, nil
}

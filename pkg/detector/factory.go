package detector

import (
	"os"

	"github.com/pkg/errors"
)

// ErrUnsupported means no backend can control windows in this session
var ErrUnsupported = errors.New("window control is not supported in this session")

// DetectDisplayServer reports "wayland", "x11", "windows" or "unknown"
func DetectDisplayServer() string {
	if goos == "windows" {
		return "windows"
	}

	sessionType := os.Getenv("XDG_SESSION_TYPE")
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	x11Display := os.Getenv("DISPLAY")

	if sessionType == "wayland" || waylandDisplay != "" {
		return "wayland"
	}

	if sessionType == "x11" || x11Display != "" {
		return "x11"
	}

	return "unknown"
}

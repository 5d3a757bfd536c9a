package apps

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// Template returns the starter app definition for the current platform
func Template() Seed {
	enabled := true
	if runtime.GOOS == "windows" {
		return Seed{
			Name:             "Notepad",
			File:             "notepad.exe",
			Enabled:          &enabled,
			AutoPreload:      true,
			HidingDurationMs: 500,
			WndFilter:        " - Notepad$",
		}
	}
	return Seed{
		Name:             "Text Editor",
		File:             "gedit",
		Args:             "--new-window",
		Enabled:          &enabled,
		AutoPreload:      true,
		HidingDurationMs: 500,
		WndFilter:        " - gedit$",
	}
}

// Scaffold writes the template into dir as a new TOML file and returns its
// path. Existing files are never overwritten; a numeric suffix is added
// instead.
func Scaffold(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(err, "failed to create apps directory")
	}

	data, err := toml.Marshal(Template())
	if err != nil {
		return "", errors.Wrap(err, "failed to encode template")
	}

	for i := 0; i < 100; i++ {
		name := "new-app.toml"
		if i > 0 {
			name = fmt.Sprintf("new-app-%d.toml", i)
		}
		path := filepath.Join(dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err != nil {
			if os.IsExist(err) {
				continue
			}
			return "", errors.Wrap(err, "failed to create app config")
		}

		_, werr := f.Write(data)
		cerr := f.Close()
		if werr != nil {
			return "", errors.Wrap(werr, "failed to write app config")
		}
		if cerr != nil {
			return "", errors.Wrap(cerr, "failed to write app config")
		}
		return path, nil
	}

	return "", errors.New("too many scaffolded app configs, rename some first")
}

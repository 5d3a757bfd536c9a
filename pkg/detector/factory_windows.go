//go:build windows

package detector

import (
	"github.com/hotstart/hotstart/pkg/integrations/win32"
	"github.com/hotstart/hotstart/pkg/window"
)

const goos = "windows"

func New() (window.Query, error) {
	q, err := win32.New()
	if err != nil {
		return nil, err
	}
	return q, nil
}

//go:build windows

package win32

import (
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"

	"github.com/hotstart/hotstart/pkg/window"
)

const (
	swHide    = 0
	swShow    = 5
	swRestore = 9

	monitorDefaultToNearest = 2
	maxTitleLen             = 512
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procEnumWindows         = user32.NewProc("EnumWindows")
	procIsWindowVisible     = user32.NewProc("IsWindowVisible")
	procIsIconic            = user32.NewProc("IsIconic")
	procGetWindowTextW      = user32.NewProc("GetWindowTextW")
	procShowWindow          = user32.NewProc("ShowWindow")
	procSetForegroundWindow = user32.NewProc("SetForegroundWindow")
	procMoveWindow          = user32.NewProc("MoveWindow")
	procGetWindowRect       = user32.NewProc("GetWindowRect")
	procGetCursorPos        = user32.NewProc("GetCursorPos")
	procMonitorFromPoint    = user32.NewProc("MonitorFromPoint")
	procGetMonitorInfoW     = user32.NewProc("GetMonitorInfoW")
)

// EnumWindows callbacks are a scarce resource; one is shared by all
// enumerations, which are serialized.
var (
	enumMu       sync.Mutex
	enumFound    []window.Handle
	enumCallback = windows.NewCallback(func(hwnd uintptr, _ uintptr) uintptr {
		enumFound = append(enumFound, window.Handle(hwnd))
		return 1
	})
)

type rect struct {
	Left, Top, Right, Bottom int32
}

type point struct {
	X, Y int32
}

type monitorInfo struct {
	Size    uint32
	Monitor rect
	Work    rect
	Flags   uint32
}

// Query implements window.Query with user32
type Query struct{}

var (
	_ window.Query         = (*Query)(nil)
	_ window.ScreenLocator = (*Query)(nil)
)

func New() (*Query, error) {
	if err := procEnumWindows.Find(); err != nil {
		return nil, errors.Wrap(err, "user32 is not available")
	}
	return &Query{}, nil
}

func (q *Query) Name() string {
	return "win32"
}

func (q *Query) Close() error {
	return nil
}

func (q *Query) topLevel() []window.Handle {
	enumMu.Lock()
	defer enumMu.Unlock()

	enumFound = enumFound[:0]
	procEnumWindows.Call(enumCallback, 0)
	return append([]window.Handle(nil), enumFound...)
}

func (q *Query) FindFirst(pred window.Predicate) window.Handle {
	for _, h := range q.topLevel() {
		if pred(h) {
			return h
		}
	}
	return window.None
}

func (q *Query) FindAll(pred window.Predicate) []window.Handle {
	var out []window.Handle
	for _, h := range q.topLevel() {
		if pred(h) {
			out = append(out, h)
		}
	}
	return out
}

func (q *Query) IsVisible(h window.Handle) bool {
	ret, _, _ := procIsWindowVisible.Call(uintptr(h))
	return ret != 0
}

func (q *Query) IsMinimized(h window.Handle) bool {
	ret, _, _ := procIsIconic.Call(uintptr(h))
	return ret != 0
}

func (q *Query) GetText(h window.Handle) string {
	buf := make([]uint16, maxTitleLen)
	n, _, _ := procGetWindowTextW.Call(uintptr(h), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if n == 0 {
		return ""
	}
	return windows.UTF16ToString(buf[:n])
}

// ShowWindow returns the previous visibility, not success, so it never fails
func (q *Query) showWindow(h window.Handle, cmd uintptr) error {
	procShowWindow.Call(uintptr(h), cmd)
	return nil
}

func (q *Query) Show(h window.Handle) error    { return q.showWindow(h, swShow) }
func (q *Query) Hide(h window.Handle) error    { return q.showWindow(h, swHide) }
func (q *Query) Restore(h window.Handle) error { return q.showWindow(h, swRestore) }

func (q *Query) SetForeground(h window.Handle) error {
	ret, _, err := procSetForegroundWindow.Call(uintptr(h))
	if ret == 0 {
		return errors.Wrap(err, "SetForegroundWindow")
	}
	return nil
}

func (q *Query) MoveWindow(h window.Handle, x, y, width, height int) error {
	ret, _, err := procMoveWindow.Call(uintptr(h), uintptr(x), uintptr(y), uintptr(width), uintptr(height), 1)
	if ret == 0 {
		return errors.Wrap(err, "MoveWindow")
	}
	return nil
}

func (q *Query) GetBounds(h window.Handle) (window.Rect, error) {
	var r rect
	ret, _, err := procGetWindowRect.Call(uintptr(h), uintptr(unsafe.Pointer(&r)))
	if ret == 0 {
		return window.Rect{}, errors.Wrap(err, "GetWindowRect")
	}
	return toRect(r), nil
}

// ScreenAtCursor returns the bounds of the monitor nearest to the cursor
func (q *Query) ScreenAtCursor() (window.Rect, error) {
	var p point
	ret, _, err := procGetCursorPos.Call(uintptr(unsafe.Pointer(&p)))
	if ret == 0 {
		return window.Rect{}, errors.Wrap(err, "GetCursorPos")
	}

	// POINT is passed by value: both coordinates packed in one argument
	packed := uintptr(uint32(p.X)) | uintptr(uint32(p.Y))<<32
	monitor, _, _ := procMonitorFromPoint.Call(packed, monitorDefaultToNearest)
	if monitor == 0 {
		return window.Rect{}, errors.New("no monitor at cursor")
	}

	info := monitorInfo{Size: uint32(unsafe.Sizeof(monitorInfo{}))}
	ret, _, err = procGetMonitorInfoW.Call(monitor, uintptr(unsafe.Pointer(&info)))
	if ret == 0 {
		return window.Rect{}, errors.Wrap(err, "GetMonitorInfoW")
	}
	return toRect(info.Monitor), nil
}

func toRect(r rect) window.Rect {
	return window.Rect{
		X:      int(r.Left),
		Y:      int(r.Top),
		Width:  int(r.Right - r.Left),
		Height: int(r.Bottom - r.Top),
	}
}

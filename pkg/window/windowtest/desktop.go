// Package windowtest provides an in-memory window.Query for tests
package windowtest

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/hotstart/hotstart/pkg/window"
)

type win struct {
	title     string
	visible   bool
	minimized bool
	bounds    window.Rect
}

// Desktop is a fake window system. Side effects are recorded by name
// ("show", "hide", "restore", "foreground", "move").
type Desktop struct {
	mu      sync.Mutex
	order   []window.Handle
	windows map[window.Handle]*win
	calls   []string
	screen  window.Rect
	hideErr error

	// OnEnumerate runs before every FindFirst/FindAll, outside the lock.
	// Set it before the desktop is shared.
	OnEnumerate func()
}

var (
	_ window.Query         = (*Desktop)(nil)
	_ window.ScreenLocator = (*Desktop)(nil)
)

func NewDesktop() *Desktop {
	return &Desktop{
		windows: make(map[window.Handle]*win),
		screen:  window.Rect{Width: 1920, Height: 1080},
	}
}

// Add opens a window
func (d *Desktop) Add(h window.Handle, title string, visible, minimized bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.windows[h]; !ok {
		d.order = append(d.order, h)
	}
	d.windows[h] = &win{
		title:     title,
		visible:   visible,
		minimized: minimized,
		bounds:    window.Rect{X: 10, Y: 10, Width: 800, Height: 600},
	}
}

// Remove closes a window
func (d *Desktop) Remove(h window.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.windows, h)
	for i, o := range d.order {
		if o == h {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// SetBounds moves h without recording a call
func (d *Desktop) SetBounds(h window.Handle, r window.Rect) {
	d.with(h, "", func(w *win) { w.bounds = r })
}

// SetScreen changes the rectangle returned by ScreenAtCursor
func (d *Desktop) SetScreen(r window.Rect) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.screen = r
}

// SetHideErr makes every later Hide fail with err, leaving the window as is
func (d *Desktop) SetHideErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hideErr = err
}

func (d *Desktop) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func (d *Desktop) Count(call string) int {
	n := 0
	for _, c := range d.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

func (d *Desktop) handles() []window.Handle {
	if d.OnEnumerate != nil {
		d.OnEnumerate()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]window.Handle(nil), d.order...)
}

func (d *Desktop) FindFirst(pred window.Predicate) window.Handle {
	for _, h := range d.handles() {
		if pred(h) {
			return h
		}
	}
	return window.None
}

func (d *Desktop) FindAll(pred window.Predicate) []window.Handle {
	var out []window.Handle
	for _, h := range d.handles() {
		if pred(h) {
			out = append(out, h)
		}
	}
	return out
}

func (d *Desktop) with(h window.Handle, call string, fn func(w *win)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if call != "" {
		d.calls = append(d.calls, call)
	}
	if w, ok := d.windows[h]; ok && fn != nil {
		fn(w)
	}
}

func (d *Desktop) IsVisible(h window.Handle) (v bool) {
	d.with(h, "", func(w *win) { v = w.visible })
	return v
}

func (d *Desktop) IsMinimized(h window.Handle) (m bool) {
	d.with(h, "", func(w *win) { m = w.minimized })
	return m
}

func (d *Desktop) GetText(h window.Handle) (t string) {
	d.with(h, "", func(w *win) { t = w.title })
	return t
}

func (d *Desktop) Show(h window.Handle) error {
	d.with(h, "show", func(w *win) { w.visible = true })
	return nil
}

func (d *Desktop) Hide(h window.Handle) (err error) {
	d.with(h, "hide", func(w *win) {
		if d.hideErr != nil {
			err = d.hideErr
			return
		}
		w.visible = false
	})
	return err
}

func (d *Desktop) Restore(h window.Handle) error {
	d.with(h, "restore", func(w *win) { w.minimized = false })
	return nil
}

func (d *Desktop) SetForeground(h window.Handle) error {
	d.with(h, "foreground", nil)
	return nil
}

func (d *Desktop) MoveWindow(h window.Handle, x, y, width, height int) error {
	d.with(h, "move", func(w *win) { w.bounds = window.Rect{X: x, Y: y, Width: width, Height: height} })
	return nil
}

func (d *Desktop) GetBounds(h window.Handle) (window.Rect, error) {
	var (
		r  window.Rect
		ok bool
	)
	d.with(h, "", func(w *win) { r, ok = w.bounds, true })
	if !ok {
		return window.Rect{}, errors.New("no such window")
	}
	return r, nil
}

func (d *Desktop) ScreenAtCursor() (window.Rect, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.screen, nil
}

func (d *Desktop) Name() string { return "fake" }
func (d *Desktop) Close() error { return nil }

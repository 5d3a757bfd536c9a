package preload

import "github.com/hotstart/hotstart/pkg/window"

// Classification is the state of an application's windows in one pass
type Classification int

const (
	NoMatch Classification = iota
	SingleVisibleMinimized
	HiddenMatch
)

func (c Classification) String() string {
	switch c {
	case SingleVisibleMinimized:
		return "single-visible-minimized"
	case HiddenMatch:
		return "hidden-match"
	default:
		return "no-match"
	}
}

// Finder locates application windows. It keeps no state between calls and
// makes no assumption about enumeration order.
type Finder struct {
	windows window.Query
}

// NewFinder creates a finder over the given window backend
func NewFinder(windows window.Query) *Finder {
	return &Finder{windows: windows}
}

// FindHidden returns the first window matching r that is not visible
func (f *Finder) FindHidden(r *Record) window.Handle {
	return f.windows.FindFirst(func(h window.Handle) bool {
		return h.IsValid() && !f.windows.IsVisible(h) && r.Matches(f.windows, h)
	})
}

// FindAllMatching returns every window matching r, visible or not
func (f *Finder) FindAllMatching(r *Record) []window.Handle {
	return f.windows.FindAll(func(h window.Handle) bool {
		return r.Matches(f.windows, h)
	})
}

// FindAny returns the first window matching r, visible or not
func (f *Finder) FindAny(r *Record) window.Handle {
	return f.windows.FindFirst(func(h window.Handle) bool {
		return r.Matches(f.windows, h)
	})
}

// Classify inspects the result of FindAllMatching. A lone minimized window
// that is still visible is reported as SingleVisibleMinimized; when there are
// siblings nothing is considered abandoned and the first hidden window, if
// any, wins.
func (f *Finder) Classify(handles []window.Handle) (Classification, window.Handle) {
	if len(handles) == 1 {
		h := handles[0]
		if f.windows.IsMinimized(h) && f.windows.IsVisible(h) {
			return SingleVisibleMinimized, h
		}
	}

	for _, h := range handles {
		if !f.windows.IsVisible(h) {
			return HiddenMatch, h
		}
	}

	return NoMatch, window.None
}

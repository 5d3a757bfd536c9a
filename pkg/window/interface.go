package window

// Handle is an opaque reference to a top-level window
type Handle uintptr

// None is the empty handle
const None Handle = 0

// IsValid reports whether h refers to a window
func (h Handle) IsValid() bool {
	return h != None
}

// Rect is a window or screen rectangle in screen coordinates
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Predicate selects windows during enumeration
type Predicate func(Handle) bool

// Query is the interface that all window backends must satisfy
type Query interface {
	// FindFirst returns the first open top-level window accepted by pred, or None
	FindFirst(pred Predicate) Handle

	// FindAll returns every open top-level window accepted by pred
	FindAll(pred Predicate) []Handle

	IsVisible(h Handle) bool
	IsMinimized(h Handle) bool

	// GetText returns the window title
	GetText(h Handle) string

	Show(h Handle) error
	Hide(h Handle) error
	Restore(h Handle) error
	SetForeground(h Handle) error
	MoveWindow(h Handle, x, y, width, height int) error

	// GetBounds returns the window rectangle in screen coordinates
	GetBounds(h Handle) (Rect, error)

	// Name returns the backend name ("x11" or "win32")
	Name() string

	// Close cleans up any resources used by the backend
	Close() error
}

// ScreenLocator is implemented by backends that can tell which screen the
// pointer is on.
type ScreenLocator interface {
	ScreenAtCursor() (Rect, error)
}

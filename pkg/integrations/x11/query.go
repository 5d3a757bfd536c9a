package x11

import (
	"encoding/binary"
	"strings"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/randr"
	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"

	"github.com/hotstart/hotstart/pkg/window"
)

const (
	// ICCCM WM_STATE values
	stateWithdrawn = 0
	stateNormal    = 1
	stateIconic    = 3

	// _NET_WM_STATE actions
	netWMStateRemove = 0

	maxTitleLen = 1024
)

var atomNames = []string{
	"_NET_ACTIVE_WINDOW",
	"_NET_WM_NAME",
	"_NET_WM_STATE",
	"_NET_WM_STATE_HIDDEN",
	"WM_NAME",
	"WM_STATE",
	"UTF8_STRING",
}

// Query implements window.Query on an X11 connection
type Query struct {
	conn     *xgb.Conn
	root     xproto.Window
	screen   window.Rect
	hasRandr bool
	atoms    map[string]xproto.Atom
}

var (
	_ window.Query         = (*Query)(nil)
	_ window.ScreenLocator = (*Query)(nil)
)

// New connects to the display named by $DISPLAY
func New() (*Query, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to X server")
	}

	screen := xproto.Setup(conn).DefaultScreen(conn)
	q := &Query{
		conn: conn,
		root: screen.Root,
		screen: window.Rect{
			Width:  int(screen.WidthInPixels),
			Height: int(screen.HeightInPixels),
		},
		atoms: make(map[string]xproto.Atom, len(atomNames)),
	}

	for _, name := range atomNames {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			conn.Close()
			return nil, errors.Wrapf(err, "failed to intern atom %s", name)
		}
		q.atoms[name] = reply.Atom
	}

	q.hasRandr = randr.Init(conn) == nil

	return q, nil
}

func (q *Query) Name() string {
	return "x11"
}

func (q *Query) Close() error {
	q.conn.Close()
	return nil
}

func handle(w xproto.Window) window.Handle {
	return window.Handle(w)
}

func xwin(h window.Handle) xproto.Window {
	return xproto.Window(h)
}

// clients lists top-level client windows in stacking order. With a
// reparenting window manager the client sits one level below a frame.
func (q *Query) clients() []xproto.Window {
	tree, err := xproto.QueryTree(q.conn, q.root).Reply()
	if err != nil {
		return nil
	}

	var out []xproto.Window
	for _, child := range tree.Children {
		if q.hasName(child) {
			out = append(out, child)
			continue
		}

		sub, err := xproto.QueryTree(q.conn, child).Reply()
		if err != nil {
			continue
		}
		for _, grandchild := range sub.Children {
			if q.hasName(grandchild) {
				out = append(out, grandchild)
				break
			}
		}
	}
	return out
}

func (q *Query) FindFirst(pred window.Predicate) window.Handle {
	for _, w := range q.clients() {
		if h := handle(w); pred(h) {
			return h
		}
	}
	return window.None
}

func (q *Query) FindAll(pred window.Predicate) []window.Handle {
	var out []window.Handle
	for _, w := range q.clients() {
		if h := handle(w); pred(h) {
			out = append(out, h)
		}
	}
	return out
}

func (q *Query) getProperty(w xproto.Window, atom, atomType xproto.Atom, length uint32) ([]byte, error) {
	reply, err := xproto.GetProperty(q.conn, false, w, atom, atomType, 0, length).Reply()
	if err != nil {
		return nil, err
	}
	return reply.Value, nil
}

func (q *Query) hasName(w xproto.Window) bool {
	data, _ := q.getProperty(w, q.atoms["_NET_WM_NAME"], q.atoms["UTF8_STRING"], 1)
	if len(data) > 0 {
		return true
	}
	data, _ = q.getProperty(w, q.atoms["WM_NAME"], xproto.AtomAny, 1)
	return len(data) > 0
}

func (q *Query) GetText(h window.Handle) string {
	w := xwin(h)
	data, err := q.getProperty(w, q.atoms["_NET_WM_NAME"], q.atoms["UTF8_STRING"], maxTitleLen/4)
	if err == nil && len(data) > 0 {
		return decodeTitle(data)
	}

	data, err = q.getProperty(w, q.atoms["WM_NAME"], xproto.AtomAny, maxTitleLen/4)
	if err == nil && len(data) > 0 {
		return decodeTitle(data)
	}
	return ""
}

func (q *Query) wmState(w xproto.Window) uint32 {
	data, err := q.getProperty(w, q.atoms["WM_STATE"], q.atoms["WM_STATE"], 2)
	if err != nil {
		return stateWithdrawn
	}
	return parseWMState(data)
}

func (q *Query) netStates(w xproto.Window) []xproto.Atom {
	data, err := q.getProperty(w, q.atoms["_NET_WM_STATE"], xproto.AtomAtom, 64)
	if err != nil {
		return nil
	}
	return parseAtoms(data)
}

// IsVisible is true for mapped windows and for minimized ones, which the
// window manager unmaps but still manages.
func (q *Query) IsVisible(h window.Handle) bool {
	attrs, err := xproto.GetWindowAttributes(q.conn, xwin(h)).Reply()
	if err != nil {
		return false
	}
	if attrs.MapState != xproto.MapStateUnmapped {
		return true
	}
	return q.wmState(xwin(h)) == stateIconic
}

func (q *Query) IsMinimized(h window.Handle) bool {
	w := xwin(h)
	if q.wmState(w) == stateIconic {
		return true
	}
	return containsAtom(q.netStates(w), q.atoms["_NET_WM_STATE_HIDDEN"])
}

func (q *Query) Show(h window.Handle) error {
	return errors.Wrap(xproto.MapWindowChecked(q.conn, xwin(h)).Check(), "map window")
}

// Hide withdraws the window: it is unmapped and, per ICCCM, a synthetic
// UnmapNotify tells the window manager to stop managing it even when it was
// iconified.
func (q *Query) Hide(h window.Handle) error {
	w := xwin(h)
	if err := xproto.UnmapWindowChecked(q.conn, w).Check(); err != nil {
		return errors.Wrap(err, "unmap window")
	}

	ev := xproto.UnmapNotifyEvent{Event: q.root, Window: w}
	mask := uint32(xproto.EventMaskSubstructureRedirect | xproto.EventMaskSubstructureNotify)
	return errors.Wrap(
		xproto.SendEventChecked(q.conn, false, q.root, mask, string(ev.Bytes())).Check(),
		"notify window manager")
}

func (q *Query) Restore(h window.Handle) error {
	w := xwin(h)
	if err := xproto.MapWindowChecked(q.conn, w).Check(); err != nil {
		return errors.Wrap(err, "map window")
	}
	return q.sendRootMessage(w, q.atoms["_NET_WM_STATE"],
		netWMStateRemove, uint32(q.atoms["_NET_WM_STATE_HIDDEN"]), 0, 1, 0)
}

func (q *Query) SetForeground(h window.Handle) error {
	// source indication 1: normal application
	return q.sendRootMessage(xwin(h), q.atoms["_NET_ACTIVE_WINDOW"], 1, xproto.TimeCurrentTime, 0, 0, 0)
}

func (q *Query) sendRootMessage(w xproto.Window, msgType xproto.Atom, data ...uint32) error {
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: w,
		Type:   msgType,
		Data:   xproto.ClientMessageDataUnionData32New(pad5(data)),
	}
	mask := uint32(xproto.EventMaskSubstructureRedirect | xproto.EventMaskSubstructureNotify)
	return errors.Wrap(
		xproto.SendEventChecked(q.conn, false, q.root, mask, string(ev.Bytes())).Check(),
		"send client message")
}

func (q *Query) MoveWindow(h window.Handle, x, y, width, height int) error {
	mask := uint16(xproto.ConfigWindowX | xproto.ConfigWindowY | xproto.ConfigWindowWidth | xproto.ConfigWindowHeight)
	values := []uint32{uint32(int32(x)), uint32(int32(y)), uint32(width), uint32(height)}
	return errors.Wrap(xproto.ConfigureWindowChecked(q.conn, xwin(h), mask, values).Check(), "configure window")
}

func (q *Query) GetBounds(h window.Handle) (window.Rect, error) {
	w := xwin(h)
	geom, err := xproto.GetGeometry(q.conn, xproto.Drawable(w)).Reply()
	if err != nil {
		return window.Rect{}, errors.Wrap(err, "get geometry")
	}

	pos, err := xproto.TranslateCoordinates(q.conn, w, q.root, 0, 0).Reply()
	if err != nil {
		return window.Rect{}, errors.Wrap(err, "translate coordinates")
	}

	return window.Rect{
		X:      int(pos.DstX),
		Y:      int(pos.DstY),
		Width:  int(geom.Width),
		Height: int(geom.Height),
	}, nil
}

// ScreenAtCursor returns the monitor under the pointer, or the whole root
// window when RandR is unavailable.
func (q *Query) ScreenAtCursor() (window.Rect, error) {
	pointer, err := xproto.QueryPointer(q.conn, q.root).Reply()
	if err != nil {
		return window.Rect{}, errors.Wrap(err, "query pointer")
	}

	return screenAt(q.monitors(), int(pointer.RootX), int(pointer.RootY), q.screen), nil
}

func (q *Query) monitors() []window.Rect {
	if !q.hasRandr {
		return nil
	}

	res, err := randr.GetScreenResources(q.conn, q.root).Reply()
	if err != nil {
		return nil
	}

	var out []window.Rect
	for _, crtc := range res.Crtcs {
		info, err := randr.GetCrtcInfo(q.conn, crtc, res.ConfigTimestamp).Reply()
		if err != nil || info.Width == 0 || info.Height == 0 {
			continue
		}
		out = append(out, window.Rect{
			X:      int(info.X),
			Y:      int(info.Y),
			Width:  int(info.Width),
			Height: int(info.Height),
		})
	}
	return out
}

func decodeTitle(data []byte) string {
	return strings.TrimRight(string(data), "\x00")
}

func parseWMState(data []byte) uint32 {
	if len(data) < 4 {
		return stateWithdrawn
	}
	return binary.LittleEndian.Uint32(data)
}

func parseAtoms(data []byte) []xproto.Atom {
	out := make([]xproto.Atom, 0, len(data)/4)
	for i := 0; i+4 <= len(data); i += 4 {
		out = append(out, xproto.Atom(binary.LittleEndian.Uint32(data[i:])))
	}
	return out
}

func containsAtom(atoms []xproto.Atom, a xproto.Atom) bool {
	for _, x := range atoms {
		if x == a {
			return true
		}
	}
	return false
}

func pad5(data []uint32) []uint32 {
	out := make([]uint32, 5)
	copy(out, data)
	return out
}

// screenAt picks the monitor containing (x, y), falling back to the first
// monitor and then to root.
func screenAt(monitors []window.Rect, x, y int, root window.Rect) window.Rect {
	for _, m := range monitors {
		if x >= m.X && x < m.X+m.Width && y >= m.Y && y < m.Y+m.Height {
			return m
		}
	}
	if len(monitors) > 0 {
		return monitors[0]
	}
	return root
}

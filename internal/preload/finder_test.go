package preload

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hotstart/hotstart/pkg/window"
	"github.com/hotstart/hotstart/pkg/window/windowtest"
)

func TestFindHidden(t *testing.T) {
	d := windowtest.NewDesktop()
	d.Add(1, "Terminal", false, false)
	d.Add(2, "Untitled - Notepad", true, false)
	d.Add(3, "todo.txt - Notepad", false, false)
	d.Add(4, "other.txt - Notepad", false, false)

	f := NewFinder(d)
	assert.Equal(t, window.Handle(3), f.FindHidden(notepadRecord()))
}

func TestFindHiddenNone(t *testing.T) {
	d := windowtest.NewDesktop()
	d.Add(2, "Untitled - Notepad", true, false)

	f := NewFinder(d)
	assert.Equal(t, window.None, f.FindHidden(notepadRecord()))
}

func TestFindAllMatchingAndAny(t *testing.T) {
	d := windowtest.NewDesktop()
	d.Add(5, "a - Notepad", false, false)
	d.Add(6, "Browser", true, false)
	d.Add(7, "b - Notepad", true, true)

	f := NewFinder(d)
	r := notepadRecord()
	assert.ElementsMatch(t, []window.Handle{5, 7}, f.FindAllMatching(r))
	assert.Equal(t, window.Handle(5), f.FindAny(r))
}

type windowState struct {
	visible   bool
	minimized bool
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		windows []windowState
		want    Classification
		handle  window.Handle
	}{
		{
			name: "no windows",
			want: NoMatch,
		},
		{
			name:    "single visible minimized",
			windows: []windowState{{visible: true, minimized: true}},
			want:    SingleVisibleMinimized,
			handle:  1,
		},
		{
			name:    "single visible not minimized",
			windows: []windowState{{visible: true}},
			want:    NoMatch,
		},
		{
			name:    "single hidden",
			windows: []windowState{{visible: false}},
			want:    HiddenMatch,
			handle:  1,
		},
		{
			name:    "two windows one minimized",
			windows: []windowState{{visible: true, minimized: true}, {visible: true}},
			want:    NoMatch,
		},
		{
			name:    "two windows second hidden",
			windows: []windowState{{visible: true, minimized: true}, {visible: false}},
			want:    HiddenMatch,
			handle:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := windowtest.NewDesktop()
			var handles []window.Handle
			for i, w := range tt.windows {
				h := window.Handle(i + 1)
				d.Add(h, "x - Notepad", w.visible, w.minimized)
				handles = append(handles, h)
			}

			class, h := NewFinder(d).Classify(handles)
			assert.Equal(t, tt.want, class)
			assert.Equal(t, tt.handle, h)
		})
	}
}

func TestClassificationString(t *testing.T) {
	assert.Equal(t, "no-match", NoMatch.String())
	assert.Equal(t, "single-visible-minimized", SingleVisibleMinimized.String())
	assert.Equal(t, "hidden-match", HiddenMatch.String())
}

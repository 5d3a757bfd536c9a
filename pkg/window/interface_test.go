package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type MockQuery struct {
	windows []Handle
	titles  map[Handle]string
	hidden  map[Handle]bool
}

func (m *MockQuery) FindFirst(pred Predicate) Handle {
	for _, h := range m.windows {
		if pred(h) {
			return h
		}
	}
	return None
}

func (m *MockQuery) FindAll(pred Predicate) []Handle {
	var out []Handle
	for _, h := range m.windows {
		if pred(h) {
			out = append(out, h)
		}
	}
	return out
}

func (m *MockQuery) IsVisible(h Handle) bool   { return !m.hidden[h] }
func (m *MockQuery) IsMinimized(h Handle) bool { return false }
func (m *MockQuery) GetText(h Handle) string   { return m.titles[h] }
func (m *MockQuery) Show(h Handle) error       { m.hidden[h] = false; return nil }
func (m *MockQuery) Hide(h Handle) error       { m.hidden[h] = true; return nil }
func (m *MockQuery) Restore(h Handle) error    { return nil }
func (m *MockQuery) SetForeground(Handle) error {
	return nil
}
func (m *MockQuery) MoveWindow(Handle, int, int, int, int) error { return nil }
func (m *MockQuery) GetBounds(Handle) (Rect, error)              { return Rect{}, nil }
func (m *MockQuery) Name() string                                { return "mock" }
func (m *MockQuery) Close() error                                { return nil }

func TestMockQuery(t *testing.T) {
	var _ Query = (*MockQuery)(nil)

	mock := &MockQuery{
		windows: []Handle{10, 20, 30},
		titles:  map[Handle]string{10: "Terminal", 20: "Untitled - Notepad", 30: "notes.txt - Notepad"},
		hidden:  map[Handle]bool{30: true},
	}

	isNotepad := func(h Handle) bool {
		return len(mock.GetText(h)) > 8 && mock.GetText(h)[len(mock.GetText(h))-7:] == "Notepad"
	}

	assert.Equal(t, Handle(20), mock.FindFirst(isNotepad))
	assert.Equal(t, []Handle{20, 30}, mock.FindAll(isNotepad))
	assert.Equal(t, None, mock.FindFirst(func(Handle) bool { return false }))

	hiddenNotepad := mock.FindFirst(func(h Handle) bool { return isNotepad(h) && !mock.IsVisible(h) })
	assert.Equal(t, Handle(30), hiddenNotepad)

	assert.NoError(t, mock.Show(30))
	assert.True(t, mock.IsVisible(30))
}

func TestHandleIsValid(t *testing.T) {
	tests := []struct {
		name   string
		handle Handle
		want   bool
	}{
		{"none", None, false},
		{"zero literal", Handle(0), false},
		{"window", Handle(0x3a00007), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.handle.IsValid())
		})
	}
}

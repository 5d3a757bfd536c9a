package preload

import (
	"sync"
	"time"
)

// eventLog collects observer events
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) Observe(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) kinds() []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventKind, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Kind)
	}
	return out
}

func (l *eventLog) has(kind EventKind) bool {
	for _, k := range l.kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

func testOptions() Options {
	return Options{
		PreloadTimeout:   100 * time.Millisecond,
		FindInterval:     time.Millisecond,
		HideInterval:     5 * time.Millisecond,
		InputIdleTimeout: 0,
		IdleThreshold:    1,
	}
}

func notepadRecord() *Record {
	return &Record{
		Name:           "Notepad",
		ConfigName:     "notepad",
		ExecutablePath: "notepad.exe",
		Enabled:        true,
		Matcher:        MustRegexMatcher("Notepad$"),
	}
}

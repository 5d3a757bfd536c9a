package preload

import (
	"time"

	"github.com/hotstart/hotstart/pkg/window"
)

// EventKind identifies what the controller did
type EventKind string

const (
	EventPassStarted     EventKind = "pass_started"
	EventPassCompleted   EventKind = "pass_completed"
	EventPassDropped     EventKind = "pass_dropped"
	EventAbandonedHidden EventKind = "abandoned_hidden"
	EventLaunched        EventKind = "launched"
	EventLaunchFailed    EventKind = "launch_failed"
	EventCaptured        EventKind = "captured"
	EventTimedOut        EventKind = "timed_out"
	EventCheckFailed     EventKind = "check_failed"
	EventActivated       EventKind = "activated"
)

// Event describes one controller action. App is empty for pass-level events.
type Event struct {
	Kind     EventKind
	PassID   string
	App      string
	Handle   window.Handle
	Duration time.Duration
	Err      error
	Time     time.Time
}

// Observer receives controller events. Observe is called synchronously on
// the goroutine that produced the event and must not block for long.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

type multiObserver []Observer

func (m multiObserver) Observe(e Event) {
	for _, o := range m {
		o.Observe(e)
	}
}

// Observers fans events out to every non-nil observer
func Observers(obs ...Observer) Observer {
	out := make(multiObserver, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

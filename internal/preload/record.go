package preload

import (
	"sync"
	"time"

	"github.com/hotstart/hotstart/pkg/window"
)

// Record is one configured, monitored application together with its live
// hot-instance state.
type Record struct {
	Name           string
	ConfigName     string
	ExecutablePath string
	LaunchArgs     []string
	Enabled        bool
	Matcher        Matcher
	AutoPreload    bool
	HidingDuration time.Duration

	mu               sync.Mutex
	idleCount        int
	preloaded        window.Handle
	onCaptureChanged func(*Record)
}

// Matches reports whether the window text of h satisfies the record's matcher
func (r *Record) Matches(q window.Query, h window.Handle) bool {
	if !h.IsValid() || r.Matcher == nil {
		return false
	}
	return r.Matcher.Match(q.GetText(h))
}

// Preloaded returns the currently captured hot instance, or window.None
func (r *Record) Preloaded() window.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.preloaded
}

// SetPreloaded stores h and always fires the capture-changed callback, even
// when h equals the current value. Listeners rely on repeated firing to
// refresh their display.
func (r *Record) SetPreloaded(h window.Handle) {
	r.mu.Lock()
	r.preloaded = h
	cb := r.onCaptureChanged
	r.mu.Unlock()

	if cb != nil {
		cb(r)
	}
}

// Captured reports whether a hot instance is currently held
func (r *Record) Captured() bool {
	return r.Preloaded().IsValid()
}

// OnCaptureChanged installs the callback fired on every SetPreloaded
func (r *Record) OnCaptureChanged(fn func(*Record)) {
	r.mu.Lock()
	r.onCaptureChanged = fn
	r.mu.Unlock()
}

// IdleCount returns the number of consecutive passes without a hot instance
func (r *Record) IdleCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.idleCount
}

// observeIdle updates the idle counter for one pass and returns the new value
func (r *Record) observeIdle(found bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if found {
		r.idleCount = 0
	} else {
		r.idleCount++
	}
	return r.idleCount
}

// Adopt carries the live state of prev over to r. It is used when a config
// reload replaces a record that may already hold a hot instance. The callback
// is not fired; the caller rebinds listeners afterwards.
func (r *Record) Adopt(prev *Record) {
	if prev == nil || prev == r {
		return
	}

	prev.mu.Lock()
	handle, idle := prev.preloaded, prev.idleCount
	prev.mu.Unlock()

	r.mu.Lock()
	r.preloaded = handle
	r.idleCount = idle
	r.mu.Unlock()
}

// Snapshot is a copy of a record's state suitable for reporting
type Snapshot struct {
	Name        string        `json:"name"`
	ConfigName  string        `json:"config_name"`
	Executable  string        `json:"executable"`
	Enabled     bool          `json:"enabled"`
	AutoPreload bool          `json:"auto_preload"`
	Pattern     string        `json:"window_pattern"`
	Captured    bool          `json:"captured"`
	Handle      window.Handle `json:"handle"`
	IdleCount   int           `json:"idle_count"`
}

// Snapshot returns the record's current state
func (r *Record) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	pattern := ""
	if r.Matcher != nil {
		pattern = r.Matcher.String()
	}

	return Snapshot{
		Name:        r.Name,
		ConfigName:  r.ConfigName,
		Executable:  r.ExecutablePath,
		Enabled:     r.Enabled,
		AutoPreload: r.AutoPreload,
		Pattern:     pattern,
		Captured:    r.preloaded.IsValid(),
		Handle:      r.preloaded,
		IdleCount:   r.idleCount,
	}
}

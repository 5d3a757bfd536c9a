package preload

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotstart/hotstart/pkg/process"
	"github.com/hotstart/hotstart/pkg/process/processtest"
	"github.com/hotstart/hotstart/pkg/window"
	"github.com/hotstart/hotstart/pkg/window/windowtest"
)

func newTestController(d *windowtest.Desktop, l *processtest.Launcher, obs Observer) *Controller {
	return NewController(d, l, testOptions(), nil, obs)
}

func TestCheckAppDisabledHasNoSideEffects(t *testing.T) {
	d := windowtest.NewDesktop()
	d.Add(1, "Untitled - Notepad", true, true)
	l := &processtest.Launcher{}
	c := newTestController(d, l, nil)

	r := notepadRecord()
	r.Enabled = false
	r.AutoPreload = true
	fired := 0
	r.OnCaptureChanged(func(*Record) { fired++ })

	for i := 0; i < 3; i++ {
		require.NoError(t, c.CheckApp(context.Background(), r))
	}

	assert.Empty(t, d.Calls())
	assert.Zero(t, l.Count())
	assert.Zero(t, fired)
	assert.Zero(t, r.IdleCount())
}

func TestReconcileAllSkipsDisabledRecords(t *testing.T) {
	d := windowtest.NewDesktop()
	d.Add(1, "Untitled - Notepad", true, true)
	c := newTestController(d, &processtest.Launcher{}, nil)

	r := notepadRecord()
	r.Enabled = false

	assert.True(t, c.ReconcileAll(context.Background(), []*Record{r, nil}))
	assert.Empty(t, d.Calls())
}

func TestNotepadScenarioWithoutAutoPreload(t *testing.T) {
	d := windowtest.NewDesktop()
	d.Add(0x10, "Untitled - Notepad", false, false)
	c := newTestController(d, &processtest.Launcher{}, nil)

	r := notepadRecord()
	require.NoError(t, c.CheckApp(context.Background(), r))

	assert.Equal(t, window.Handle(0x10), r.Preloaded())
	assert.Equal(t, 0, r.IdleCount())
	assert.Empty(t, d.Calls())
}

func TestIdleThresholdTriggersOnSecondPass(t *testing.T) {
	d := windowtest.NewDesktop()
	l := &processtest.Launcher{}
	log := &eventLog{}
	c := newTestController(d, l, log)

	r := notepadRecord()
	r.AutoPreload = true
	records := []*Record{r}

	require.True(t, c.ReconcileAll(context.Background(), records))
	assert.Equal(t, 1, r.IdleCount())
	assert.Zero(t, l.Count(), "must not preload on the first idle pass")

	require.True(t, c.ReconcileAll(context.Background(), records))
	assert.Equal(t, 2, r.IdleCount())
	assert.Equal(t, 1, l.Count(), "preload on the second idle pass")
	assert.True(t, log.has(EventTimedOut))
}

func TestIdleCountResetsWhenHotInstanceFound(t *testing.T) {
	d := windowtest.NewDesktop()
	c := newTestController(d, &processtest.Launcher{}, nil)

	r := notepadRecord()
	r.AutoPreload = true

	require.NoError(t, c.CheckApp(context.Background(), r))
	assert.Equal(t, 1, r.IdleCount())

	d.Add(3, "x - Notepad", false, false)
	require.NoError(t, c.CheckApp(context.Background(), r))
	assert.Equal(t, 0, r.IdleCount())
	assert.Equal(t, window.Handle(3), r.Preloaded())
}

func TestEnsurePreloadedSkipsWhenVisibleWindowExists(t *testing.T) {
	d := windowtest.NewDesktop()
	d.Add(1, "Untitled - Notepad", true, false)
	l := &processtest.Launcher{}
	c := newTestController(d, l, nil)

	r := notepadRecord()
	r.AutoPreload = true

	for i := 0; i < 3; i++ {
		require.NoError(t, c.CheckApp(context.Background(), r))
	}

	assert.Equal(t, 3, r.IdleCount())
	assert.Zero(t, l.Count())
}

func TestAbandonedMinimizedWindowIsHidden(t *testing.T) {
	d := windowtest.NewDesktop()
	d.Add(1, "Terminal", true, true)
	d.Add(2, "Untitled - Notepad", true, true)
	log := &eventLog{}
	c := newTestController(d, &processtest.Launcher{}, log)

	r := notepadRecord()
	require.NoError(t, c.CheckApp(context.Background(), r))

	assert.Equal(t, 1, d.Count("hide"))
	assert.False(t, d.IsVisible(2))
	assert.Equal(t, window.Handle(2), r.Preloaded(), "reclaimed window becomes the hot instance")
	assert.True(t, log.has(EventAbandonedHidden))
}

func TestAmbiguousMinimizedWindowsAreLeftAlone(t *testing.T) {
	d := windowtest.NewDesktop()
	d.Add(1, "a - Notepad", true, true)
	d.Add(2, "b - Notepad", true, false)
	c := newTestController(d, &processtest.Launcher{}, nil)

	require.NoError(t, c.CheckApp(context.Background(), notepadRecord()))
	assert.Zero(t, d.Count("hide"))
}

func TestHideFailureDoesNotAbortCheck(t *testing.T) {
	d := windowtest.NewDesktop()
	d.Add(1, "a - Notepad", true, true)
	d.SetHideErr(errors.New("access denied"))
	c := newTestController(d, &processtest.Launcher{}, nil)

	r := notepadRecord()
	r.AutoPreload = true
	fired := 0
	r.OnCaptureChanged(func(*Record) { fired++ })

	require.NoError(t, c.CheckApp(context.Background(), r))
	assert.Equal(t, 1, fired)
	assert.Equal(t, 1, r.IdleCount())
}

func TestFindHotInstanceIsIdempotentAndAlwaysNotifies(t *testing.T) {
	d := windowtest.NewDesktop()
	d.Add(8, "notes - Notepad", false, false)
	c := newTestController(d, &processtest.Launcher{}, nil)

	r := notepadRecord()
	fired := 0
	r.OnCaptureChanged(func(*Record) { fired++ })

	first := c.FindHotInstance(r)
	second := c.FindHotInstance(r)

	assert.Equal(t, window.Handle(8), first)
	assert.Equal(t, first, second)
	assert.Equal(t, 2, fired)
}

func TestFindHotInstanceClearsWhenNothingFound(t *testing.T) {
	d := windowtest.NewDesktop()
	c := newTestController(d, &processtest.Launcher{}, nil)

	r := notepadRecord()
	r.SetPreloaded(5)

	assert.Equal(t, window.None, c.FindHotInstance(r))
	assert.False(t, r.Captured())
}

func TestStartAndHideTimesOutQuietly(t *testing.T) {
	d := windowtest.NewDesktop()
	l := &processtest.Launcher{}
	log := &eventLog{}
	c := newTestController(d, l, log)

	r := notepadRecord()
	r.SetPreloaded(77)

	start := time.Now()
	err := c.StartAndHide(context.Background(), r)

	require.NoError(t, err)
	assert.Equal(t, window.None, r.Preloaded())
	assert.GreaterOrEqual(t, time.Since(start), testOptions().PreloadTimeout)
	assert.Equal(t, 1, l.Count())
	assert.True(t, log.has(EventTimedOut))
	assert.False(t, log.has(EventCaptured))
}

func TestStartAndHideCapturesAndHidesRepeatedly(t *testing.T) {
	d := windowtest.NewDesktop()
	l := &processtest.Launcher{}
	l.OnLaunch = func(string, []string) { d.Add(0x42, "Untitled - Notepad", true, false) }
	log := &eventLog{}
	c := newTestController(d, l, log)

	r := notepadRecord()
	r.LaunchArgs = []string{"--new-window"}
	r.HidingDuration = 20 * time.Millisecond

	var visibleAtCapture []bool
	r.OnCaptureChanged(func(rec *Record) {
		if h := rec.Preloaded(); h.IsValid() {
			visibleAtCapture = append(visibleAtCapture, d.IsVisible(h))
		}
	})

	require.NoError(t, c.StartAndHide(context.Background(), r))

	assert.Equal(t, window.Handle(0x42), r.Preloaded())
	assert.False(t, d.IsVisible(0x42))
	assert.Equal(t, 1+4, d.Count("hide"))
	assert.Equal(t, []string{"notepad.exe", "--new-window"}, l.Last())
	assert.Equal(t, []bool{true}, visibleAtCapture, "capture is announced before the first hide")
	assert.True(t, log.has(EventLaunched))
	assert.True(t, log.has(EventCaptured))
}

func TestStartAndHidePollsFullTimeoutAfterInputIdle(t *testing.T) {
	opts := testOptions()
	d := windowtest.NewDesktop()
	l := &processtest.Launcher{}
	l.OnInputIdle = func(*process.Process, time.Duration) error {
		time.Sleep(opts.PreloadTimeout * 8 / 10)
		go func() {
			time.Sleep(opts.PreloadTimeout / 2)
			d.Add(0x51, "slow - Notepad", true, false)
		}()
		return nil
	}
	log := &eventLog{}
	c := NewController(d, l, opts, nil, log)

	r := notepadRecord()
	require.NoError(t, c.StartAndHide(context.Background(), r))

	assert.Equal(t, window.Handle(0x51), r.Preloaded(), "window appeared within the poll budget")
	assert.True(t, log.has(EventCaptured))
	assert.False(t, log.has(EventTimedOut))
}

func TestStartAndHideLaunchFailure(t *testing.T) {
	d := windowtest.NewDesktop()
	l := &processtest.Launcher{Err: errors.New("file not found")}
	log := &eventLog{}
	c := newTestController(d, l, log)

	r := notepadRecord()
	err := c.StartAndHide(context.Background(), r)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "file not found")
	assert.Equal(t, window.None, r.Preloaded())
	assert.True(t, log.has(EventLaunchFailed))
}

func TestStartAndHideStopsOnCancel(t *testing.T) {
	d := windowtest.NewDesktop()
	c := NewController(d, &processtest.Launcher{}, Options{
		PreloadTimeout: time.Minute,
		FindInterval:   time.Millisecond,
		HideInterval:   time.Millisecond,
	}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	done := make(chan error, 1)
	go func() { done <- c.StartAndHide(ctx, notepadRecord()) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("StartAndHide ignored cancellation")
	}
}

func TestReconcileAllSwallowsFailures(t *testing.T) {
	d := windowtest.NewDesktop()
	l := &processtest.Launcher{Err: errors.New("boom")}
	log := &eventLog{}
	c := newTestController(d, l, log)

	failing := notepadRecord()
	failing.AutoPreload = true

	other := &Record{
		Name:    "Editor",
		Enabled: true,
		Matcher: MustRegexMatcher("Editor$"),
	}
	d.Add(9, "main.go - Editor", false, false)

	records := []*Record{failing, other}
	assert.True(t, c.ReconcileAll(context.Background(), records))
	assert.True(t, c.ReconcileAll(context.Background(), records))

	assert.True(t, log.has(EventCheckFailed))
	assert.Equal(t, window.Handle(9), other.Preloaded())
	assert.False(t, c.InFlight())
}

type panicMatcher struct{}

func (panicMatcher) Match(string) bool { panic("bad matcher") }
func (panicMatcher) String() string    { return "panic" }

func TestReconcileAllIsolatesPanics(t *testing.T) {
	d := windowtest.NewDesktop()
	d.Add(1, "x - Notepad", false, false)
	log := &eventLog{}
	c := newTestController(d, &processtest.Launcher{}, log)

	bad := &Record{Name: "Bad", Enabled: true, Matcher: panicMatcher{}}
	good := notepadRecord()

	assert.NotPanics(t, func() {
		c.ReconcileAll(context.Background(), []*Record{bad, good})
	})
	assert.Equal(t, window.Handle(1), good.Preloaded())
	assert.True(t, log.has(EventCheckFailed))
	assert.False(t, c.InFlight())
}

// brokenEnumeration panics when listing every window of an app
type brokenEnumeration struct {
	*windowtest.Desktop
}

func (brokenEnumeration) FindAll(window.Predicate) []window.Handle {
	panic("enumeration failed")
}

func TestCheckAppContinuesAfterReclaimPanic(t *testing.T) {
	d := windowtest.NewDesktop()
	d.Add(3, "x - Notepad", false, false)
	log := &eventLog{}
	c := NewController(brokenEnumeration{d}, &processtest.Launcher{}, testOptions(), nil, log)

	r := notepadRecord()
	r.AutoPreload = true

	require.NoError(t, c.CheckApp(context.Background(), r))
	assert.Equal(t, window.Handle(3), r.Preloaded())
	assert.Equal(t, 0, r.IdleCount())
	assert.True(t, log.has(EventCheckFailed))
}

func TestReconcileAllSingleFlight(t *testing.T) {
	d := windowtest.NewDesktop()
	d.Add(1, "x - Notepad", false, false)

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	d.OnEnumerate = func() {
		once.Do(func() {
			close(entered)
			<-release
		})
	}

	log := &eventLog{}
	c := newTestController(d, &processtest.Launcher{}, log)
	r := notepadRecord()
	fired := 0
	var mu sync.Mutex
	r.OnCaptureChanged(func(*Record) {
		mu.Lock()
		fired++
		mu.Unlock()
	})
	records := []*Record{r}

	firstDone := make(chan bool)
	go func() { firstDone <- c.ReconcileAll(context.Background(), records) }()

	<-entered
	assert.True(t, c.InFlight())
	assert.False(t, c.ReconcileAll(context.Background(), records), "second pass must be dropped")
	assert.False(t, c.StartReconcile(context.Background(), records), "background pass must be dropped")

	close(release)
	assert.True(t, <-firstDone)

	mu.Lock()
	assert.Equal(t, 1, fired, "only one pass ran")
	mu.Unlock()
	assert.False(t, c.InFlight())

	dropped := 0
	for _, k := range log.kinds() {
		if k == EventPassDropped {
			dropped++
		}
	}
	assert.Equal(t, 2, dropped)
}

func TestStartReconcileRunsInBackground(t *testing.T) {
	d := windowtest.NewDesktop()
	d.Add(4, "x - Notepad", false, false)
	c := newTestController(d, &processtest.Launcher{}, nil)

	r := notepadRecord()
	require.True(t, c.StartReconcile(context.Background(), []*Record{r}))
	c.Wait()

	assert.Equal(t, window.Handle(4), r.Preloaded())
	assert.False(t, c.InFlight())
	assert.True(t, c.StartReconcile(context.Background(), []*Record{r}))
	c.Wait()
}

func TestPassEventsShareID(t *testing.T) {
	d := windowtest.NewDesktop()
	log := &eventLog{}
	c := newTestController(d, &processtest.Launcher{}, log)

	c.ReconcileAll(context.Background(), []*Record{notepadRecord()})

	require.Len(t, log.events, 2)
	assert.Equal(t, EventPassStarted, log.events[0].Kind)
	assert.Equal(t, EventPassCompleted, log.events[1].Kind)
	assert.NotEmpty(t, log.events[0].PassID)
	assert.Equal(t, log.events[0].PassID, log.events[1].PassID)
}

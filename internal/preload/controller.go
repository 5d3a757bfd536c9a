package preload

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/hotstart/hotstart/pkg/process"
	"github.com/hotstart/hotstart/pkg/window"
)

// Options tunes the controller's timing
type Options struct {
	// PreloadTimeout bounds the wait for a launched app's window to appear
	PreloadTimeout time.Duration
	// FindInterval is the pause between window lookups while waiting
	FindInterval time.Duration
	// HideInterval is the pause between repeated hide calls after launch
	HideInterval time.Duration
	// InputIdleTimeout bounds the wait for a launched process to go idle
	InputIdleTimeout time.Duration
	// IdleThreshold is the idle count that must be exceeded before preloading
	IdleThreshold int
}

// DefaultOptions returns the standard timings
func DefaultOptions() Options {
	return Options{
		PreloadTimeout:   10 * time.Second,
		FindInterval:     20 * time.Millisecond,
		HideInterval:     50 * time.Millisecond,
		InputIdleTimeout: 5 * time.Second,
		IdleThreshold:    1,
	}
}

// Controller drives hot-instance reconciliation. At most one automatic
// pass runs at a time; user actions bypass that guard.
type Controller struct {
	windows  window.Query
	launcher process.Launcher
	finder   *Finder
	opts     Options
	logger   *zap.Logger
	observer Observer

	inFlight atomic.Bool
	wg       sync.WaitGroup
}

// NewController creates a controller. observer may be nil.
func NewController(windows window.Query, launcher process.Launcher, opts Options, logger *zap.Logger, observer Observer) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if observer == nil {
		observer = Observers()
	}
	return &Controller{
		windows:  windows,
		launcher: launcher,
		finder:   NewFinder(windows),
		opts:     opts,
		logger:   logger,
		observer: observer,
	}
}

// Finder returns the controller's window finder
func (c *Controller) Finder() *Finder {
	return c.finder
}

// Backend returns the name of the window backend
func (c *Controller) Backend() string {
	return c.windows.Name()
}

// InFlight reports whether a reconciliation pass is running
func (c *Controller) InFlight() bool {
	return c.inFlight.Load()
}

// ReconcileAll runs one pass over records on the calling goroutine. It
// returns false without touching anything when a pass is already running.
func (c *Controller) ReconcileAll(ctx context.Context, records []*Record) bool {
	if !c.inFlight.CompareAndSwap(false, true) {
		c.emit(Event{Kind: EventPassDropped})
		return false
	}
	defer c.inFlight.Store(false)

	c.reconcile(ctx, records)
	return true
}

// StartReconcile is ReconcileAll on a background goroutine. The caller is
// never blocked; a call made while a pass is running is dropped.
func (c *Controller) StartReconcile(ctx context.Context, records []*Record) bool {
	if !c.inFlight.CompareAndSwap(false, true) {
		c.emit(Event{Kind: EventPassDropped})
		return false
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.inFlight.Store(false)
		c.reconcile(ctx, records)
	}()
	return true
}

// Wait blocks until a background pass started by StartReconcile finishes
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) reconcile(ctx context.Context, records []*Record) {
	passID := uuid.NewString()
	start := time.Now()
	c.emit(Event{Kind: EventPassStarted, PassID: passID})

	for _, r := range records {
		if ctx.Err() != nil {
			break
		}
		if r == nil || !r.Enabled {
			continue
		}
		if err := c.checkIsolated(ctx, passID, r); err != nil {
			c.logger.Debug("Check failed",
				zap.String("app", r.Name),
				zap.String("pass", passID),
				zap.Error(err))
			c.emit(Event{Kind: EventCheckFailed, PassID: passID, App: r.Name, Err: err})
		}
	}

	c.emit(Event{Kind: EventPassCompleted, PassID: passID, Duration: time.Since(start)})
}

// checkIsolated keeps a panic in one app's check from reaching the others
func (c *Controller) checkIsolated(ctx context.Context, passID string, r *Record) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Errorf("panic while checking %s: %v", r.Name, p)
		}
	}()
	return c.checkApp(ctx, passID, r)
}

// CheckApp reconciles a single record: reclaims an abandoned minimized
// window, looks for a hot instance and preloads after repeated idle passes.
func (c *Controller) CheckApp(ctx context.Context, r *Record) error {
	return c.checkApp(ctx, "", r)
}

func (c *Controller) checkApp(ctx context.Context, passID string, r *Record) error {
	if !r.Enabled {
		return nil
	}

	c.reclaimAbandoned(passID, r)

	found := c.finder.FindHidden(r)
	r.SetPreloaded(found)

	if !r.AutoPreload {
		return nil
	}

	if idle := r.observeIdle(found.IsValid()); idle > c.opts.IdleThreshold {
		return c.ensurePreloaded(ctx, passID, r)
	}
	return nil
}

// reclaimAbandoned runs hideAbandonedMinimized so that a failing backend
// does not stop the hot-instance lookup that follows.
func (c *Controller) reclaimAbandoned(passID string, r *Record) {
	defer func() {
		if p := recover(); p != nil {
			err := errors.Errorf("panic while reclaiming %s: %v", r.Name, p)
			c.logger.Debug("Abandoned window check failed",
				zap.String("app", r.Name),
				zap.Error(err))
			c.emit(Event{Kind: EventCheckFailed, PassID: passID, App: r.Name, Err: err})
		}
	}()
	c.hideAbandonedMinimized(passID, r)
}

func (c *Controller) hideAbandonedMinimized(passID string, r *Record) {
	class, h := c.finder.Classify(c.finder.FindAllMatching(r))
	if class != SingleVisibleMinimized {
		return
	}

	if err := c.windows.Hide(h); err != nil {
		c.logger.Debug("Failed to hide abandoned window",
			zap.String("app", r.Name),
			zap.Uintptr("handle", uintptr(h)),
			zap.Error(err))
		return
	}
	c.emit(Event{Kind: EventAbandonedHidden, PassID: passID, App: r.Name, Handle: h})
}

// EnsurePreloaded starts and hides a new instance when no window of the app
// exists at all, visible or not.
func (c *Controller) EnsurePreloaded(ctx context.Context, r *Record) error {
	return c.ensurePreloaded(ctx, "", r)
}

func (c *Controller) ensurePreloaded(ctx context.Context, passID string, r *Record) error {
	if c.finder.FindAny(r).IsValid() {
		return nil
	}
	return c.startAndHide(ctx, passID, r)
}

// StartAndHide launches the app and hides its window as soon as it shows
// up. Not finding a window within PreloadTimeout is not an error: the next
// pass retries.
func (c *Controller) StartAndHide(ctx context.Context, r *Record) error {
	return c.startAndHide(ctx, "", r)
}

func (c *Controller) startAndHide(ctx context.Context, passID string, r *Record) error {
	r.SetPreloaded(window.None)

	start := time.Now()
	proc, err := c.launcher.Launch(r.ExecutablePath, r.LaunchArgs)
	if err != nil {
		c.emit(Event{Kind: EventLaunchFailed, PassID: passID, App: r.Name, Err: err})
		return errors.Wrapf(err, "failed to preload %s", r.Name)
	}
	c.emit(Event{Kind: EventLaunched, PassID: passID, App: r.Name})

	if err := c.launcher.WaitForInputIdle(proc, c.opts.InputIdleTimeout); err != nil {
		c.logger.Debug("Input idle wait failed",
			zap.String("app", r.Name),
			zap.Int("pid", proc.PID),
			zap.Error(err))
	}

	// The poll budget starts once the process is idle. Any matching window
	// counts here, visible or not: the freshly started app is usually still
	// on screen when it is first seen.
	deadline := time.Now().Add(c.opts.PreloadTimeout)
	h := c.finder.FindAny(r)
	for !h.IsValid() && time.Now().Before(deadline) {
		if !sleep(ctx, c.opts.FindInterval) {
			return ctx.Err()
		}
		h = c.finder.FindAny(r)
	}

	if !h.IsValid() {
		c.emit(Event{Kind: EventTimedOut, PassID: passID, App: r.Name, Duration: time.Since(start)})
		return nil
	}

	// Listeners see the capture before the window is actually hidden.
	r.SetPreloaded(h)
	c.emit(Event{Kind: EventCaptured, PassID: passID, App: r.Name, Handle: h, Duration: time.Since(start)})

	c.hideRepeatedly(ctx, r, h)
	return nil
}

// hideRepeatedly hides h and keeps hiding it for the record's hiding
// duration, because apps may make themselves visible again while starting.
func (c *Controller) hideRepeatedly(ctx context.Context, r *Record, h window.Handle) {
	if err := c.windows.Hide(h); err != nil {
		c.logger.Debug("Failed to hide preloaded window",
			zap.String("app", r.Name),
			zap.Error(err))
	}

	if c.opts.HideInterval <= 0 {
		return
	}

	repeats := int(r.HidingDuration / c.opts.HideInterval)
	for i := 0; i < repeats; i++ {
		if !sleep(ctx, c.opts.HideInterval) {
			return
		}
		_ = c.windows.Hide(h)
	}
}

// FindHotInstance looks up a hidden instance right now and stores the
// result, clearing the record when nothing is found.
func (c *Controller) FindHotInstance(r *Record) window.Handle {
	h := c.finder.FindHidden(r)
	r.SetPreloaded(h)
	return h
}

func (c *Controller) emit(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	c.observer.Observe(e)
}

// sleep waits for d or until ctx is done, reporting whether d elapsed
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

package preload

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/hotstart/hotstart/pkg/window"
)

const (
	// Windows restored shorter than this are treated as collapsed
	collapsedHeight = 200
	// Collapsed windows are resized to this fraction of the screen
	collapsedRatio = 0.7
)

// ActivateResult tells what Activate did
type ActivateResult struct {
	Shown    window.Handle
	Launched bool
	PID      int
}

// Activate brings the app to the user: a hot instance is restored and
// focused, otherwise the app is cold-started. When args are given the
// executable is always started with them, so they reach the (possibly
// single-instance) application even if a hot window was shown.
func (c *Controller) Activate(ctx context.Context, r *Record, args []string) (ActivateResult, error) {
	var res ActivateResult

	if h := c.FindHotInstance(r); h.IsValid() {
		c.ShowAndRestore(h)
		res.Shown = h
		c.emit(Event{Kind: EventActivated, App: r.Name, Handle: h})
	}

	if res.Shown.IsValid() && len(args) == 0 {
		return res, nil
	}

	launchArgs := r.LaunchArgs
	if len(args) > 0 {
		launchArgs = args
	}

	proc, err := c.launcher.Launch(r.ExecutablePath, launchArgs)
	if err != nil {
		c.emit(Event{Kind: EventLaunchFailed, App: r.Name, Err: err})
		return res, errors.Wrapf(err, "failed to start %s", r.Name)
	}
	res.Launched = true
	res.PID = proc.PID
	c.emit(Event{Kind: EventLaunched, App: r.Name})

	return res, nil
}

// ShowAndRestore restores, shows and focuses h. Some applications come back
// from hidden state collapsed to a sliver; those are resized to a usable
// size on the screen under the pointer.
func (c *Controller) ShowAndRestore(h window.Handle) {
	if !h.IsValid() {
		return
	}

	if err := c.windows.Restore(h); err != nil {
		c.logger.Debug("Restore failed", zap.Uintptr("handle", uintptr(h)), zap.Error(err))
	}
	if err := c.windows.Show(h); err != nil {
		c.logger.Debug("Show failed", zap.Uintptr("handle", uintptr(h)), zap.Error(err))
	}
	if err := c.windows.SetForeground(h); err != nil {
		c.logger.Debug("SetForeground failed", zap.Uintptr("handle", uintptr(h)), zap.Error(err))
	}

	bounds, err := c.windows.GetBounds(h)
	if err != nil || bounds.Height >= collapsedHeight {
		return
	}

	locator, ok := c.windows.(window.ScreenLocator)
	if !ok {
		return
	}
	screen, err := locator.ScreenAtCursor()
	if err != nil {
		return
	}

	width := int(math.Round(float64(screen.Width) * collapsedRatio))
	height := int(math.Round(float64(screen.Height) * collapsedRatio))
	if err := c.windows.MoveWindow(h, screen.X, screen.Y, width, height); err != nil {
		c.logger.Debug("Resize of collapsed window failed", zap.Uintptr("handle", uintptr(h)), zap.Error(err))
	}
}

// Hide hides the record's hot instance, if any
func (c *Controller) Hide(r *Record) error {
	h := r.Preloaded()
	if !h.IsValid() {
		return nil
	}
	return errors.Wrapf(c.windows.Hide(h), "failed to hide %s", r.Name)
}

// ShowAll shows the hot instance of every enabled record
func (c *Controller) ShowAll(records []*Record) {
	for _, r := range records {
		if r == nil || !r.Enabled {
			continue
		}
		c.ShowAndRestore(r.Preloaded())
	}
}

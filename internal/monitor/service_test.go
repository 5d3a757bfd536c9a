package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hotstart/hotstart/internal/preload"
	"github.com/hotstart/hotstart/pkg/process/processtest"
	"github.com/hotstart/hotstart/pkg/window/windowtest"
)

func newTestService(t *testing.T, interval time.Duration) (*Service, *windowtest.Desktop, *preload.Record) {
	t.Helper()

	desktop := windowtest.NewDesktop()
	launcher := &processtest.Launcher{}
	opts := preload.Options{
		PreloadTimeout: 50 * time.Millisecond,
		FindInterval:   time.Millisecond,
		HideInterval:   time.Millisecond,
		IdleThreshold:  1,
	}
	ctrl := preload.NewController(desktop, launcher, opts, zaptest.NewLogger(t), nil)

	r := &preload.Record{
		Name:       "Notepad",
		ConfigName: "notepad",
		Enabled:    true,
		Matcher:    preload.MustRegexMatcher("Notepad$"),
	}
	return NewService(interval, ctrl, []*preload.Record{r}, zaptest.NewLogger(t)), desktop, r
}

func TestServiceRunsInitialPassAndStops(t *testing.T) {
	svc, desktop, r := newTestService(t, time.Hour)
	desktop.Add(7, "a.txt - Notepad", false, false)

	done := make(chan error, 1)
	go func() { done <- svc.Start(context.Background()) }()

	assert.Eventually(t, func() bool { return r.Preloaded() == 7 }, time.Second, time.Millisecond)
	assert.True(t, svc.IsRunning())

	svc.Stop()
	svc.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("service did not stop")
	}
	svc.Controller().Wait()
	assert.False(t, svc.IsRunning())
}

func TestServiceContextCancel(t *testing.T) {
	svc, _, _ := newTestService(t, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()

	require.Eventually(t, svc.IsRunning, time.Second, time.Millisecond)
	assert.Error(t, svc.Start(ctx), "second start is refused")

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("service did not stop")
	}
	svc.Controller().Wait()
}

func TestServicePauseSkipsTicks(t *testing.T) {
	svc, desktop, r := newTestService(t, 5*time.Millisecond)
	svc.Pause()
	assert.True(t, svc.Paused())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = svc.Start(ctx) }()

	desktop.Add(7, "a.txt - Notepad", false, false)
	time.Sleep(30 * time.Millisecond)
	assert.False(t, r.Captured(), "paused service must not reconcile")

	svc.Resume()
	assert.False(t, svc.Paused())
	assert.Eventually(t, r.Captured, time.Second, time.Millisecond)

	svc.Stop()
	svc.Controller().Wait()
}

func TestServiceSetRecords(t *testing.T) {
	svc, desktop, r := newTestService(t, time.Hour)
	desktop.Add(9, "b.txt - Notepad", false, false)

	other := &preload.Record{
		Name:       "Other",
		ConfigName: "other",
		Enabled:    true,
		Matcher:    preload.MustRegexMatcher("b.txt"),
	}
	svc.SetRecords([]*preload.Record{other})
	assert.Equal(t, []*preload.Record{other}, svc.Records())

	require.True(t, svc.Trigger(context.Background()))
	svc.Controller().Wait()

	assert.Equal(t, 9, int(other.Preloaded()))
	assert.False(t, r.Captured(), "replaced record is no longer reconciled")
}

package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotstart/hotstart/internal/models"
	"github.com/hotstart/hotstart/internal/preload"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()

	db, err := Connect(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	require.NoError(t, db.Initialize())
	t.Cleanup(func() { _ = db.Close() })

	return NewRepository(db)
}

func addEvent(t *testing.T, repo *Repository, at time.Time, app string, kind preload.EventKind, durationMs int64) {
	t.Helper()
	require.NoError(t, repo.Create(&models.PreloadEvent{
		Timestamp:  at,
		AppName:    app,
		Kind:       string(kind),
		DurationMs: durationMs,
	}))
}

func TestCreateAndGetEventsSince(t *testing.T) {
	repo := newTestRepo(t)
	now := time.Now()

	addEvent(t, repo, now.Add(-2*time.Hour), "Notepad", preload.EventLaunched, 0)
	addEvent(t, repo, now.Add(-time.Minute), "Notepad", preload.EventCaptured, 120)

	ev := &models.PreloadEvent{AppName: "Code", Kind: string(preload.EventLaunched)}
	require.NoError(t, repo.Create(ev))
	assert.NotZero(t, ev.ID)
	assert.False(t, ev.Timestamp.IsZero(), "timestamp defaults to now")

	events, err := repo.GetEventsSince(now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, string(preload.EventCaptured), events[0].Kind)
	assert.Equal(t, "Code", events[1].AppName)
}

func TestGetRecent(t *testing.T) {
	repo := newTestRepo(t)
	now := time.Now()

	for i := 0; i < 5; i++ {
		addEvent(t, repo, now.Add(time.Duration(i)*time.Second), "Notepad", preload.EventLaunched, 0)
	}

	events, err := repo.GetRecent(3)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.True(t, events[0].Timestamp.After(events[1].Timestamp))
	assert.True(t, events[1].Timestamp.After(events[2].Timestamp))
}

func TestGetAppSummarySince(t *testing.T) {
	repo := newTestRepo(t)
	now := time.Now()
	at := now.Add(-time.Minute)

	addEvent(t, repo, at, "Notepad", preload.EventLaunched, 0)
	addEvent(t, repo, at, "Notepad", preload.EventCaptured, 100)
	addEvent(t, repo, at, "Notepad", preload.EventLaunched, 0)
	addEvent(t, repo, at, "Notepad", preload.EventCaptured, 300)
	addEvent(t, repo, at, "Notepad", preload.EventAbandonedHidden, 0)
	addEvent(t, repo, at, "Code", preload.EventLaunched, 0)
	addEvent(t, repo, at, "Code", preload.EventTimedOut, 10000)
	addEvent(t, repo, at, "Code", preload.EventLaunchFailed, 0)
	addEvent(t, repo, at, "", preload.EventPassCompleted, 5)
	addEvent(t, repo, now.Add(-48*time.Hour), "Old", preload.EventLaunched, 0)

	summaries, err := repo.GetAppSummarySince(now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	notepad := summaries[0]
	assert.Equal(t, "Notepad", notepad.AppName)
	assert.Equal(t, int64(2), notepad.Launches)
	assert.Equal(t, int64(2), notepad.Captures)
	assert.Equal(t, int64(1), notepad.Abandoned)
	assert.InDelta(t, 200.0, notepad.AvgCaptureMs, 0.001)

	code := summaries[1]
	assert.Equal(t, "Code", code.AppName)
	assert.Equal(t, int64(1), code.Launches)
	assert.Equal(t, int64(0), code.Captures)
	assert.Equal(t, int64(1), code.Timeouts)
	assert.Equal(t, int64(1), code.LaunchFailures)
	assert.Zero(t, code.AvgCaptureMs)

	passes, err := repo.CountSince(preload.EventPassCompleted, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), passes)
}

func TestDeleteOldEventsAndClear(t *testing.T) {
	repo := newTestRepo(t)
	now := time.Now()

	addEvent(t, repo, now.Add(-72*time.Hour), "Notepad", preload.EventLaunched, 0)
	addEvent(t, repo, now, "Notepad", preload.EventLaunched, 0)

	n, err := repo.DeleteOldEvents(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	events, err := repo.GetEventsSince(time.Time{})
	require.NoError(t, err)
	assert.Len(t, events, 1)

	require.NoError(t, repo.CreateErrorLog(&models.ErrorLog{AppName: "Notepad", ErrorMsg: "boom"}))
	errs, err := repo.CountErrorsSince(now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), errs)

	require.NoError(t, repo.Clear())
	events, err = repo.GetEventsSince(time.Time{})
	require.NoError(t, err)
	assert.Empty(t, events)
	errs, err = repo.CountErrorsSince(time.Time{})
	require.NoError(t, err)
	assert.Zero(t, errs)
}

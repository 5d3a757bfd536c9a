package database

import (
	"time"

	"github.com/pkg/errors"

	"github.com/hotstart/hotstart/internal/models"
	"github.com/hotstart/hotstart/internal/preload"
)

// Repository handles all database operations for preload history
type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new preload event
func (r *Repository) Create(event *models.PreloadEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if result := r.db.Create(event); result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert preload event")
	}
	return nil
}

// GetEventsSince returns all events since a given time, oldest first
func (r *Repository) GetEventsSince(since time.Time) ([]*models.PreloadEvent, error) {
	var events []*models.PreloadEvent
	result := r.db.Where("timestamp >= ?", since).Order("timestamp ASC").Find(&events)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query preload events")
	}
	return events, nil
}

// GetRecent returns the latest events, newest first
func (r *Repository) GetRecent(limit int) ([]*models.PreloadEvent, error) {
	var events []*models.PreloadEvent
	result := r.db.Order("timestamp DESC").Order("id DESC").Limit(limit).Find(&events)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query recent events")
	}
	return events, nil
}

// GetAppSummarySince returns per-app outcome counts since a given time.
// SQL does the counting; derived fields are left to the caller.
func (r *Repository) GetAppSummarySince(since time.Time) ([]models.AppSummary, error) {
	var summaries []models.AppSummary

	result := r.db.Model(&models.PreloadEvent{}).
		Select(`app_name,
			SUM(CASE WHEN kind = ? THEN 1 ELSE 0 END) AS launches,
			SUM(CASE WHEN kind = ? THEN 1 ELSE 0 END) AS captures,
			SUM(CASE WHEN kind = ? THEN 1 ELSE 0 END) AS timeouts,
			SUM(CASE WHEN kind = ? THEN 1 ELSE 0 END) AS launch_failures,
			SUM(CASE WHEN kind = ? THEN 1 ELSE 0 END) AS abandoned,
			SUM(CASE WHEN kind = ? THEN 1 ELSE 0 END) AS activations,
			SUM(CASE WHEN kind = ? THEN 1 ELSE 0 END) AS check_failures,
			COALESCE(AVG(CASE WHEN kind = ? THEN duration_ms END), 0) AS avg_capture_ms`,
			string(preload.EventLaunched),
			string(preload.EventCaptured),
			string(preload.EventTimedOut),
			string(preload.EventLaunchFailed),
			string(preload.EventAbandonedHidden),
			string(preload.EventActivated),
			string(preload.EventCheckFailed),
			string(preload.EventCaptured)).
		Where("timestamp >= ? AND app_name <> ''", since).
		Group("app_name").
		Order("launches DESC, app_name ASC").
		Scan(&summaries)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query app summary")
	}
	return summaries, nil
}

// CountSince counts events of one kind since a given time
func (r *Repository) CountSince(kind preload.EventKind, since time.Time) (int64, error) {
	var n int64
	result := r.db.Model(&models.PreloadEvent{}).
		Where("kind = ? AND timestamp >= ?", string(kind), since).
		Count(&n)
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to count events")
	}
	return n, nil
}

// CountErrorsSince counts stored error logs since a given time
func (r *Repository) CountErrorsSince(since time.Time) (int64, error) {
	var n int64
	result := r.db.Model(&models.ErrorLog{}).Where("timestamp >= ?", since).Count(&n)
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to count errors")
	}
	return n, nil
}

// DeleteOldEvents deletes events older than a specified date (soft delete)
func (r *Repository) DeleteOldEvents(before time.Time) (int64, error) {
	result := r.db.Where("timestamp < ?", before).Delete(&models.PreloadEvent{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete old events")
	}
	return result.RowsAffected, nil
}

// CreateErrorLog inserts a new error log
func (r *Repository) CreateErrorLog(errorLog *models.ErrorLog) error {
	if errorLog.Timestamp.IsZero() {
		errorLog.Timestamp = time.Now()
	}
	if result := r.db.Create(errorLog); result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert error log")
	}
	return nil
}

// Clear removes all preload events and error logs
func (r *Repository) Clear() error {
	if result := r.db.Exec("DELETE FROM preload_events"); result.Error != nil {
		return errors.Wrap(result.Error, "failed to clear preload events")
	}
	if result := r.db.Exec("DELETE FROM error_logs"); result.Error != nil {
		return errors.Wrap(result.Error, "failed to clear error logs")
	}
	return nil
}

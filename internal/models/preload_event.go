package models

import (
	"time"

	"gorm.io/gorm"
)

// PreloadEvent is one controller action, e.g. a launch or a capture
type PreloadEvent struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Timestamp  time.Time      `gorm:"not null;index" json:"timestamp"`
	PassID     string         `gorm:"index" json:"pass_id,omitempty"`
	AppName    string         `gorm:"index" json:"app_name,omitempty"`
	Kind       string         `gorm:"not null;index" json:"kind"`
	Handle     uint64         `gorm:"not null;default:0" json:"handle,omitempty"`
	Detail     string         `json:"detail,omitempty"`
	DurationMs int64          `gorm:"not null;default:0" json:"duration_ms,omitempty"`
	CreatedAt  time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// AppSummary aggregates the events of one app over a period
type AppSummary struct {
	AppName        string  `json:"app_name"`
	Launches       int64   `json:"launches"`
	Captures       int64   `json:"captures"`
	Timeouts       int64   `json:"timeouts"`
	LaunchFailures int64   `json:"launch_failures"`
	Abandoned      int64   `json:"abandoned_hidden"`
	Activations    int64   `json:"activations"`
	CheckFailures  int64   `json:"check_failures"`
	AvgCaptureMs   float64 `json:"avg_capture_ms"`
	CaptureRate    float64 `json:"capture_rate,omitempty"` // Percent of launches that were captured
}

type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Type  string    `json:"type"` // "day", "week", "month"
}

type Report struct {
	Period        ReportPeriod `json:"period"`
	Apps          []AppSummary `json:"apps"`
	Passes        int64        `json:"passes"`
	TotalLaunches int64        `json:"total_launches"`
	TotalCaptures int64        `json:"total_captures"`
	Errors        int64        `json:"errors"`
	GeneratedAt   time.Time    `json:"generated_at"`
}

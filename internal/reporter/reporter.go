package reporter

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hotstart/hotstart/internal/database"
	"github.com/hotstart/hotstart/internal/models"
	"github.com/hotstart/hotstart/internal/preload"
	"github.com/hotstart/hotstart/pkg/utils"
)

// Reporter summarizes preload history
type Reporter struct {
	repo *database.Repository
	now  func() time.Time
}

func New(repo *database.Repository) *Reporter {
	return &Reporter{
		repo: repo,
		now:  time.Now,
	}
}

// GenerateReport generates a report for the specified period
func (r *Reporter) GenerateReport(periodType string) (*models.Report, error) {
	period, err := GetPeriod(periodType, r.now())
	if err != nil {
		return nil, err
	}

	summaries, err := r.repo.GetAppSummarySince(period.Start)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get app summary")
	}

	report := &models.Report{
		Period:      *period,
		Apps:        summaries,
		GeneratedAt: r.now(),
	}

	for i := range summaries {
		if summaries[i].Launches > 0 {
			summaries[i].CaptureRate = float64(summaries[i].Captures) / float64(summaries[i].Launches) * 100.0
		}
		report.TotalLaunches += summaries[i].Launches
		report.TotalCaptures += summaries[i].Captures
	}

	if report.Passes, err = r.repo.CountSince(preload.EventPassCompleted, period.Start); err != nil {
		return nil, errors.Wrap(err, "failed to count passes")
	}
	if report.Errors, err = r.repo.CountErrorsSince(period.Start); err != nil {
		return nil, errors.Wrap(err, "failed to count errors")
	}

	return report, nil
}

// GetPeriod calculates the time range of a day, week (from Monday) or
// month containing now.
func GetPeriod(periodType string, now time.Time) (*models.ReportPeriod, error) {
	var start, end time.Time
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch periodType {
	case "day", "today":
		periodType = "day"
		start = today
		end = start.AddDate(0, 0, 1)

	case "week":
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday = 7
		}
		start = today.AddDate(0, 0, -(weekday - 1))
		end = start.AddDate(0, 0, 7)

	case "month":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 1, 0)

	default:
		return nil, fmt.Errorf("invalid period type: %s (valid: day, week, month)", periodType)
	}

	return &models.ReportPeriod{
		Start: start,
		End:   end,
		Type:  periodType,
	}, nil
}

// FormatReportText formats the report as human-readable text
func (r *Reporter) FormatReportText(report *models.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Preload Report - %s\n", report.Period.Type)
	fmt.Fprintf(&b, "Period: %s to %s\n",
		report.Period.Start.Format("2006-01-02 15:04"),
		report.Period.End.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Passes: %d  Launches: %d  Captures: %d  Errors: %d\n\n",
		report.Passes, report.TotalLaunches, report.TotalCaptures, report.Errors)

	if len(report.Apps) == 0 {
		b.WriteString("No preload activity recorded for this period.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%-24s %8s %8s %8s %8s %9s %10s %8s\n",
		"Application", "Launches", "Captured", "Timeouts", "Failed", "Abandoned", "Activated", "Capture")
	b.WriteString(strings.Repeat("-", 92) + "\n")

	for _, app := range report.Apps {
		capture := "-"
		if app.Captures > 0 {
			capture = utils.FormatRoundedUnit(time.Duration(app.AvgCaptureMs * float64(time.Millisecond)))
		}
		fmt.Fprintf(&b, "%-24s %8d %8d %8d %8d %9d %10d %8s\n",
			utils.Truncate(app.AppName, 24),
			app.Launches,
			app.Captures,
			app.Timeouts,
			app.LaunchFailures,
			app.Abandoned,
			app.Activations,
			capture)
	}

	return b.String()
}

// FormatReportJSON formats the report as JSON
func (r *Reporter) FormatReportJSON(report *models.Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal JSON")
	}
	return string(data), nil
}

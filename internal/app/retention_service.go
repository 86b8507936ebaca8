// internal/app/retention_service.go
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"originality_sync/internal/domain/actionlog"
)

// monthLength approximates a month as a fixed 30 day window (2592000 s).
const monthLength = 30 * 24 * time.Hour

// MaxRetentionMonths caps the horizon so the window fits in a time.Duration.
const MaxRetentionMonths = 1200

// RetentionJob purges action log entries past the retention horizon
// (clear_action_log).
type RetentionJob struct {
	actions actionlog.Repository
	months  int
	logger  *logrus.Entry
	now     func() time.Time
}

func NewRetentionJob(actions actionlog.Repository, months int, logger *logrus.Entry) *RetentionJob {
	return &RetentionJob{actions: actions, months: months, logger: logger, now: time.Now}
}

func (j *RetentionJob) Name() string { return JobClearActionLog }

// Cutoff returns the instant before which entries are deleted. Horizons
// beyond MaxRetentionMonths are clamped.
func (j *RetentionJob) Cutoff() time.Time {
	months := min(j.months, MaxRetentionMonths)
	return j.now().Add(-time.Duration(months) * monthLength)
}

func (j *RetentionJob) Execute(ctx context.Context) (*RunReport, error) {
	start := time.Now()
	report := newRunReport(j.Name())
	if j.months <= 0 {
		j.logger.Debug("Action log retention disabled, nothing to purge")
		return report.finish(start), nil
	}

	cutoff := j.Cutoff()
	deleted, err := j.actions.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.WithError(err).Error("Failed to purge action log")
		return abort(j.Name(), fmt.Errorf("failed to purge action log: %w", err))
	}
	report.Deleted = deleted
	report.finish(start)
	j.logger.WithFields(report.Fields()).WithField("cutoff", cutoff.Format(time.RFC3339)).Info("Action log purged")
	return report, nil
}

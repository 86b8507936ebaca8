// internal/app/jobs.go
package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Custom application-level errors
var (
	// ErrNotConfigured means the checking service credentials are missing.
	// Jobs return it without touching any document.
	ErrNotConfigured = fmt.Errorf("originality service credentials are not configured")
	ErrUnknownJob    = fmt.Errorf("unknown job")

	errRecovered = errors.New("panic while processing document")
)

// Job names as used by the scheduler, the CLI and the admin bot.
const (
	JobUploadAndCheck     = "upload_and_check"
	JobControlCheckStatus = "control_check_status"
	JobClearActionLog     = "clear_action_log"
)

// Job is a unit of unattended batch work. Execute returns an error only when
// the job could not run at all; per-document failures are counted in the
// report.
type Job interface {
	Name() string
	Execute(ctx context.Context) (*RunReport, error)
}

// RunReport summarises one job invocation.
type RunReport struct {
	Job      string
	Counts   map[string]int
	Deleted  int64
	Duration time.Duration
}

func newRunReport(job string) *RunReport {
	return &RunReport{Job: job, Counts: make(map[string]int)}
}

// Add increments the counter for outcome.
func (r *RunReport) Add(outcome string) {
	r.Counts[outcome]++
}

// Count returns the counter for outcome.
func (r *RunReport) Count(outcome string) int {
	return r.Counts[outcome]
}

// Fields renders the report for structured logging.
func (r *RunReport) Fields() logrus.Fields {
	f := logrus.Fields{"job": r.Job, "duration": r.Duration.String()}
	for k, v := range r.Counts {
		f[k] = v
	}
	if r.Deleted > 0 {
		f["deleted"] = r.Deleted
	}
	return f
}

func (r *RunReport) String() string {
	keys := make([]string, 0, len(r.Counts))
	for k := range r.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "%s finished in %s", r.Job, r.Duration.Round(time.Millisecond))
	for _, k := range keys {
		fmt.Fprintf(&b, ", %s=%d", k, r.Counts[k])
	}
	if r.Deleted > 0 {
		fmt.Fprintf(&b, ", deleted=%d", r.Deleted)
	}
	return b.String()
}

// finish stamps the duration and records the run in the job metrics.
func (r *RunReport) finish(start time.Time) *RunReport {
	r.Duration = time.Since(start)
	jobDurationSeconds.WithLabelValues(r.Job).Observe(r.Duration.Seconds())
	jobRunsTotal.WithLabelValues(r.Job, "completed").Inc()
	for outcome, n := range r.Counts {
		jobDocumentsTotal.WithLabelValues(r.Job, outcome).Add(float64(n))
	}
	return r
}

// abort records a run that could not start.
func abort(job string, err error) (*RunReport, error) {
	jobRunsTotal.WithLabelValues(job, "aborted").Inc()
	return nil, err
}

// isolate runs fn and converts a panic into an error wrapping errRecovered
// so one broken document cannot take down the batch.
func isolate(fn func() (string, error)) (outcome string, err error) {
	defer func() {
		if p := recover(); p != nil {
			outcome = OutcomeFailed
			err = fmt.Errorf("%w: %v", errRecovered, p)
		}
	}()
	return fn()
}

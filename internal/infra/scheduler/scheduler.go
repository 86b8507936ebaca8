package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"originality_sync/internal/app"
	"originality_sync/internal/domain/alert"
)

const notifyTimeout = 15 * time.Second

// JobScheduler runs the batch jobs on their cron schedules. A job whose
// previous run is still going is skipped for that tick.
type JobScheduler struct {
	cronEngine *cron.Cron
	notifier   alert.Notifier
	logger     *logrus.Entry
	jobTimeout time.Duration
}

func NewJobScheduler(notifier alert.Notifier, logger *logrus.Entry, jobTimeout time.Duration) *JobScheduler {
	if notifier == nil {
		notifier = alert.Nop{}
	}
	cronLogger := cron.PrintfLogger(logger)
	return &JobScheduler{
		cronEngine: cron.New(
			cron.WithLocation(time.Local), // Use server's local time for cron
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		notifier:   notifier,
		logger:     logger,
		jobTimeout: jobTimeout,
	}
}

// Register schedules job under spec.
func (s *JobScheduler) Register(spec string, job app.Job) error {
	if _, err := s.cronEngine.AddFunc(spec, func() { s.runJob(context.Background(), job) }); err != nil {
		return fmt.Errorf("could not add cron job %s with spec %q: %w", job.Name(), spec, err)
	}
	s.logger.WithFields(logrus.Fields{"job": job.Name(), "spec": spec}).Info("Job scheduled")
	return nil
}

// Run starts the scheduler and blocks until ctx is cancelled, then waits for
// running jobs to finish.
func (s *JobScheduler) Run(ctx context.Context) error {
	s.logger.Info("Starting job scheduler...")
	s.cronEngine.Start()
	<-ctx.Done()

	s.logger.Info("Stopping job scheduler...")
	stopCtx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-stopCtx.Done()
	s.logger.Info("Job scheduler gracefully stopped.")
	return nil
}

func (s *JobScheduler) runJob(parent context.Context, job app.Job) {
	jobLogger := s.logger.WithField("job", job.Name())
	jobLogger.Debug("Cron job triggered")

	ctx, cancel := context.WithTimeout(parent, s.jobTimeout)
	defer cancel()

	report, err := job.Execute(ctx)
	if err != nil {
		if errors.Is(err, app.ErrNotConfigured) {
			// Not alerted: it would repeat on every tick until credentials are set.
			jobLogger.WithError(err).Warn("Job skipped")
			return
		}
		jobLogger.WithError(err).Error("Job failed")
		text := fmt.Sprintf("Задача %s завершилась с ошибкой: %v", job.Name(), err)
		notifyCtx, cancelNotify := context.WithTimeout(parent, notifyTimeout)
		defer cancelNotify()
		if nerr := s.notifier.Notify(notifyCtx, text); nerr != nil {
			jobLogger.WithError(nerr).Warn("Failed to deliver job failure alert")
		}
		return
	}

	entry := jobLogger.WithFields(report.Fields())
	if report.Count(app.OutcomeFailed) > 0 {
		entry.Warn("Job finished with failures")
		return
	}
	entry.Info("Job finished")
}

// internal/app/reconciliation_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"originality_sync/internal/domain/document"
	"originality_sync/internal/domain/remote"
)

// ReconciliationJob polls the checking service for every in-flight document
// and advances its state machine (control_check_status).
type ReconciliationJob struct {
	docs       document.Repository
	reconciler *Reconciler
	leases     *LeaseRegistry
	creds      remote.Credentials
	batchSize  int
	logger     *logrus.Entry
}

func NewReconciliationJob(
	docs document.Repository,
	reconciler *Reconciler,
	leases *LeaseRegistry,
	creds remote.Credentials,
	batchSize int,
	logger *logrus.Entry,
) *ReconciliationJob {
	return &ReconciliationJob{
		docs:       docs,
		reconciler: reconciler,
		leases:     leases,
		creds:      creds,
		batchSize:  batchSize,
		logger:     logger,
	}
}

func (j *ReconciliationJob) Name() string { return JobControlCheckStatus }

// Execute processes at most batchSize documents, oldest added first. The
// remainder is picked up by the next run.
func (j *ReconciliationJob) Execute(ctx context.Context) (*RunReport, error) {
	start := time.Now()
	if !j.creds.Complete() {
		j.logger.Error("Originality service credentials missing, control_check_status not started")
		return abort(j.Name(), ErrNotConfigured)
	}

	docs, err := j.docs.ListByStatus(ctx, document.ReconcilableStatuses(), j.batchSize)
	if err != nil {
		j.logger.WithError(err).Error("Failed to list documents for status control")
		return abort(j.Name(), fmt.Errorf("failed to list in-flight documents: %w", err))
	}
	j.logger.WithField("documents", len(docs)).Info("Starting status control")

	report := newRunReport(j.Name())
	for _, rec := range docs {
		if ctx.Err() != nil {
			j.logger.WithError(ctx.Err()).Warn("Status control interrupted, remaining documents left for the next run")
			break
		}
		before := rec.Clone()
		outcome, err := isolate(func() (string, error) { return j.advance(ctx, rec) })
		if err != nil {
			j.logger.WithError(err).WithField("document_id", rec.ID).Error("Failed to process document")
		}
		if errors.Is(err, errRecovered) {
			j.reconciler.rec.recordCrash(ctx, before, crashStatus(before.Status))
		}
		report.Add(outcome)
	}

	report.finish(start)
	j.logger.WithFields(report.Fields()).Info("Status control finished")
	return report, nil
}

func (j *ReconciliationJob) advance(ctx context.Context, rec *document.Record) (string, error) {
	if j.leases != nil {
		token, ok := j.leases.Acquire(rec.ID)
		if !ok {
			return OutcomeSkipped, nil
		}
		defer j.leases.Release(rec.ID, token)
	}
	return j.reconciler.Advance(ctx, rec)
}

// crashStatus is where a document lands after an unexpected failure during
// status control: retry states keep their status, in-progress documents
// move to status-error.
func crashStatus(s document.Status) document.Status {
	if _, ok := document.Classify(s).(document.Retryable); ok {
		return s
	}
	return document.StatusStatusError
}

// internal/app/document_service.go
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"originality_sync/internal/domain/actionlog"
	"originality_sync/internal/domain/document"
	"originality_sync/internal/domain/remote"
)

// ErrReportUnavailable is returned for report requests on documents whose
// check has not finished.
var ErrReportUnavailable = fmt.Errorf("report is not available for this document yet")

// ErrNotRetryable is returned when an upload retry is requested for a
// document outside upload-error.
var ErrNotRetryable = fmt.Errorf("document is not waiting for an upload retry")

// DocumentService backs the interactive surfaces: snapshots, on-demand
// refresh, report re-fetch and the audit trail of one document.
type DocumentService struct {
	docs       document.Repository
	actions    actionlog.Repository
	reconciler *Reconciler
	client     remote.Client
	leases     *LeaseRegistry
	creds      remote.Credentials
	rec        *recorder
	logger     *logrus.Entry
}

func NewDocumentService(
	docs document.Repository,
	actions actionlog.Repository,
	reconciler *Reconciler,
	client remote.Client,
	leases *LeaseRegistry,
	creds remote.Credentials,
	logger *logrus.Entry,
) *DocumentService {
	return &DocumentService{
		docs:       docs,
		actions:    actions,
		reconciler: reconciler,
		client:     client,
		leases:     leases,
		creds:      creds,
		rec:        &recorder{docs: docs, actions: actions, logger: logger},
		logger:     logger,
	}
}

// Get returns the stored snapshot.
func (s *DocumentService) Get(ctx context.Context, id int64) (*document.Record, error) {
	return s.docs.GetByID(ctx, id)
}

// Refresh runs the status-check-and-advance step for a single document and
// returns the resulting snapshot. Documents outside the polling states are
// returned untouched, as are documents whose lease is held by a concurrent
// refresh or job.
func (s *DocumentService) Refresh(ctx context.Context, id int64) (*document.Record, error) {
	rec, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !document.Reconcilable(rec.Status) {
		refreshTotal.WithLabelValues("noop").Inc()
		return rec, nil
	}
	if !s.creds.Complete() {
		return nil, ErrNotConfigured
	}

	token, ok := s.leases.Acquire(id)
	if !ok {
		refreshTotal.WithLabelValues("debounced").Inc()
		return rec, nil
	}
	defer s.leases.Release(id, token)

	outcome, err := s.reconciler.Advance(ctx, rec.Clone())
	if err != nil {
		s.logger.WithError(err).WithField("document_id", id).Error("Interactive refresh failed")
		return nil, err
	}
	refreshTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeUnchanged {
		return rec, nil
	}
	return s.docs.GetByID(ctx, id)
}

// Report re-fetches the report of a checked document and stores the fresh
// scores and links.
func (s *DocumentService) Report(ctx context.Context, id int64) (*document.Record, error) {
	rec, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rec.Status.HasResult() || !rec.HasExternalID() {
		return nil, ErrReportUnavailable
	}
	if !s.creds.Complete() {
		return nil, ErrNotConfigured
	}

	summary, err := s.client.GetReport(ctx, remote.DocumentID(rec.ExternalID.String))
	if err != nil {
		s.rec.docLogger(rec).WithError(err).Warn("Report re-fetch failed")
		return nil, err
	}

	from := rec.Status
	rec.Result = resultFromSummary(summary)
	if err := s.rec.commit(ctx, rec, from, actionlog.ActionResultUpdated, "report re-fetched"); err != nil {
		if errors.Is(err, document.ErrStaleTransition) {
			return s.docs.GetByID(ctx, id)
		}
		return nil, err
	}
	return rec, nil
}

// RetryUpload puts a failed upload back into the pending queue; the next
// upload_and_check run uploads it again. Rejected uploads only leave
// upload-error this way.
func (s *DocumentService) RetryUpload(ctx context.Context, id int64) (*document.Record, error) {
	rec, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status != document.StatusUploadError {
		return nil, ErrNotRetryable
	}

	from := rec.Status
	rec.SetStatus(document.StatusPendingUpload)
	if err := s.rec.commit(ctx, rec, from, actionlog.ActionQueued, "manual retry"); err != nil {
		if errors.Is(err, document.ErrStaleTransition) {
			return s.docs.GetByID(ctx, id)
		}
		return nil, err
	}
	return rec, nil
}

// ActionLog returns the audit trail of a document in append order.
func (s *DocumentService) ActionLog(ctx context.Context, id int64) ([]*actionlog.Entry, error) {
	if _, err := s.docs.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.actions.ListByDocument(ctx, id)
}

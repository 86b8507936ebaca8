// internal/app/recorder.go
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"originality_sync/internal/domain/actionlog"
	"originality_sync/internal/domain/document"
)

const msgUnexpectedFailure = "Unexpected failure while processing the document"

// recorder persists a document transition together with its audit entry.
type recorder struct {
	docs    document.Repository
	actions actionlog.Repository
	logger  *logrus.Entry
}

// commit stores rec if its status is still from and appends the audit entry.
// A lost race returns document.ErrStaleTransition and appends nothing.
func (r *recorder) commit(ctx context.Context, rec *document.Record, from document.Status, action actionlog.ActionType, detail string) error {
	if err := r.docs.Transition(ctx, rec, from); err != nil {
		if errors.Is(err, document.ErrStaleTransition) {
			r.docLogger(rec).WithField("from", from).Debug("Document changed concurrently, transition dropped")
			return err
		}
		return fmt.Errorf("failed to store transition %s -> %s: %w", from, rec.Status, err)
	}
	r.note(ctx, rec, action, detail)
	return nil
}

// note appends an audit entry without touching the document row. Audit
// failures are logged and never fail the document.
func (r *recorder) note(ctx context.Context, rec *document.Record, action actionlog.ActionType, detail string) {
	if err := r.actions.Append(ctx, actionlog.NewEntry(rec, action, detail)); err != nil {
		r.docLogger(rec).WithError(err).WithField("action", action.String()).Error("Failed to append action log entry")
	}
}

// recordCrash moves before, the snapshot taken ahead of a processing step
// that panicked, to status to. A document that already moved on is left
// alone.
func (r *recorder) recordCrash(ctx context.Context, before *document.Record, to document.Status) {
	from := before.Status
	before.Fail(to, msgUnexpectedFailure)
	err := r.commit(ctx, before, from, actionlog.ActionErrorReceived, msgUnexpectedFailure)
	if err != nil && !errors.Is(err, document.ErrStaleTransition) {
		r.docLogger(before).WithError(err).Error("Failed to record unexpected failure")
	}
}

func (r *recorder) docLogger(rec *document.Record) *logrus.Entry {
	return r.logger.WithFields(logrus.Fields{
		"document_id": rec.ID,
		"status":      rec.Status,
		"external_id": rec.ExternalID.String,
	})
}

// internal/app/reconciler.go
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"originality_sync/internal/domain/actionlog"
	"originality_sync/internal/domain/alert"
	"originality_sync/internal/domain/document"
	"originality_sync/internal/domain/lms"
	"originality_sync/internal/domain/remote"
)

// Per-document outcomes counted in run reports.
const (
	OutcomeAdvanced    = "advanced"
	OutcomeUnchanged   = "unchanged"
	OutcomeFailed      = "failed"
	OutcomeSkipped     = "skipped"
	OutcomeQueued      = "queued"
	OutcomeReused      = "reused"
	OutcomeUploaded    = "uploaded"
	OutcomeTooShort    = "too_short"
	OutcomeNotFound    = "not_found"
	OutcomeEvicted     = "evicted"
	OutcomeEvictFailed = "evict_failed"
)

const msgIndexSettingsUnavailable = "Index settings of the module are unavailable"

// Reconciler advances one document through the status-polling state
// machine. It is shared by the scheduled job and the interactive refresh.
type Reconciler struct {
	rec      *recorder
	client   remote.Client
	modules  lms.ModuleSettingsProvider
	notifier alert.Notifier
	logger   *logrus.Entry
	now      func() time.Time
}

func NewReconciler(
	docs document.Repository,
	actions actionlog.Repository,
	client remote.Client,
	modules lms.ModuleSettingsProvider,
	notifier alert.Notifier,
	logger *logrus.Entry,
) *Reconciler {
	if notifier == nil {
		notifier = alert.Nop{}
	}
	return &Reconciler{
		rec:      &recorder{docs: docs, actions: actions, logger: logger},
		client:   client,
		modules:  modules,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Advance evaluates the transition table once for rec and persists the
// result. rec is updated in place. The returned error is reserved for
// storage failures; remote failures are recorded on the document.
func (r *Reconciler) Advance(ctx context.Context, rec *document.Record) (string, error) {
	if !document.Reconcilable(rec.Status) {
		return OutcomeSkipped, nil
	}
	from := rec.Status

	if !rec.HasExternalID() {
		// Cannot poll without a handle; hand it back to the upload step.
		rec.Fail(document.StatusUploadError, "Document has no external identifier")
		return r.store(ctx, rec, from, actionlog.ActionErrorReceived, "missing external id", OutcomeFailed)
	}

	if st, ok := document.Classify(from).(document.Retryable); ok && st.Kind == document.ErrorKindIndex {
		return r.index(ctx, rec)
	}

	id := remote.DocumentID(rec.ExternalID.String)
	report, err := r.client.GetStatus(ctx, id)
	if err != nil {
		rec.Fail(document.StatusStatusError, remote.UserMessage(err))
		r.remoteFailure(rec, "GetStatus", err)
		return r.store(ctx, rec, from, actionlog.ActionErrorReceived, remote.UserMessage(err), OutcomeFailed)
	}

	switch report.State {
	case remote.StateReady:
		return r.recordResult(ctx, rec, report.Summary)

	case remote.StateFailed:
		detail := report.FailDetail
		if detail == "" {
			detail = "Check failed on the originality service"
		}
		rec.Fail(document.StatusCheckFailed, detail)
		return r.store(ctx, rec, from, actionlog.ActionErrorReceived, detail, OutcomeFailed)

	case remote.StateNone:
		if err := r.client.StartCheck(ctx, id); err != nil {
			rec.Fail(document.StatusCheckingError, remote.UserMessage(err))
			r.remoteFailure(rec, "StartCheck", err)
			return r.store(ctx, rec, from, actionlog.ActionErrorReceived, remote.UserMessage(err), OutcomeFailed)
		}
		rec.SetStatus(document.StatusChecking)
		rec.CheckStartedAt = sql.NullTime{Time: r.now(), Valid: true}
		return r.store(ctx, rec, from, actionlog.ActionVerificationStart, "", OutcomeAdvanced)

	case remote.StateInProgress:
		if from == document.StatusChecking {
			return OutcomeUnchanged, nil
		}
		// The check already runs remotely (started elsewhere, or the last
		// poll failed): record checking so the stored status matches.
		rec.SetStatus(document.StatusChecking)
		return r.store(ctx, rec, from, actionlog.ActionCheckStart, "check in progress", OutcomeAdvanced)

	default:
		detail := fmt.Sprintf("Unexpected check state %q", report.State)
		rec.Fail(document.StatusCheckFailed, detail)
		return r.store(ctx, rec, from, actionlog.ActionErrorReceived, detail, OutcomeFailed)
	}
}

// recordResult stores the scores of a finished check and, when the module
// asks for it, adds the document to the index.
func (r *Reconciler) recordResult(ctx context.Context, rec *document.Record, summary *remote.Summary) (string, error) {
	from := rec.Status
	if summary == nil {
		s, err := r.client.GetReport(ctx, remote.DocumentID(rec.ExternalID.String))
		if err != nil {
			rec.Fail(document.StatusStatusError, remote.UserMessage(err))
			r.remoteFailure(rec, "GetReport", err)
			return r.store(ctx, rec, from, actionlog.ActionErrorReceived, remote.UserMessage(err), OutcomeFailed)
		}
		summary = s
	}

	rec.Result = resultFromSummary(summary)
	rec.CheckEndedAt = sql.NullTime{Time: r.now(), Valid: true}
	rec.SetStatus(document.StatusChecked)
	detail := fmt.Sprintf("plagiarism=%.2f legal=%.2f self_cite=%.2f originality=%.0f",
		rec.Result.Plagiarism, rec.Result.Legal, rec.Result.SelfCite, rec.Result.Originality)
	if outcome, err := r.store(ctx, rec, from, actionlog.ActionVerificationEnd, detail, OutcomeAdvanced); outcome != OutcomeAdvanced || err != nil {
		return outcome, err
	}

	if rec.Result.IsSuspicious {
		r.alertSuspicious(ctx, rec)
	}

	settings, err := r.modules.Get(ctx, rec.ModuleID)
	switch {
	case errors.Is(err, lms.ErrModuleNotFound):
		return OutcomeAdvanced, nil
	case err != nil:
		r.rec.docLogger(rec).WithError(err).Error("Failed to load module settings for indexing")
		checked := rec.Status
		rec.Fail(document.StatusIndexError, msgIndexSettingsUnavailable)
		return r.store(ctx, rec, checked, actionlog.ActionErrorReceived, msgIndexSettingsUnavailable, OutcomeFailed)
	case !settings.AddToIndex:
		return OutcomeAdvanced, nil
	}

	outcome, err := r.index(ctx, rec)
	if outcome == OutcomeFailed {
		// The check itself succeeded; only the indexing sub-state failed.
		return OutcomeAdvanced, err
	}
	return outcome, err
}

// index adds the document to the institutional index. Check results are
// never touched here.
func (r *Reconciler) index(ctx context.Context, rec *document.Record) (string, error) {
	from := rec.Status
	if err := r.client.SetIndexed(ctx, remote.DocumentID(rec.ExternalID.String), true); err != nil {
		rec.Fail(document.StatusIndexError, remote.UserMessage(err))
		r.remoteFailure(rec, "SetIndexed", err)
		return r.store(ctx, rec, from, actionlog.ActionErrorReceived, remote.UserMessage(err), OutcomeFailed)
	}
	rec.SetStatus(document.StatusIndexed)
	return r.store(ctx, rec, from, actionlog.ActionIndexAddEnd, "", OutcomeAdvanced)
}

// store commits the transition and maps a lost race to OutcomeSkipped.
func (r *Reconciler) store(ctx context.Context, rec *document.Record, from document.Status, action actionlog.ActionType, detail, outcome string) (string, error) {
	if err := r.rec.commit(ctx, rec, from, action, detail); err != nil {
		if errors.Is(err, document.ErrStaleTransition) {
			return OutcomeSkipped, nil
		}
		return OutcomeFailed, err
	}
	return outcome, nil
}

func (r *Reconciler) remoteFailure(rec *document.Record, call string, err error) {
	r.rec.docLogger(rec).WithError(err).WithFields(logrus.Fields{
		"call":      call,
		"transport": remote.IsTransport(err),
	}).Warn("Originality service call failed")
}

func (r *Reconciler) alertSuspicious(ctx context.Context, rec *document.Record) {
	text := fmt.Sprintf("Документ #%d (курс %d, модуль %d, пользователь %d) отмечен сервисом как подозрительный. Отчёт: %s",
		rec.ID, rec.CourseID, rec.ModuleID, rec.UserID, rec.Result.Links.Read)
	if err := r.notifier.Notify(ctx, text); err != nil {
		r.rec.docLogger(rec).WithError(err).Warn("Failed to send suspicious document alert")
	}
}

func resultFromSummary(s *remote.Summary) *document.Result {
	return &document.Result{
		Plagiarism:   s.Plagiarism,
		Legal:        s.Legal,
		SelfCite:     s.SelfCite,
		Originality:  document.Originality(s.Plagiarism, s.Legal),
		IsSuspicious: s.IsSuspicious,
		Links: document.ReportLinks{
			Edit:  s.ReportEditLink,
			Read:  s.ReportReadLink,
			Short: s.ShortLink,
		},
	}
}

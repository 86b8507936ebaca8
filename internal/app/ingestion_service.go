// internal/app/ingestion_service.go
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"originality_sync/internal/domain/actionlog"
	"originality_sync/internal/domain/document"
	"originality_sync/internal/domain/lms"
	"originality_sync/internal/domain/remote"
)

const msgContentUnreadable = "Submission content could not be read"

// IngestionOptions tunes the upload_and_check job.
type IngestionOptions struct {
	BatchSize    int
	MinWordCount int
	Credentials  remote.Credentials
}

// IngestionJob detects new answers, evicts superseded attempts from the index
// and uploads pending documents (upload_and_check).
type IngestionJob struct {
	docs    document.Repository
	feed    lms.AnswerFeed
	modules lms.ModuleSettingsProvider
	content lms.ContentSource
	client  remote.Client
	rec     *recorder
	opts    IngestionOptions
	logger  *logrus.Entry
	now     func() time.Time
}

func NewIngestionJob(
	docs document.Repository,
	actions actionlog.Repository,
	feed lms.AnswerFeed,
	modules lms.ModuleSettingsProvider,
	content lms.ContentSource,
	client remote.Client,
	opts IngestionOptions,
	logger *logrus.Entry,
) *IngestionJob {
	return &IngestionJob{
		docs:    docs,
		feed:    feed,
		modules: modules,
		content: content,
		client:  client,
		rec:     &recorder{docs: docs, actions: actions, logger: logger},
		opts:    opts,
		logger:  logger,
		now:     time.Now,
	}
}

func (j *IngestionJob) Name() string { return JobUploadAndCheck }

func (j *IngestionJob) Execute(ctx context.Context) (*RunReport, error) {
	start := time.Now()
	if !j.opts.Credentials.Complete() {
		j.logger.Error("Originality service credentials missing, upload_and_check not started")
		return abort(j.Name(), ErrNotConfigured)
	}

	report := newRunReport(j.Name())
	j.discover(ctx, report)
	j.evictSuperseded(ctx, report)

	docs, err := j.docs.ListUploadable(ctx, j.opts.BatchSize)
	if err != nil {
		j.logger.WithError(err).Error("Failed to list documents waiting for upload")
		return abort(j.Name(), fmt.Errorf("failed to list documents for upload: %w", err))
	}
	j.logger.WithField("documents", len(docs)).Info("Starting document upload")

	for _, rec := range docs {
		if ctx.Err() != nil {
			j.logger.WithError(ctx.Err()).Warn("Upload interrupted, remaining documents left for the next run")
			break
		}
		before := rec.Clone()
		outcome, err := isolate(func() (string, error) { return j.upload(ctx, rec) })
		if err != nil {
			j.logger.WithError(err).WithField("document_id", rec.ID).Error("Failed to process document")
		}
		if errors.Is(err, errRecovered) {
			j.rec.recordCrash(ctx, before, document.StatusUploadError)
		}
		report.Add(outcome)
	}

	report.finish(start)
	j.logger.WithFields(report.Fields()).Info("Upload and check finished")
	return report, nil
}

// discover turns new LMS answers into pending document records.
func (j *IngestionJob) discover(ctx context.Context, report *RunReport) {
	answers, err := j.feed.ListNew(ctx, j.opts.BatchSize)
	if err != nil {
		j.logger.WithError(err).Error("Failed to list new answers, discovery skipped for this run")
		return
	}

	settingsCache := make(map[int64]*lms.ModuleSettings)
	for _, a := range answers {
		log := j.logger.WithFields(logrus.Fields{"answer_id": a.AnswerID, "module_id": a.ModuleID, "doctype": a.DocType})

		settings, ok := settingsCache[a.ModuleID]
		if !ok {
			settings, err = j.modules.Get(ctx, a.ModuleID)
			if err != nil {
				if !errors.Is(err, lms.ErrModuleNotFound) {
					log.WithError(err).Warn("Failed to load module settings, answer left for the next run")
				}
				continue
			}
			settingsCache[a.ModuleID] = settings
		}
		if !settings.Participates(a.DocType) {
			continue
		}

		rec := a.ToRecord(settings.WorkType)
		inserted, err := j.docs.Enqueue(ctx, rec)
		if err != nil {
			log.WithError(err).Error("Failed to enqueue answer")
			report.Add(OutcomeFailed)
			continue
		}
		if inserted {
			j.rec.note(ctx, rec, actionlog.ActionQueued, "")
			report.Add(OutcomeQueued)
			continue
		}

		report.Add(OutcomeReused)
		if rec.HasExternalID() {
			j.refreshAttributes(ctx, rec)
		}
	}
}

// refreshAttributes pushes the new attempt metadata of a reused record.
// Failures are logged only; the stored document stays valid.
func (j *IngestionJob) refreshAttributes(ctx context.Context, rec *document.Record) {
	err := j.client.UpdateAttributes(ctx, remote.DocumentID(rec.ExternalID.String), attributesOf(rec))
	if err != nil {
		j.rec.docLogger(rec).WithError(err).Warn("Failed to update remote document attributes")
		j.rec.note(ctx, rec, actionlog.ActionErrorReceived, "attribute update failed: "+remote.UserMessage(err))
		return
	}
	j.rec.note(ctx, rec, actionlog.ActionAttributesUpdated, fmt.Sprintf("attempt=%d", rec.Attempt))
}

// evictSuperseded removes indexed documents replaced by a newer attempt from
// the index. One call per document per run; failures wait for the next run.
func (j *IngestionJob) evictSuperseded(ctx context.Context, report *RunReport) {
	superseded, err := j.docs.ListSupersededIndexed(ctx, j.opts.BatchSize)
	if err != nil {
		j.logger.WithError(err).Error("Failed to list superseded indexed documents")
		return
	}

	for _, rec := range superseded {
		from := rec.Status
		j.rec.note(ctx, rec, actionlog.ActionIndexRemoveStart, "")
		if err := j.client.SetIndexed(ctx, remote.DocumentID(rec.ExternalID.String), false); err != nil {
			j.rec.docLogger(rec).WithError(err).Warn("Failed to remove superseded document from index")
			j.rec.note(ctx, rec, actionlog.ActionErrorReceived, "index removal failed: "+remote.UserMessage(err))
			report.Add(OutcomeEvictFailed)
			continue
		}
		rec.SetStatus(document.StatusChecked)
		if err := j.rec.commit(ctx, rec, from, actionlog.ActionIndexRemoveEnd, ""); err != nil && !errors.Is(err, document.ErrStaleTransition) {
			j.rec.docLogger(rec).WithError(err).Error("Failed to store index removal")
			report.Add(OutcomeEvictFailed)
			continue
		}
		report.Add(OutcomeEvicted)
	}
}

// upload extracts, length-checks and uploads one document.
func (j *IngestionJob) upload(ctx context.Context, rec *document.Record) (string, error) {
	from := rec.Status
	log := j.rec.docLogger(rec)

	content, err := j.content.Extract(ctx, rec)
	if errors.Is(err, lms.ErrContentNotFound) {
		rec.SetStatus(document.StatusNotFound)
		return j.store(ctx, rec, from, actionlog.ActionNotFound, "", OutcomeNotFound)
	}
	if err != nil {
		log.WithError(err).Warn("Failed to extract submission content")
		rec.Fail(document.StatusUploadError, msgContentUnreadable)
		return j.store(ctx, rec, from, actionlog.ActionErrorReceived, msgContentUnreadable, OutcomeFailed)
	}

	if words := content.WordCount(); words < j.opts.MinWordCount {
		rec.SetStatus(document.StatusTooShort)
		detail := fmt.Sprintf("%d words, minimum %d", words, j.opts.MinWordCount)
		return j.store(ctx, rec, from, actionlog.ActionTooShort, detail, OutcomeTooShort)
	}

	rec.UploadStartedAt = sql.NullTime{Time: j.now(), Valid: true}
	j.rec.note(ctx, rec, actionlog.ActionUploadStart, content.Filename)

	id, err := j.client.Upload(ctx, remote.Upload{
		Content:         content.Data,
		Filename:        content.Filename,
		FileType:        content.FileType,
		OwnerExternalID: strconv.FormatInt(rec.UserID, 10),
		Attributes:      attributesOf(rec),
	})
	if err != nil {
		transport := remote.IsTransport(err)
		log.WithError(err).WithField("transport", transport).Warn("Upload to originality service failed")
		if transport {
			rec.FailTransient(document.StatusUploadError, remote.UserMessage(err))
		} else {
			rec.Fail(document.StatusUploadError, remote.UserMessage(err))
		}
		return j.store(ctx, rec, from, actionlog.ActionErrorReceived, remote.UserMessage(err), OutcomeFailed)
	}

	rec.ExternalID = sql.NullString{String: string(id), Valid: true}
	rec.UploadEndedAt = sql.NullTime{Time: j.now(), Valid: true}
	rec.SetStatus(document.StatusUploaded)
	return j.store(ctx, rec, from, actionlog.ActionUploadEnd, "", OutcomeUploaded)
}

func (j *IngestionJob) store(ctx context.Context, rec *document.Record, from document.Status, action actionlog.ActionType, detail, outcome string) (string, error) {
	if err := j.rec.commit(ctx, rec, from, action, detail); err != nil {
		if errors.Is(err, document.ErrStaleTransition) {
			return OutcomeSkipped, nil
		}
		return OutcomeFailed, err
	}
	return outcome, nil
}

func attributesOf(rec *document.Record) remote.Attributes {
	title := rec.Filename
	if title == "" {
		title = fmt.Sprintf("%s #%d", rec.DocType, rec.AnswerID)
	}
	return remote.Attributes{
		Author:    strconv.FormatInt(rec.UserID, 10),
		Title:     title,
		CourseID:  rec.CourseID,
		ModuleID:  rec.ModuleID,
		AnswerID:  rec.AnswerID,
		Attempt:   rec.Attempt,
		WorkType:  rec.WorkType,
		AddedDate: rec.AddedAt,
	}
}

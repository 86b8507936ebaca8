// internal/domain/document/document.go
package document

import (
	"database/sql"
	"errors"
	"math"
	"time"
)

var (
	ErrNotFound = errors.New("document not found")
	// ErrStaleTransition is returned when the stored status no longer matches
	// the status a caller based its transition on.
	ErrStaleTransition = errors.New("document status changed concurrently")
)

// DocType identifies where the checked content comes from.
type DocType string

const (
	DocTypeFile           DocType = "file"
	DocTypeForumText      DocType = "forum-text"
	DocTypeAssignmentText DocType = "assignment-text"
	DocTypeWorkshopText   DocType = "workshop-text"
	DocTypeQuizEssay      DocType = "quiz-essay"
)

// IsText reports whether the document is an inline text submission.
func (t DocType) IsText() bool {
	switch t {
	case DocTypeForumText, DocTypeAssignmentText, DocTypeWorkshopText, DocTypeQuizEssay:
		return true
	}
	return false
}

// Valid reports whether t is a known doctype.
func (t DocType) Valid() bool {
	return t == DocTypeFile || t.IsText()
}

// ReportLinks are the report URLs handed out by the checking service.
type ReportLinks struct {
	Edit  string
	Read  string
	Short string
}

// Result holds the scores of a finished check. Percentages are 0..100.
type Result struct {
	Plagiarism   float64
	Legal        float64
	SelfCite     float64
	Originality  float64
	IsSuspicious bool
	Links        ReportLinks
}

// Originality computes round(100 - plagiarism - legal) clamped to [0, 100].
// Self-citation is part of the similarity share and is not subtracted.
func Originality(plagiarism, legal float64) float64 {
	v := math.Round(100 - plagiarism - legal)
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Record is a document submitted for checking.
// Corresponds to the 'originality_documents' table.
type Record struct {
	ID         int64
	DocType    DocType
	CourseID   int64
	ModuleID   int64
	ActivityID int64 // assignment, discussion or workshop id
	AnswerID   int64
	UserID     int64
	Attempt    int
	// ContentHash identifies the submitted content across a student's edit cycle.
	ContentHash string
	Filename    string
	ExternalID  sql.NullString // opaque remote handle, set once
	Status      Status
	Error       sql.NullString
	// AutoRetry marks an upload-error the ingestion job picks up again on its
	// own. Rejections by the checking service stay put until a manual retry.
	AutoRetry bool

	AddedAt         time.Time
	UploadStartedAt sql.NullTime
	UploadEndedAt   sql.NullTime
	CheckStartedAt  sql.NullTime
	CheckEndedAt    sql.NullTime

	Result         *Result // nil until the check finished
	WorkType       string
	SelfChecksUsed int
	UpdatedAt      time.Time
}

// HasExternalID reports whether the document was uploaded.
func (r *Record) HasExternalID() bool {
	return r.ExternalID.Valid && r.ExternalID.String != ""
}

// AwaitsUpload reports whether the ingestion job should pick the record up:
// pending documents and upload errors marked for automatic retry.
func (r *Record) AwaitsUpload() bool {
	switch Classify(r.Status).(type) {
	case Pending:
		return true
	case Retryable:
		return Uploadable(r.Status) && r.AutoRetry
	default:
		return false
	}
}

// SetStatus moves the record to s. Leaving the error statuses clears the
// stored error.
func (r *Record) SetStatus(s Status) {
	r.Status = s
	r.AutoRetry = false
	if !s.IsError() {
		r.Error = sql.NullString{}
	}
}

// Fail moves the record to an error status with the given message. The
// failure is not retried automatically.
func (r *Record) Fail(s Status, message string) {
	r.Status = s
	r.AutoRetry = false
	r.Error = sql.NullString{String: message, Valid: message != ""}
}

// FailTransient is Fail for failures the next scheduled run may clear, such
// as a lost connection to the checking service.
func (r *Record) FailTransient(s Status, message string) {
	r.Fail(s, message)
	r.AutoRetry = true
}

// Clone returns a copy that shares no mutable state with r.
func (r *Record) Clone() *Record {
	c := *r
	if r.Result != nil {
		res := *r.Result
		c.Result = &res
	}
	return &c
}

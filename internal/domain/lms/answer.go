// internal/domain/lms/answer.go
package lms

import (
	"context"
	"errors"
	"strings"
	"time"

	"originality_sync/internal/domain/document"
)

var ErrContentNotFound = errors.New("no extractable content")

// Answer is a submission detected in the LMS.
type Answer struct {
	DocType     document.DocType
	CourseID    int64
	ModuleID    int64
	ActivityID  int64
	AnswerID    int64
	UserID      int64
	Attempt     int
	ContentHash string
	Filename    string
	SubmittedAt time.Time
}

// ToRecord builds the pending document record for the answer.
func (a *Answer) ToRecord(workType string) *document.Record {
	return &document.Record{
		DocType:     a.DocType,
		CourseID:    a.CourseID,
		ModuleID:    a.ModuleID,
		ActivityID:  a.ActivityID,
		AnswerID:    a.AnswerID,
		UserID:      a.UserID,
		Attempt:     a.Attempt,
		ContentHash: a.ContentHash,
		Filename:    a.Filename,
		Status:      document.StatusPendingUpload,
		WorkType:    workType,
	}
}

// AnswerFeed lists answers that have no document record yet, oldest first.
// Only answers whose module checks their doctype are listed.
type AnswerFeed interface {
	ListNew(ctx context.Context, limit int) ([]*Answer, error)
}

// Content is the extracted payload of a document.
type Content struct {
	Data     []byte // bytes sent to the checking service
	Text     string // plain text used for the length check
	Filename string
	FileType string // extension with leading dot
}

// WordCount counts whitespace separated words of the plain text.
func (c *Content) WordCount() int {
	return len(strings.Fields(c.Text))
}

// ContentSource extracts the content of a document. It returns
// ErrContentNotFound when the submission no longer holds anything to check.
type ContentSource interface {
	Extract(ctx context.Context, rec *document.Record) (*Content, error)
}

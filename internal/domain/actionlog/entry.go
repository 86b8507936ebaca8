// internal/domain/actionlog/entry.go
package actionlog

import (
	"database/sql"
	"time"

	"originality_sync/internal/domain/document"
)

// ActionType identifies a lifecycle event. The ids match the rows seeded into
// 'originality_action_types'.
type ActionType int16

const (
	ActionQueued            ActionType = 1
	ActionUploadStart       ActionType = 2
	ActionUploadEnd         ActionType = 3
	ActionCheckStart        ActionType = 4
	ActionVerificationStart ActionType = 5
	ActionVerificationEnd   ActionType = 6
	ActionIndexAddStart     ActionType = 7
	ActionIndexAddEnd       ActionType = 8
	ActionIndexRemoveStart  ActionType = 9
	ActionIndexRemoveEnd    ActionType = 10
	ActionResultUpdated     ActionType = 11
	ActionErrorReceived     ActionType = 12
	ActionTooShort          ActionType = 13
	ActionNotFound          ActionType = 14
	ActionAttributesUpdated ActionType = 15
)

var actionNames = map[ActionType]string{
	ActionQueued:            "queued",
	ActionUploadStart:       "upload-start",
	ActionUploadEnd:         "upload-end",
	ActionCheckStart:        "check-start",
	ActionVerificationStart: "verification-start",
	ActionVerificationEnd:   "verification-end",
	ActionIndexAddStart:     "index-add-start",
	ActionIndexAddEnd:       "index-add-end",
	ActionIndexRemoveStart:  "index-remove-start",
	ActionIndexRemoveEnd:    "index-remove-end",
	ActionResultUpdated:     "result-updated",
	ActionErrorReceived:     "error-received",
	ActionTooShort:          "too-short",
	ActionNotFound:          "not-found",
	ActionAttributesUpdated: "attributes-updated",
}

func (a ActionType) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown"
}

// Entry is one immutable audit record.
// Corresponds to the 'originality_action_log' table.
type Entry struct {
	ID         int64
	DocumentID int64
	ExternalID sql.NullString
	Action     ActionType
	Status     document.Status // snapshot after the event
	CourseID   int64
	ModuleID   int64
	UserID     int64
	Detail     string
	CreatedAt  time.Time
}

// NewEntry builds an entry carrying the document's context and status snapshot.
func NewEntry(rec *document.Record, action ActionType, detail string) *Entry {
	return &Entry{
		DocumentID: rec.ID,
		ExternalID: rec.ExternalID,
		Action:     action,
		Status:     rec.Status,
		CourseID:   rec.CourseID,
		ModuleID:   rec.ModuleID,
		UserID:     rec.UserID,
		Detail:     detail,
	}
}

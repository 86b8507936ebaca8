// internal/domain/remote/client.go
package remote

import (
	"context"
	"time"
)

// DocumentID is the opaque handle the checking service returns for an
// uploaded document. It must round-trip through storage unchanged.
type DocumentID string

// CheckState is the remote verification state of a document.
type CheckState string

const (
	StateNone       CheckState = "None"
	StateInProgress CheckState = "InProgress"
	StateReady      CheckState = "Ready"
	StateFailed     CheckState = "Failed"
)

// Attributes are the descriptive fields attached to a remote document.
type Attributes struct {
	Author    string
	Title     string
	CourseID  int64
	ModuleID  int64
	AnswerID  int64
	Attempt   int
	WorkType  string
	AddedDate time.Time
}

// Upload describes one document to send.
type Upload struct {
	Content         []byte
	Filename        string
	FileType        string // extension with leading dot, e.g. ".pdf"
	OwnerExternalID string
	Attributes      Attributes
}

// Summary is the report of a finished check.
type Summary struct {
	Plagiarism     float64
	Legal          float64
	SelfCite       float64
	IsSuspicious   bool
	ReportEditLink string
	ReportReadLink string
	ShortLink      string
}

// StatusReport is the answer to a status poll. Summary is set only when
// State is StateReady.
type StatusReport struct {
	State      CheckState
	WaitTime   time.Duration
	FailDetail string
	Summary    *Summary
}

// Credentials authenticate against the checking service.
type Credentials struct {
	Endpoint string
	Login    string
	Password string
	Company  string
}

// Complete reports whether every field needed to talk to the service is set.
func (c Credentials) Complete() bool {
	return c.Endpoint != "" && c.Login != "" && c.Password != "" && c.Company != ""
}

// AccountStatus describes the tariff of the configured account.
type AccountStatus struct {
	PlanName        string
	Expiration      time.Time
	TotalChecks     int
	RemainingChecks int
}

// Client is the checking service as seen by the pipeline. Every call may
// fail independently; failures are reported as *Error.
type Client interface {
	Upload(ctx context.Context, u Upload) (DocumentID, error)
	UpdateAttributes(ctx context.Context, id DocumentID, attrs Attributes) error
	StartCheck(ctx context.Context, id DocumentID) error
	GetStatus(ctx context.Context, id DocumentID) (*StatusReport, error)
	SetIndexed(ctx context.Context, id DocumentID, addToIndex bool) error
	GetReport(ctx context.Context, id DocumentID) (*Summary, error)
	CheckAccountStatus(ctx context.Context, creds Credentials) (*AccountStatus, error)
}

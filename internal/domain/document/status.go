// internal/domain/document/status.go
package document

// Status is the persisted lifecycle state of a document. The set is closed;
// the database carries a CHECK constraint with the same values.
type Status string

const (
	StatusPendingUpload Status = "pending-upload"
	StatusUploaded      Status = "uploaded"
	StatusChecking      Status = "checking"
	StatusChecked       Status = "checked"
	StatusIndexed       Status = "indexed"

	StatusUploadError   Status = "upload-error"
	StatusCheckingError Status = "checking-error"
	StatusCheckFailed   Status = "check-failed"
	StatusStatusError   Status = "status-error"
	StatusIndexError    Status = "index-error"

	StatusTooShort Status = "too-short"
	StatusNotFound Status = "not-found"
)

// AllStatuses lists every status in pipeline order.
var AllStatuses = []Status{
	StatusPendingUpload, StatusUploaded, StatusChecking, StatusChecked, StatusIndexed,
	StatusUploadError, StatusCheckingError, StatusCheckFailed, StatusStatusError, StatusIndexError,
	StatusTooShort, StatusNotFound,
}

// Valid reports whether s belongs to the closed status set.
func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsError reports whether s is one of the error statuses, the only ones
// allowed to carry an error message.
func (s Status) IsError() bool {
	switch s {
	case StatusUploadError, StatusCheckingError, StatusCheckFailed, StatusStatusError, StatusIndexError:
		return true
	}
	return false
}

// HasResult reports whether check results are expected to be present.
func (s Status) HasResult() bool {
	switch s {
	case StatusChecked, StatusIndexed, StatusIndexError:
		return true
	}
	return false
}

// Stage is the classified view of a Status. It is one of Pending, InProgress,
// Terminal or Retryable.
type Stage interface {
	isStage()
}

// Pending: the document waits for its first upload.
type Pending struct{}

// InProgress: the remote service owns the next step.
type InProgress struct {
	Sub Status // uploaded or checking
}

// Outcome is the final result of a document that left the pipeline.
type Outcome string

const (
	OutcomeChecked     Outcome = "checked"
	OutcomeIndexed     Outcome = "indexed"
	OutcomeCheckFailed Outcome = "check-failed"
	OutcomeTooShort    Outcome = "too-short"
	OutcomeNotFound    Outcome = "not-found"
)

// Terminal: no job advances the document any further.
type Terminal struct {
	Outcome Outcome
}

// ErrorKind names the pipeline step that failed.
type ErrorKind string

const (
	ErrorKindUpload ErrorKind = "upload"
	ErrorKindStart  ErrorKind = "start-check"
	ErrorKindStatus ErrorKind = "status"
	ErrorKindIndex  ErrorKind = "index"
)

// Retryable: the last step failed and the next scheduled run tries again.
type Retryable struct {
	Kind ErrorKind
}

func (Pending) isStage()    {}
func (InProgress) isStage() {}
func (Terminal) isStage()   {}
func (Retryable) isStage()  {}

// Classify maps a persisted status onto its stage. Unknown values are
// reported as a failed check so they never re-enter the pipeline.
func Classify(s Status) Stage {
	switch s {
	case StatusPendingUpload:
		return Pending{}
	case StatusUploaded, StatusChecking:
		return InProgress{Sub: s}
	case StatusChecked:
		return Terminal{Outcome: OutcomeChecked}
	case StatusIndexed:
		return Terminal{Outcome: OutcomeIndexed}
	case StatusCheckFailed:
		return Terminal{Outcome: OutcomeCheckFailed}
	case StatusTooShort:
		return Terminal{Outcome: OutcomeTooShort}
	case StatusNotFound:
		return Terminal{Outcome: OutcomeNotFound}
	case StatusUploadError:
		return Retryable{Kind: ErrorKindUpload}
	case StatusCheckingError:
		return Retryable{Kind: ErrorKindStart}
	case StatusStatusError:
		return Retryable{Kind: ErrorKindStatus}
	case StatusIndexError:
		return Retryable{Kind: ErrorKindIndex}
	default:
		return Terminal{Outcome: OutcomeCheckFailed}
	}
}

// Reconcilable reports whether the status-polling step applies to s:
// in-progress documents plus the status, start-check and index retry states.
func Reconcilable(s Status) bool {
	switch st := Classify(s).(type) {
	case InProgress:
		return true
	case Retryable:
		return st.Kind != ErrorKindUpload
	case Pending, Terminal:
		return false
	default:
		return false
	}
}

// Uploadable reports whether a document in status s may be (re)uploaded.
// Upload errors are only retried automatically when the record says so.
func Uploadable(s Status) bool {
	switch st := Classify(s).(type) {
	case Pending:
		return true
	case Retryable:
		return st.Kind == ErrorKindUpload
	default:
		return false
	}
}

// ReconcilableStatuses returns the statuses selected by the reconciliation job.
func ReconcilableStatuses() []Status {
	return filterStatuses(Reconcilable)
}

func filterStatuses(keep func(Status) bool) []Status {
	out := make([]Status, 0, len(AllStatuses))
	for _, s := range AllStatuses {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

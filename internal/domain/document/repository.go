// internal/domain/document/repository.go
package document

import (
	"context"
)

// Repository persists document records.
type Repository interface {
	// Enqueue inserts a new record or, when one exists for the same doctype,
	// answer and content hash, refreshes its attempt metadata. rec is filled
	// with the stored row; inserted reports which of the two happened.
	Enqueue(ctx context.Context, rec *Record) (inserted bool, err error)
	GetByID(ctx context.Context, id int64) (*Record, error)
	// ListByStatus returns up to limit records in the given statuses, oldest added first.
	ListByStatus(ctx context.Context, statuses []Status, limit int) ([]*Record, error)
	// ListUploadable returns up to limit records awaiting upload (see
	// Record.AwaitsUpload). Pending records are ordered by when they were
	// added, automatic retries by their last failure.
	ListUploadable(ctx context.Context, limit int) ([]*Record, error)
	// ListSupersededIndexed returns indexed records for which a newer attempt
	// by the same user in the same module exists.
	ListSupersededIndexed(ctx context.Context, limit int) ([]*Record, error)
	// Transition stores the mutable fields of rec if the stored status still
	// equals from, and returns ErrStaleTransition otherwise. The external id
	// is only written when none is stored yet.
	Transition(ctx context.Context, rec *Record, from Status) error
}

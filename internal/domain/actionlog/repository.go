// internal/domain/actionlog/repository.go
package actionlog

import (
	"context"
	"time"
)

// Repository is the append-only audit trail.
type Repository interface {
	Append(ctx context.Context, e *Entry) error
	ListByDocument(ctx context.Context, documentID int64) ([]*Entry, error)
	// DeleteOlderThan removes entries created strictly before cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

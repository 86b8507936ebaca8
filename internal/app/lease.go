// internal/app/lease.go
package app

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultLeaseCapacity = 4096

// LeaseRegistry hands out short-lived per-document leases so that at most one
// status poll per document is in flight inside this process. Leases expire
// on their own after ttl even if the holder never releases them.
type LeaseRegistry struct {
	mu   sync.Mutex
	held *expirable.LRU[int64, string]
}

func NewLeaseRegistry(ttl time.Duration) *LeaseRegistry {
	return &LeaseRegistry{
		held: expirable.NewLRU[int64, string](defaultLeaseCapacity, nil, ttl),
	}
}

// Acquire takes the lease for documentID. It returns the lease token and
// false if another holder owns an unexpired lease.
func (l *LeaseRegistry) Acquire(documentID int64) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held.Get(documentID); ok {
		return "", false
	}
	token := uuid.NewString()
	l.held.Add(documentID, token)
	return token, true
}

// Release gives the lease back. A token from an expired and re-acquired
// lease is ignored.
func (l *LeaseRegistry) Release(documentID int64, token string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if current, ok := l.held.Peek(documentID); ok && current == token {
		l.held.Remove(documentID)
	}
}

package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"originality_sync/internal/domain/actionlog"
	"originality_sync/internal/domain/document"
	"originality_sync/internal/domain/lms"
	"originality_sync/internal/domain/remote"
)

// mockClient implements remote.Client for testing.
type mockClient struct{ mock.Mock }

func (m *mockClient) Upload(ctx context.Context, u remote.Upload) (remote.DocumentID, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(remote.DocumentID), args.Error(1)
}

func (m *mockClient) UpdateAttributes(ctx context.Context, id remote.DocumentID, attrs remote.Attributes) error {
	args := m.Called(ctx, id, attrs)
	return args.Error(0)
}

func (m *mockClient) StartCheck(ctx context.Context, id remote.DocumentID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockClient) GetStatus(ctx context.Context, id remote.DocumentID) (*remote.StatusReport, error) {
	args := m.Called(ctx, id)
	if report := args.Get(0); report != nil {
		return report.(*remote.StatusReport), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockClient) SetIndexed(ctx context.Context, id remote.DocumentID, addToIndex bool) error {
	args := m.Called(ctx, id, addToIndex)
	return args.Error(0)
}

func (m *mockClient) GetReport(ctx context.Context, id remote.DocumentID) (*remote.Summary, error) {
	args := m.Called(ctx, id)
	if summary := args.Get(0); summary != nil {
		return summary.(*remote.Summary), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockClient) CheckAccountStatus(ctx context.Context, creds remote.Credentials) (*remote.AccountStatus, error) {
	args := m.Called(ctx, creds)
	if status := args.Get(0); status != nil {
		return status.(*remote.AccountStatus), args.Error(1)
	}
	return nil, args.Error(1)
}

// mockModules implements lms.ModuleSettingsProvider for testing.
type mockModules struct{ mock.Mock }

func (m *mockModules) Get(ctx context.Context, moduleID int64) (*lms.ModuleSettings, error) {
	args := m.Called(ctx, moduleID)
	if settings := args.Get(0); settings != nil {
		return settings.(*lms.ModuleSettings), args.Error(1)
	}
	return nil, args.Error(1)
}

// mockFeed implements lms.AnswerFeed for testing.
type mockFeed struct{ mock.Mock }

func (m *mockFeed) ListNew(ctx context.Context, limit int) ([]*lms.Answer, error) {
	args := m.Called(ctx, limit)
	if answers := args.Get(0); answers != nil {
		return answers.([]*lms.Answer), args.Error(1)
	}
	return nil, args.Error(1)
}

// mockContent implements lms.ContentSource for testing.
type mockContent struct{ mock.Mock }

func (m *mockContent) Extract(ctx context.Context, rec *document.Record) (*lms.Content, error) {
	args := m.Called(ctx, rec.ID)
	if content := args.Get(0); content != nil {
		return content.(*lms.Content), args.Error(1)
	}
	return nil, args.Error(1)
}

// mockNotifier implements alert.Notifier for testing.
type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Notify(ctx context.Context, text string) error {
	args := m.Called(ctx, text)
	return args.Error(0)
}

// memoryStore is an in-memory document and action log repository with the
// same compare-and-set semantics as the Postgres implementation.
type memoryStore struct {
	mu      sync.Mutex
	docs    map[int64]*document.Record
	entries []*actionlog.Entry
	nextID  int64

	listErr       error
	transitionErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{docs: make(map[int64]*document.Record)}
}

// put stores a copy of rec, assigning an id when missing.
func (s *memoryStore) put(rec *document.Record) *document.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == 0 {
		s.nextID++
		rec.ID = s.nextID
	} else if rec.ID > s.nextID {
		s.nextID = rec.ID
	}
	if rec.AddedAt.IsZero() {
		rec.AddedAt = time.Now()
	}
	s.docs[rec.ID] = rec.Clone()
	return rec
}

func (s *memoryStore) get(id int64) *document.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.docs[id]; ok {
		return rec.Clone()
	}
	return nil
}

func (s *memoryStore) actionsOf(id int64) []actionlog.ActionType {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []actionlog.ActionType
	for _, e := range s.entries {
		if e.DocumentID == id {
			out = append(out, e.Action)
		}
	}
	return out
}

func (s *memoryStore) detailsOf(id int64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, e := range s.entries {
		if e.DocumentID == id {
			out = append(out, e.Detail)
		}
	}
	return out
}

func (s *memoryStore) Enqueue(_ context.Context, rec *document.Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.docs {
		if existing.DocType == rec.DocType && existing.AnswerID == rec.AnswerID && existing.ContentHash == rec.ContentHash {
			existing.Attempt = rec.Attempt
			*rec = *existing.Clone()
			return false, nil
		}
	}
	s.nextID++
	rec.ID = s.nextID
	rec.AddedAt = time.Now()
	s.docs[rec.ID] = rec.Clone()
	return true, nil
}

func (s *memoryStore) GetByID(_ context.Context, id int64) (*document.Record, error) {
	if rec := s.get(id); rec != nil {
		return rec, nil
	}
	return nil, document.ErrNotFound
}

func (s *memoryStore) ListByStatus(_ context.Context, statuses []document.Status, limit int) ([]*document.Record, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*document.Record
	for _, rec := range s.docs {
		for _, st := range statuses {
			if rec.Status == st {
				out = append(out, rec.Clone())
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AddedAt.Equal(out[j].AddedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].AddedAt.Before(out[j].AddedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryStore) ListUploadable(_ context.Context, limit int) ([]*document.Record, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*document.Record
	for _, rec := range s.docs {
		if rec.AwaitsUpload() {
			out = append(out, rec.Clone())
		}
	}
	readyAt := func(rec *document.Record) time.Time {
		if rec.Status == document.StatusUploadError {
			return rec.UpdatedAt
		}
		return rec.AddedAt
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := readyAt(out[i]), readyAt(out[j])
		if a.Equal(b) {
			return out[i].ID < out[j].ID
		}
		return a.Before(b)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryStore) ListSupersededIndexed(_ context.Context, limit int) ([]*document.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*document.Record
	for _, rec := range s.docs {
		if rec.Status != document.StatusIndexed {
			continue
		}
		for _, other := range s.docs {
			if other.ID != rec.ID && other.UserID == rec.UserID && other.ModuleID == rec.ModuleID && other.Attempt > rec.Attempt {
				out = append(out, rec.Clone())
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryStore) Transition(_ context.Context, rec *document.Record, from document.Status) error {
	if s.transitionErr != nil {
		return s.transitionErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.docs[rec.ID]
	if !ok {
		return document.ErrNotFound
	}
	if stored.Status != from {
		return document.ErrStaleTransition
	}
	next := rec.Clone()
	next.AddedAt = stored.AddedAt
	if stored.HasExternalID() {
		next.ExternalID = stored.ExternalID
	}
	next.UpdatedAt = time.Now()
	s.docs[rec.ID] = next
	return nil
}

func (s *memoryStore) Append(_ context.Context, e *actionlog.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	cp.ID = int64(len(s.entries) + 1)
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.entries = append(s.entries, &cp)
	return nil
}

func (s *memoryStore) ListByDocument(_ context.Context, documentID int64) ([]*actionlog.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*actionlog.Entry
	for _, e := range s.entries {
		if e.DocumentID == documentID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memoryStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[:0]
	var deleted int64
	for _, e := range s.entries {
		if e.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return deleted, nil
}

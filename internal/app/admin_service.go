package app

import (
	"context"
	"fmt"

	"originality_sync/internal/domain/document"
	"originality_sync/internal/domain/remote"
)

// Custom application-level errors for admin service
var ErrAdminNotAuthorized = fmt.Errorf("performing user is not authorized as an admin")

type AdminService struct {
	client          remote.Client
	creds           remote.Credentials
	documents       *DocumentService
	jobs            map[string]Job
	adminTelegramID int64
}

func NewAdminService(client remote.Client, creds remote.Credentials, documents *DocumentService, jobs []Job, adminID int64) *AdminService {
	byName := make(map[string]Job, len(jobs))
	for _, j := range jobs {
		byName[j.Name()] = j
	}
	return &AdminService{
		client:          client,
		creds:           creds,
		documents:       documents,
		jobs:            byName,
		adminTelegramID: adminID,
	}
}

// CheckAccount runs the connectivity test against the checking service.
func (s *AdminService) CheckAccount(ctx context.Context) (*remote.AccountStatus, error) {
	if !s.creds.Complete() {
		return nil, ErrNotConfigured
	}
	status, err := s.client.CheckAccountStatus(ctx, s.creds)
	if err != nil {
		return nil, fmt.Errorf("account status check failed: %w", err)
	}
	return status, nil
}

// AccountStatus is CheckAccount restricted to the configured admin.
func (s *AdminService) AccountStatus(ctx context.Context, performingAdminID int64) (*remote.AccountStatus, error) {
	if performingAdminID != s.adminTelegramID {
		return nil, ErrAdminNotAuthorized
	}
	return s.CheckAccount(ctx)
}

// Document returns the snapshot of a document.
func (s *AdminService) Document(ctx context.Context, performingAdminID int64, id int64) (*document.Record, error) {
	if performingAdminID != s.adminTelegramID {
		return nil, ErrAdminNotAuthorized
	}
	return s.documents.Get(ctx, id)
}

// RefreshDocument runs the interactive update path for a document.
func (s *AdminService) RefreshDocument(ctx context.Context, performingAdminID int64, id int64) (*document.Record, error) {
	if performingAdminID != s.adminTelegramID {
		return nil, ErrAdminNotAuthorized
	}
	return s.documents.Refresh(ctx, id)
}

// RetryUpload queues a document in upload-error for another upload.
func (s *AdminService) RetryUpload(ctx context.Context, performingAdminID int64, id int64) (*document.Record, error) {
	if performingAdminID != s.adminTelegramID {
		return nil, ErrAdminNotAuthorized
	}
	return s.documents.RetryUpload(ctx, id)
}

// RunJob executes a job by name outside its schedule.
func (s *AdminService) RunJob(ctx context.Context, performingAdminID int64, name string) (*RunReport, error) {
	if performingAdminID != s.adminTelegramID {
		return nil, ErrAdminNotAuthorized
	}
	return s.Run(ctx, name)
}

// Run executes a job by name without an admin check (CLI use).
func (s *AdminService) Run(ctx context.Context, name string) (*RunReport, error) {
	job, ok := s.jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return job.Execute(ctx)
}

// JobNames lists the registered jobs.
func (s *AdminService) JobNames() []string {
	names := make([]string, 0, len(s.jobs))
	for _, name := range []string{JobUploadAndCheck, JobControlCheckStatus, JobClearActionLog} {
		if _, ok := s.jobs[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

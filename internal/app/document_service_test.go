package app

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"originality_sync/internal/domain/actionlog"
	"originality_sync/internal/domain/document"
	"originality_sync/internal/domain/remote"
	"originality_sync/internal/infra/logger"
)

func setupDocumentService(creds remote.Credentials) (*DocumentService, *memoryStore, *mockClient, *LeaseRegistry) {
	r, store, client, _, _ := setupReconcilerTestSuite()
	leases := NewLeaseRegistry(time.Minute)
	return NewDocumentService(store, store, r, client, leases, creds, logger.Discard()), store, client, leases
}

func TestDocumentServiceGetNotFound(t *testing.T) {
	svc, _, _, _ := setupDocumentService(testCreds)
	_, err := svc.Get(context.Background(), 404)
	assert.ErrorIs(t, err, document.ErrNotFound)
}

func TestRefreshTerminalDocumentIsNoop(t *testing.T) {
	svc, store, client, _ := setupDocumentService(testCreds)
	rec := inFlightDoc(1, document.StatusChecked)
	rec.Result = &document.Result{Plagiarism: 30, Legal: 10, Originality: 60}
	store.put(rec)

	got, err := svc.Refresh(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, document.StatusChecked, got.Status)
	assert.Equal(t, 60.0, got.Result.Originality)
	assert.Empty(t, client.Calls)
	assert.Empty(t, store.actionsOf(1))
}

func TestRefreshAdvancesInFlightDocument(t *testing.T) {
	svc, store, client, _ := setupDocumentService(testCreds)
	store.put(inFlightDoc(1, document.StatusUploaded))

	client.On("GetStatus", mock.Anything, remote.DocumentID("doc-1")).
		Return(&remote.StatusReport{State: remote.StateNone}, nil)
	client.On("StartCheck", mock.Anything, remote.DocumentID("doc-1")).Return(nil)

	got, err := svc.Refresh(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, document.StatusChecking, got.Status)
	assert.Equal(t, []actionlog.ActionType{actionlog.ActionVerificationStart}, store.actionsOf(1))
}

func TestRefreshDebouncedWhileLeaseHeld(t *testing.T) {
	svc, store, client, leases := setupDocumentService(testCreds)
	store.put(inFlightDoc(1, document.StatusChecking))

	token, ok := leases.Acquire(1)
	require.True(t, ok)
	defer leases.Release(1, token)

	got, err := svc.Refresh(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, document.StatusChecking, got.Status)
	assert.Empty(t, client.Calls)
}

func TestRefreshNotConfigured(t *testing.T) {
	svc, store, client, _ := setupDocumentService(remote.Credentials{})
	store.put(inFlightDoc(1, document.StatusChecking))

	_, err := svc.Refresh(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Empty(t, client.Calls)
}

func TestReportRefetch(t *testing.T) {
	t.Run("checked document", func(t *testing.T) {
		svc, store, client, _ := setupDocumentService(testCreds)
		rec := inFlightDoc(1, document.StatusIndexed)
		rec.Result = &document.Result{Plagiarism: 30, Legal: 10, Originality: 60}
		store.put(rec)

		client.On("GetReport", mock.Anything, remote.DocumentID("doc-1")).
			Return(&remote.Summary{Plagiarism: 25, Legal: 10, ReportReadLink: "https://check.example/r/new"}, nil)

		got, err := svc.Report(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, document.StatusIndexed, got.Status)
		assert.Equal(t, 65.0, got.Result.Originality)
		assert.Equal(t, "https://check.example/r/new", store.get(1).Result.Links.Read)
		assert.Equal(t, []actionlog.ActionType{actionlog.ActionResultUpdated}, store.actionsOf(1))
	})

	t.Run("check not finished", func(t *testing.T) {
		svc, store, client, _ := setupDocumentService(testCreds)
		store.put(inFlightDoc(1, document.StatusChecking))

		_, err := svc.Report(context.Background(), 1)
		assert.ErrorIs(t, err, ErrReportUnavailable)
		assert.Empty(t, client.Calls)
	})

	t.Run("no external id", func(t *testing.T) {
		svc, store, _, _ := setupDocumentService(testCreds)
		rec := inFlightDoc(1, document.StatusChecked)
		rec.ExternalID = sql.NullString{}
		store.put(rec)

		_, err := svc.Report(context.Background(), 1)
		assert.ErrorIs(t, err, ErrReportUnavailable)
	})
}

func TestDocumentActionLog(t *testing.T) {
	svc, store, _, _ := setupDocumentService(testCreds)
	rec := store.put(inFlightDoc(1, document.StatusUploaded))
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, actionlog.NewEntry(rec, actionlog.ActionQueued, "")))
	require.NoError(t, store.Append(ctx, actionlog.NewEntry(rec, actionlog.ActionUploadEnd, "")))

	entries, err := svc.ActionLog(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, actionlog.ActionQueued, entries[0].Action)
	assert.Equal(t, actionlog.ActionUploadEnd, entries[1].Action)

	_, err = svc.ActionLog(ctx, 2)
	assert.ErrorIs(t, err, document.ErrNotFound)
}

func TestRetryUpload(t *testing.T) {
	svc, store, client, _ := setupDocumentService(testCreds)
	rejected := inFlightDoc(1, document.StatusUploadError)
	rejected.ExternalID = sql.NullString{}
	rejected.Fail(document.StatusUploadError, "File type is not supported")
	store.put(rejected)
	store.put(inFlightDoc(2, document.StatusChecking))

	got, err := svc.RetryUpload(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, document.StatusPendingUpload, got.Status)
	assert.False(t, got.Error.Valid)
	assert.True(t, store.get(1).AwaitsUpload())
	assert.Equal(t, []actionlog.ActionType{actionlog.ActionQueued}, store.actionsOf(1))

	_, err = svc.RetryUpload(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotRetryable)
	_, err = svc.RetryUpload(context.Background(), 2)
	assert.ErrorIs(t, err, ErrNotRetryable)
	_, err = svc.RetryUpload(context.Background(), 404)
	assert.ErrorIs(t, err, document.ErrNotFound)
	assert.Empty(t, client.Calls)
}

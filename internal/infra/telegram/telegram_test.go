package telegram

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"originality_sync/internal/app"
	"originality_sync/internal/domain/document"
	"originality_sync/internal/domain/remote"
	domaintg "originality_sync/internal/domain/telegram"
	"originality_sync/internal/infra/logger"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) Send(msg domaintg.Message) error {
	return m.Called(msg).Error(0)
}

func TestAdminNotifierSendsToAdminChat(t *testing.T) {
	client := new(mockClient)
	client.On("Send", domaintg.Message{ChatID: 12345, Text: "document #7 is suspicious", DisablePreview: true}).Return(nil).Once()

	notifier := NewAdminNotifier(client, 12345)
	require.NoError(t, notifier.Notify(context.Background(), "document #7 is suspicious"))
	client.AssertExpectations(t)
}

func TestAdminNotifierWrapsSendError(t *testing.T) {
	client := new(mockClient)
	client.On("Send", mock.Anything).Return(errors.New("chat not found"))

	err := NewAdminNotifier(client, 1).Notify(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestAdminNotifierHonoursCancelledContext(t *testing.T) {
	client := new(mockClient)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewAdminNotifier(client, 1).Notify(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
	client.AssertNotCalled(t, "Send", mock.Anything)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))

	long := strings.Repeat("я", 5000)
	got := truncate(long, maxMessageLength)
	assert.Equal(t, maxMessageLength, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestParseDocumentID(t *testing.T) {
	tests := []struct {
		args   []string
		wantID int64
		wantOK bool
	}{
		{[]string{"42"}, 42, true},
		{[]string{}, 0, false},
		{[]string{"42", "43"}, 0, false},
		{[]string{"abc"}, 0, false},
		{[]string{"-1"}, 0, false},
	}
	for _, tt := range tests {
		id, ok := parseDocumentID(tt.args)
		assert.Equal(t, tt.wantOK, ok, tt.args)
		assert.Equal(t, tt.wantID, id, tt.args)
	}
}

func TestDescribeError(t *testing.T) {
	log := logger.Discard()

	assert.Equal(t, msgUnauthorized, describeError(log, app.ErrAdminNotAuthorized, "p"))
	assert.Equal(t, msgNotConfigured, describeError(log, app.ErrNotConfigured, "p"))
	assert.Equal(t, "Документ не найден.", describeError(log, document.ErrNotFound, "p"))
	assert.Equal(t, "Ошибка: quota exceeded", describeError(log, remote.ApplicationError("quota exceeded"), "Ошибка"))
	assert.Equal(t, "Ошибка: "+remote.GenericFailureMessage, describeError(log, remote.TransportError(errors.New("dial")), "Ошибка"))
}

func TestFormatAccount(t *testing.T) {
	text := formatAccount(&remote.AccountStatus{
		PlanName:        "University",
		Expiration:      time.Date(2027, 1, 31, 0, 0, 0, 0, time.UTC),
		TotalChecks:     1000,
		RemainingChecks: 250,
	})
	assert.Contains(t, text, "Тариф: University")
	assert.Contains(t, text, "31.01.2027")
	assert.Contains(t, text, "250 из 1000")
}

func TestFormatDocument(t *testing.T) {
	added := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	rec := &document.Record{
		ID:           7,
		DocType:      document.DocTypeFile,
		Status:       document.StatusIndexed,
		AddedAt:      added,
		CheckEndedAt: sql.NullTime{Time: added.Add(time.Hour), Valid: true},
		Result: &document.Result{
			Plagiarism:   30,
			Legal:        10,
			Originality:  60,
			IsSuspicious: true,
			Links:        document.ReportLinks{Read: "https://check/read"},
		},
	}

	text := formatDocument(rec)
	assert.Contains(t, text, "Документ #7 (file)")
	assert.Contains(t, text, "проверен и проиндексирован")
	assert.Contains(t, text, "Оригинальность: 60%")
	assert.Contains(t, text, "подозрительный")
	assert.Contains(t, text, "https://check/read")
	assert.NotContains(t, text, "Ошибка")

	rec.Status = document.StatusUploadError
	rec.Error = sql.NullString{String: "quota exceeded", Valid: true}
	rec.Result = nil
	text = formatDocument(rec)
	assert.Contains(t, text, "ошибка загрузки")
	assert.Contains(t, text, "Ошибка: quota exceeded")
	assert.NotContains(t, text, "Оригинальность")
}

func TestStatusTitlesCoverEveryStatus(t *testing.T) {
	for _, s := range document.AllStatuses {
		_, ok := statusTitles[s]
		assert.True(t, ok, "missing title for %s", s)
	}
}

func TestAdminHelpListsJobs(t *testing.T) {
	help := adminHelp([]string{app.JobUploadAndCheck, app.JobClearActionLog})
	assert.Contains(t, help, "`upload_and_check`, `clear_action_log`")
	assert.Contains(t, help, "/refresh <ID>")
}

package document

import (
	"database/sql"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOriginality(t *testing.T) {
	tests := []struct {
		name       string
		plagiarism float64
		legal      float64
		want       float64
	}{
		{"clean", 0, 0, 100},
		{"typical", 30, 10, 60},
		{"rounds half up", 12.25, 10.25, 78},
		{"rounds down", 12.6, 0, 87},
		{"fully copied", 100, 0, 0},
		{"overlapping shares clamp at zero", 70, 40, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Originality(tt.plagiarism, tt.legal))
		})
	}
}

func TestOriginalityIdentity(t *testing.T) {
	for plag := 0.0; plag <= 100; plag += 7.3 {
		for legal := 0.0; plag+legal <= 100; legal += 4.9 {
			got := Originality(plag, legal)
			assert.LessOrEqual(t, math.Abs(got+plag+legal-100), 1.0, "plagiarism=%v legal=%v", plag, legal)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 100.0)
		}
	}
}

func TestRecordStatusChanges(t *testing.T) {
	rec := &Record{Status: StatusUploaded}

	rec.Fail(StatusStatusError, "service down")
	assert.Equal(t, StatusStatusError, rec.Status)
	assert.Equal(t, sql.NullString{String: "service down", Valid: true}, rec.Error)

	rec.SetStatus(StatusIndexError)
	assert.True(t, rec.Error.Valid, "moving between error statuses keeps the message")

	rec.SetStatus(StatusChecking)
	assert.False(t, rec.Error.Valid)
}

func TestRecordAwaitsUpload(t *testing.T) {
	rec := &Record{Status: StatusPendingUpload}
	assert.True(t, rec.AwaitsUpload())

	rec.Fail(StatusUploadError, "File type is not supported")
	assert.False(t, rec.AwaitsUpload(), "rejected uploads wait for a manual retry")

	rec.FailTransient(StatusUploadError, "connection refused")
	assert.True(t, rec.AwaitsUpload())
	assert.Equal(t, "connection refused", rec.Error.String)

	rec.SetStatus(StatusPendingUpload)
	assert.False(t, rec.AutoRetry)
	assert.True(t, rec.AwaitsUpload())

	rec.FailTransient(StatusStatusError, "timeout")
	assert.False(t, rec.AwaitsUpload(), "only upload errors are picked up by ingestion")

	rec.SetStatus(StatusUploaded)
	assert.False(t, rec.AwaitsUpload())
}

func TestRecordClone(t *testing.T) {
	rec := &Record{ID: 1, Result: &Result{Originality: 60}}
	c := rec.Clone()
	c.Result.Originality = 10
	c.Status = StatusChecked

	assert.Equal(t, 60.0, rec.Result.Originality)
	assert.Empty(t, rec.Status)
}

func TestDocTypes(t *testing.T) {
	assert.False(t, DocTypeFile.IsText())
	assert.True(t, DocTypeFile.Valid())
	for _, dt := range []DocType{DocTypeForumText, DocTypeAssignmentText, DocTypeWorkshopText, DocTypeQuizEssay} {
		assert.True(t, dt.IsText())
	}
	assert.False(t, DocType("video").Valid())
}

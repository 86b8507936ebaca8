package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		status Status
		want   Stage
	}{
		{StatusPendingUpload, Pending{}},
		{StatusUploaded, InProgress{Sub: StatusUploaded}},
		{StatusChecking, InProgress{Sub: StatusChecking}},
		{StatusChecked, Terminal{Outcome: OutcomeChecked}},
		{StatusIndexed, Terminal{Outcome: OutcomeIndexed}},
		{StatusCheckFailed, Terminal{Outcome: OutcomeCheckFailed}},
		{StatusTooShort, Terminal{Outcome: OutcomeTooShort}},
		{StatusNotFound, Terminal{Outcome: OutcomeNotFound}},
		{StatusUploadError, Retryable{Kind: ErrorKindUpload}},
		{StatusCheckingError, Retryable{Kind: ErrorKindStart}},
		{StatusStatusError, Retryable{Kind: ErrorKindStatus}},
		{StatusIndexError, Retryable{Kind: ErrorKindIndex}},
		{Status("archived"), Terminal{Outcome: OutcomeCheckFailed}},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.status))
		})
	}
}

func TestSelectionSets(t *testing.T) {
	assert.ElementsMatch(t,
		[]Status{StatusUploaded, StatusChecking, StatusCheckingError, StatusStatusError, StatusIndexError},
		ReconcilableStatuses())
	assert.ElementsMatch(t,
		[]Status{StatusPendingUpload, StatusUploadError},
		filterStatuses(Uploadable))

	for _, s := range AllStatuses {
		assert.False(t, Reconcilable(s) && Uploadable(s), "%s selected by both jobs", s)
	}
}

func TestStatusPredicates(t *testing.T) {
	errorStatuses := map[Status]bool{
		StatusUploadError: true, StatusCheckingError: true, StatusCheckFailed: true,
		StatusStatusError: true, StatusIndexError: true,
	}
	for _, s := range AllStatuses {
		assert.True(t, s.Valid())
		assert.Equal(t, errorStatuses[s], s.IsError(), string(s))
	}
	assert.False(t, Status("").Valid())
	assert.False(t, Status("queued").Valid())

	assert.True(t, StatusIndexError.HasResult())
	assert.False(t, StatusChecking.HasResult())
}

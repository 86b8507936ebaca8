package app

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"originality_sync/internal/domain/actionlog"
	"originality_sync/internal/infra/logger"
)

func TestRetentionJob(t *testing.T) {
	store := newMemoryStore()
	job := NewRetentionJob(store, 6, logger.Discard())
	job.now = func() time.Time { return fixedNow }

	cutoff := fixedNow.Add(-6 * 30 * 24 * time.Hour)
	assert.Equal(t, cutoff, job.Cutoff())

	ctx := context.Background()
	for _, created := range []time.Time{
		cutoff.Add(-time.Second),
		cutoff,
		cutoff.Add(time.Second),
		fixedNow,
	} {
		require.NoError(t, store.Append(ctx, &actionlog.Entry{DocumentID: 1, Action: actionlog.ActionQueued, CreatedAt: created}))
	}

	report, err := job.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Deleted)

	left, err := store.ListByDocument(ctx, 1)
	require.NoError(t, err)
	require.Len(t, left, 3)
	assert.Equal(t, cutoff, left[0].CreatedAt, "entries exactly at the cutoff are kept")
}

func TestRetentionJobClampsLongHorizons(t *testing.T) {
	store := newMemoryStore()
	ctx := context.Background()
	recent := fixedNow.AddDate(-10, 0, 0)
	require.NoError(t, store.Append(ctx, &actionlog.Entry{DocumentID: 1, CreatedAt: recent}))

	for _, months := range []int{MaxRetentionMonths, 4000, math.MaxInt} {
		job := NewRetentionJob(store, months, logger.Discard())
		job.now = func() time.Time { return fixedNow }

		cutoff := job.Cutoff()
		assert.True(t, cutoff.Before(fixedNow), "months=%d", months)
		assert.Equal(t, fixedNow.Add(-MaxRetentionMonths*monthLength), cutoff, "months=%d", months)

		report, err := job.Execute(ctx)
		require.NoError(t, err)
		assert.Zero(t, report.Deleted, "months=%d", months)
	}
	left, err := store.ListByDocument(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, left, 1)
}

func TestRetentionJobDisabled(t *testing.T) {
	for _, months := range []int{0, -3} {
		store := newMemoryStore()
		job := NewRetentionJob(store, months, logger.Discard())

		old := time.Now().AddDate(-5, 0, 0)
		require.NoError(t, store.Append(context.Background(), &actionlog.Entry{DocumentID: 1, CreatedAt: old}))

		report, err := job.Execute(context.Background())
		require.NoError(t, err)
		assert.Zero(t, report.Deleted)

		left, _ := store.ListByDocument(context.Background(), 1)
		assert.Len(t, left, 1, "months=%d", months)
	}
}

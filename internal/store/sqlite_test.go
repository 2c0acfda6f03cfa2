package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecord(id string) JobRecord {
	now := time.Now().UTC().Truncate(time.Second)
	return JobRecord{
		ID:           id,
		County:       "Lubbock",
		Year:         "2024",
		ElectionType: "general",
		ElectionDate: "2024-11-05",
		VotingMethod: "election day",
		Status:       "completed",
		Total:        100,
		Geocoded:     97,
		Failures:     3,
		SourceFile:   "roll.csv",
		CreatedAt:    now.Add(-time.Minute),
		StartedAt:    now.Add(-50 * time.Second),
		FinishedAt:   now,
	}
}

func TestSQLiteSaveAndGetJob(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	rec := sampleRecord("job-1")
	require.NoError(t, s.SaveJob(ctx, rec))

	got, err := s.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "Lubbock", got.County)
	assert.Equal(t, "completed", got.Status)
	assert.Equal(t, 97, got.Geocoded)
	assert.Equal(t, "roll.csv", got.SourceFile)
}

func TestSQLiteGetJobNotFound(t *testing.T) {
	s := newTestSQLite(t)
	_, err := s.GetJob(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteSaveJobUpsert(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	rec := sampleRecord("job-1")
	rec.Status = "failed"
	rec.Error = "boom"
	require.NoError(t, s.SaveJob(ctx, rec))

	rec.Status = "completed"
	rec.Error = ""
	require.NoError(t, s.SaveJob(ctx, rec))

	jobs, err := s.ListJobs(ctx, JobFilter{})
	require.NoError(t, err)
	require.Len(t, jobs, 1, "resubmitted job keeps one row")
	assert.Equal(t, "completed", jobs[0].Status)
	assert.Empty(t, jobs[0].Error)
}

func TestSQLiteListJobsFilters(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	a := sampleRecord("job-a")
	b := sampleRecord("job-b")
	b.County = "Hale"
	b.Status = "failed"
	b.CreatedAt = a.CreatedAt.Add(time.Second)
	require.NoError(t, s.SaveJob(ctx, a))
	require.NoError(t, s.SaveJob(ctx, b))

	all, err := s.ListJobs(ctx, JobFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "job-b", all[0].ID, "newest first")

	failed, err := s.ListJobs(ctx, JobFilter{Status: "failed"})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "Hale", failed[0].County)

	lubbock, err := s.ListJobs(ctx, JobFilter{County: "Lubbock"})
	require.NoError(t, err)
	require.Len(t, lubbock, 1)

	limited, err := s.ListJobs(ctx, JobFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "job-a", limited[0].ID)
}

package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_GetJob_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM jobs WHERE id = \$1`).
		WithArgs("nonexistent-job").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetJob(context.Background(), "nonexistent-job")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveJob_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`ON CONFLICT`).
		WithArgs(
			"job-1", "Lubbock", "2024", "general", "2024-11-05", "election day", "",
			"completed", "", 100, 97, 3, 0, "roll.csv",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SaveJob(context.Background(), sampleRecord("job-1"))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListJobs(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rec := sampleRecord("job-1")
	rows := pgxmock.NewRows([]string{
		"id", "county", "year", "election_type", "election_date", "voting_method", "party",
		"status", "error", "total", "geocoded", "failures", "unmatched", "source_file",
		"created_at", "started_at", "finished_at",
	}).AddRow(
		rec.ID, rec.County, rec.Year, rec.ElectionType, rec.ElectionDate, rec.VotingMethod, rec.Party,
		rec.Status, rec.Error, rec.Total, rec.Geocoded, rec.Failures, rec.Unmatched, rec.SourceFile,
		rec.CreatedAt, rec.StartedAt, rec.FinishedAt,
	)

	mock.ExpectQuery(`SELECT .+ FROM jobs WHERE 1=1 AND status = \$1 ORDER BY created_at DESC LIMIT \$2`).
		WithArgs("completed", 100).
		WillReturnRows(rows)

	jobs, err := s.ListJobs(context.Background(), JobFilter{Status: "completed"})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "job-1", jobs[0].ID)
	assert.Equal(t, 97, jobs[0].Geocoded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

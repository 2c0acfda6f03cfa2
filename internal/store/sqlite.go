package store

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS jobs (
	id            TEXT PRIMARY KEY,
	county        TEXT NOT NULL,
	year          TEXT NOT NULL,
	election_type TEXT NOT NULL,
	election_date TEXT NOT NULL,
	voting_method TEXT NOT NULL,
	party         TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL,
	error         TEXT NOT NULL DEFAULT '',
	total         INTEGER NOT NULL DEFAULT 0,
	geocoded      INTEGER NOT NULL DEFAULT 0,
	failures      INTEGER NOT NULL DEFAULT 0,
	unmatched     INTEGER NOT NULL DEFAULT 0,
	source_file   TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL,
	started_at    DATETIME NOT NULL,
	finished_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_county ON jobs(county);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveJob inserts a terminal job record, replacing any earlier record with
// the same id so a resubmitted job keeps one row.
func (s *SQLiteStore) SaveJob(ctx context.Context, rec JobRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, county, year, election_type, election_date, voting_method, party,
		                   status, error, total, geocoded, failures, unmatched, source_file,
		                   created_at, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   status = excluded.status, error = excluded.error, total = excluded.total,
		   geocoded = excluded.geocoded, failures = excluded.failures,
		   unmatched = excluded.unmatched, finished_at = excluded.finished_at`,
		rec.ID, rec.County, rec.Year, rec.ElectionType, rec.ElectionDate, rec.VotingMethod, rec.Party,
		rec.Status, rec.Error, rec.Total, rec.Geocoded, rec.Failures, rec.Unmatched, rec.SourceFile,
		rec.CreatedAt.UTC(), rec.StartedAt.UTC(), rec.FinishedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: save job %s", rec.ID)
}

func (s *SQLiteStore) GetJob(ctx context.Context, id string) (*JobRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)

	rec, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("sqlite: job not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get job %s", id)
	}
	return rec, nil
}

func (s *SQLiteStore) ListJobs(ctx context.Context, filter JobFilter) ([]JobRecord, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.County != "" {
		query += ` AND county = ?`
		args = append(args, filter.County)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list jobs")
	}
	defer rows.Close()

	var recs []JobRecord
	for rows.Next() {
		rec, err := scanJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan job")
		}
		recs = append(recs, *rec)
	}
	return recs, eris.Wrap(rows.Err(), "sqlite: list jobs iterate")
}

const jobColumns = `id, county, year, election_type, election_date, voting_method, party,
	status, error, total, geocoded, failures, unmatched, source_file,
	created_at, started_at, finished_at`

type scannable interface {
	Scan(dest ...any) error
}

func scanJob(row scannable) (*JobRecord, error) {
	var rec JobRecord
	err := row.Scan(
		&rec.ID, &rec.County, &rec.Year, &rec.ElectionType, &rec.ElectionDate, &rec.VotingMethod, &rec.Party,
		&rec.Status, &rec.Error, &rec.Total, &rec.Geocoded, &rec.Failures, &rec.Unmatched, &rec.SourceFile,
		&rec.CreatedAt, &rec.StartedAt, &rec.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

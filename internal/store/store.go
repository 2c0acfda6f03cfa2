// Package store persists finished job records so processing history
// survives restarts. SQLite is the default backend; PostgreSQL is
// available for shared deployments.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/whovoted/rollmap/internal/config"
	"github.com/whovoted/rollmap/internal/pipeline"
)

// JobRecord is one finished job as persisted.
type JobRecord struct {
	ID           string    `json:"id"`
	County       string    `json:"county"`
	Year         string    `json:"year"`
	ElectionType string    `json:"election_type"`
	ElectionDate string    `json:"election_date"`
	VotingMethod string    `json:"voting_method"`
	Party        string    `json:"party,omitempty"`
	Status       string    `json:"status"`
	Error        string    `json:"error,omitempty"`
	Total        int       `json:"total"`
	Geocoded     int       `json:"geocoded"`
	Failures     int       `json:"failures"`
	Unmatched    int       `json:"unmatched"`
	SourceFile   string    `json:"source_file,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// JobFilter specifies criteria for listing job records.
type JobFilter struct {
	Status string `json:"status,omitempty"`
	County string `json:"county,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// Store is the job-history persistence interface.
type Store interface {
	SaveJob(ctx context.Context, rec JobRecord) error
	GetJob(ctx context.Context, id string) (*JobRecord, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]JobRecord, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open creates the store named by the config driver and runs migrations.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "sqlite":
		s, err = NewSQLite(cfg.DatabaseURL)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// History adapts a Store to the scheduler's job-history hook.
type History struct {
	s Store
}

// NewHistory wraps a Store for scheduler wiring.
func NewHistory(s Store) *History { return &History{s: s} }

// SaveJob persists a terminal job snapshot.
func (h *History) SaveJob(ctx context.Context, snap pipeline.Snapshot) error {
	return h.s.SaveJob(ctx, recordFromSnapshot(snap))
}

func recordFromSnapshot(snap pipeline.Snapshot) JobRecord {
	return JobRecord{
		ID:           snap.ID,
		County:       snap.Key.Jurisdiction,
		Year:         snap.Key.Year,
		ElectionType: snap.Key.ElectionType,
		ElectionDate: snap.Key.ElectionDate,
		VotingMethod: snap.Key.VotingMethod,
		Party:        snap.Key.Party,
		Status:       string(snap.Status),
		Error:        snap.Error,
		Total:        snap.Total,
		Geocoded:     snap.Geocoded,
		Failures:     snap.Failures,
		Unmatched:    snap.Unmatched,
		SourceFile:   snap.SourcePath,
		CreatedAt:    snap.CreatedAt,
		StartedAt:    snap.StartedAt,
		FinishedAt:   snap.FinishedAt,
	}
}

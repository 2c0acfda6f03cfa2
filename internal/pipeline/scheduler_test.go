package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whovoted/rollmap/internal/dataset"
)

type capturingHistory struct {
	mu    sync.Mutex
	saved []Snapshot
}

func (h *capturingHistory) SaveJob(_ context.Context, s Snapshot) error {
	h.mu.Lock()
	h.saved = append(h.saved, s)
	h.mu.Unlock()
	return nil
}

func (h *capturingHistory) all() []Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Snapshot(nil), h.saved...)
}

func gatedJob(t *testing.T, n int) *Job {
	t.Helper()
	csv := fmt.Sprintf("VUID,ADDRESS,PRECINCT,BALLOT STYLE\nV%d,%d Elm St,1,BS1\n", n, n)
	return &Job{
		Key: dataset.Key{
			Jurisdiction: "Lubbock",
			Year:         "2024",
			ElectionType: "general",
			ElectionDate: fmt.Sprintf("2024-11-%02d", n),
			VotingMethod: "election day",
		},
		SourcePath: writeCSV(t, fmt.Sprintf("roll%d.csv", n), csv),
	}
}

func TestSchedulerConcurrencyBound(t *testing.T) {
	gate := make(chan struct{})
	env := newTestEnv(t, &fakeProvider{name: "fake", gate: gate})

	s := NewScheduler(env, WithMaxConcurrent(3), WithPollInterval(10*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	var ids []string
	for i := 1; i <= 4; i++ {
		ids = append(ids, s.Submit(gatedJob(t, i)))
	}

	require.Eventually(t, func() bool { return s.Running() == 3 },
		2*time.Second, 5*time.Millisecond)

	// The fourth job stays queued while the pool is saturated.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 3, s.Running())
	last, ok := s.Get(ids[3])
	require.True(t, ok)
	assert.Equal(t, StatusQueued, last.Status)

	close(gate)
	require.Eventually(t, func() bool {
		for _, id := range ids {
			snap, _ := s.Get(id)
			if snap.Status != StatusCompleted {
				return false
			}
		}
		return true
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	s.Wait()
}

func TestSchedulerHistoryAndList(t *testing.T) {
	env := newTestEnv(t, rollProvider())
	history := &capturingHistory{}
	s := NewScheduler(env, WithHistory(history), WithPollInterval(10*time.Millisecond))

	id := s.Submit(&Job{Key: rollJobKey(), SourcePath: writeCSV(t, "roll.csv", rollCSV)})
	ctx, cancel := context.WithCancel(context.Background())
	s.Drain(ctx)
	cancel()

	snap, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, snap.Status)

	saved := history.all()
	require.Len(t, saved, 1)
	assert.Equal(t, id, saved[0].ID)
	assert.Equal(t, StatusCompleted, saved[0].Status)

	assert.Len(t, s.List(), 1)
}

func TestSchedulerUnknownJob(t *testing.T) {
	s := NewScheduler(newTestEnv(t, rollProvider()))
	_, ok := s.Get("nope")
	assert.False(t, ok)
}

package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// History receives terminal job snapshots for persistence. Implemented by
// the store package; nil disables job history.
type History interface {
	SaveJob(ctx context.Context, s Snapshot) error
}

// Scheduler queues jobs and runs at most maxConcurrent of them at once.
// The dispatch loop never holds the lock while a job runs, so Submit and
// Get stay responsive during long geocode runs.
type Scheduler struct {
	env           *Env
	history       History
	maxConcurrent int
	poll          time.Duration

	mu      sync.Mutex
	queue   []*Job
	jobs    map[string]*Job
	running int

	wg sync.WaitGroup
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithMaxConcurrent bounds the number of jobs running at once.
func WithMaxConcurrent(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.maxConcurrent = n
		}
	}
}

// WithPollInterval sets how often the dispatch loop checks the queue.
func WithPollInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.poll = d
		}
	}
}

// WithHistory persists terminal job snapshots.
func WithHistory(h History) SchedulerOption {
	return func(s *Scheduler) { s.history = h }
}

// NewScheduler creates a Scheduler over the shared job environment.
func NewScheduler(env *Env, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		env:           env,
		maxConcurrent: 3,
		poll:          2 * time.Second,
		jobs:          make(map[string]*Job),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit queues a job and returns its assigned id.
func (s *Scheduler) Submit(j *Job) string {
	j.ID = uuid.NewString()
	j.mu.Lock()
	j.status = StatusQueued
	j.createdAt = time.Now().UTC()
	j.mu.Unlock()

	s.mu.Lock()
	s.queue = append(s.queue, j)
	s.jobs[j.ID] = j
	depth := len(s.queue)
	s.mu.Unlock()

	zap.L().Info("job queued", zap.String("job", j.ID), zap.Int("queue_depth", depth))
	return j.ID
}

// Get returns a snapshot of a known job.
func (s *Scheduler) Get(id string) (Snapshot, bool) {
	s.mu.Lock()
	j, ok := s.jobs[id]
	s.mu.Unlock()
	if !ok {
		return Snapshot{}, false
	}
	return j.Snapshot(), true
}

// List returns snapshots of every job this scheduler has seen.
func (s *Scheduler) List() []Snapshot {
	s.mu.Lock()
	jobs := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	s.mu.Unlock()

	out := make([]Snapshot, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Snapshot())
	}
	return out
}

// Running returns how many jobs are executing right now.
func (s *Scheduler) Running() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start runs the dispatch loop until ctx is cancelled. Jobs already
// running when the context ends finish on their own.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.poll)
		defer ticker.Stop()
		for {
			s.dispatch(ctx)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// Wait blocks until the dispatch loop has stopped and every started job
// has finished.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Drain dispatches until the queue is empty and all jobs are done. Used by
// the one-shot CLI path, where there is no long-lived loop.
func (s *Scheduler) Drain(ctx context.Context) {
	for {
		s.dispatch(ctx)

		s.mu.Lock()
		idle := len(s.queue) == 0 && s.running == 0
		s.mu.Unlock()
		if idle || ctx.Err() != nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	s.wg.Wait()
}

// dispatch starts queued jobs while capacity remains. The lock covers only
// queue surgery; the job itself runs in its own goroutine.
func (s *Scheduler) dispatch(ctx context.Context) {
	for {
		s.mu.Lock()
		if s.running >= s.maxConcurrent || len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		j := s.queue[0]
		s.queue = s.queue[1:]
		s.running++
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() {
				s.mu.Lock()
				s.running--
				s.mu.Unlock()
			}()

			_ = j.Run(ctx, s.env)
			s.record(ctx, j)
		}()
	}
}

// record persists the terminal snapshot when a history store is attached.
func (s *Scheduler) record(ctx context.Context, j *Job) {
	if s.history == nil {
		return
	}
	if err := s.history.SaveJob(ctx, j.Snapshot()); err != nil {
		zap.L().Warn("job history write failed", zap.String("job", j.ID), zap.Error(err))
	}
}

package geocode

import (
	"context"
	"sync"
	"time"
)

// Limiter is a sliding-window rate limiter: at most maxRequests calls are
// admitted within any window of the configured period. Wait blocks until
// admitting the caller would not exceed the bound.
type Limiter struct {
	mu          sync.Mutex
	maxRequests int
	period      time.Duration
	calls       []time.Time
}

// NewLimiter creates a limiter admitting maxRequests calls per period.
func NewLimiter(maxRequests int, period time.Duration) *Limiter {
	return &Limiter{maxRequests: maxRequests, period: period}
}

// Wait blocks until the call can proceed without exceeding the window
// bound, then records it. Returns early with the context error if ctx is
// cancelled while waiting.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := time.Now()
		l.prune(now)

		if len(l.calls) < l.maxRequests {
			l.calls = append(l.calls, now)
			l.mu.Unlock()
			return nil
		}

		// Sleep until the oldest recorded call leaves the window.
		wakeAt := l.calls[0].Add(l.period)
		l.mu.Unlock()

		timer := time.NewTimer(time.Until(wakeAt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// prune drops call records older than one period. Caller holds l.mu.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.period)
	i := 0
	for i < len(l.calls) && !l.calls[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.calls = append(l.calls[:0], l.calls[i:]...)
	}
}

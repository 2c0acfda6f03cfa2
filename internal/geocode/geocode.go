// Package geocode resolves street addresses to coordinates through an
// ordered chain of providers fronted by a durable address cache.
package geocode

import (
	"context"
	"sync/atomic"
	"time"
)

// Result is a resolved location for one address.
type Result struct {
	Latitude    float64 `json:"lat"`
	Longitude   float64 `json:"lng"`
	DisplayName string  `json:"display_name"`
	Source      string  `json:"source"`

	// Fallback is set to "zip_code" when the result came from a
	// ZIP-only retry rather than the full address.
	Fallback        string `json:"fallback,omitempty"`
	OriginalAddress string `json:"original_address,omitempty"`
}

// Provider is a single geocoding backend. Geocode returns (nil, nil) when
// the provider answered but found no match; an error means the call itself
// failed. The orchestrator treats both as a miss and moves on.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, address string) (*Result, error)
	Available() bool
	Counters() (calls, failures int64)
}

// counters tracks per-provider call diagnostics. Embedded by every
// concrete provider.
type counters struct {
	calls    atomic.Int64
	failures atomic.Int64
}

func (c *counters) Counters() (calls, failures int64) {
	return c.calls.Load(), c.failures.Load()
}

// Entry is one cached resolution, keyed by normalized address.
type Entry struct {
	Latitude    float64 `json:"lat"`
	Longitude   float64 `json:"lng"`
	DisplayName string  `json:"display_name"`
	Source      string  `json:"source"`
	CachedAt    string  `json:"cached_at"`

	Fallback        string `json:"fallback,omitempty"`
	OriginalAddress string `json:"original_address,omitempty"`
}

func entryFromResult(r *Result) Entry {
	return Entry{
		Latitude:        r.Latitude,
		Longitude:       r.Longitude,
		DisplayName:     r.DisplayName,
		Source:          r.Source,
		CachedAt:        time.Now().UTC().Format(time.RFC3339),
		Fallback:        r.Fallback,
		OriginalAddress: r.OriginalAddress,
	}
}

func resultFromEntry(e *Entry) *Result {
	return &Result{
		Latitude:        e.Latitude,
		Longitude:       e.Longitude,
		DisplayName:     e.DisplayName,
		Source:          e.Source,
		Fallback:        e.Fallback,
		OriginalAddress: e.OriginalAddress,
	}
}

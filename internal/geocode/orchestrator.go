package geocode

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
)

// Orchestrator resolves addresses through the cache, then each provider in
// priority order, then a ZIP-only fallback query. Safe for concurrent use
// by a job's worker pool.
type Orchestrator struct {
	cache        *Cache
	providers    []Provider
	defaultState string
	noFallback   bool

	totalRequests atomic.Int64
	cacheHits     atomic.Int64
	failed        atomic.Int64
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithDefaultState sets the state used in ZIP fallback queries.
func WithDefaultState(state string) OrchestratorOption {
	return func(o *Orchestrator) {
		if state != "" {
			o.defaultState = state
		}
	}
}

// WithoutZipFallback disables the ZIP-only degraded query.
func WithoutZipFallback() OrchestratorOption {
	return func(o *Orchestrator) { o.noFallback = true }
}

// NewOrchestrator creates an Orchestrator trying providers in the given
// order. Rate-limited providers belong at the end of the slice.
func NewOrchestrator(cache *Cache, providers []Provider, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		cache:        cache,
		providers:    providers,
		defaultState: "Texas",
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Cache returns the orchestrator's address cache.
func (o *Orchestrator) Cache() *Cache { return o.cache }

// Lookup checks the cache only, recording a hit when found. No network.
func (o *Orchestrator) Lookup(address string) (*Result, bool) {
	e, ok := o.cache.Get(address)
	if !ok {
		return nil, false
	}
	o.cacheHits.Add(1)
	return resultFromEntry(e), true
}

// Geocode resolves one address. Returns (nil, nil) when every provider and
// the ZIP fallback missed; the per-record failure is recorded in Stats and
// never surfaces as an error.
func (o *Orchestrator) Geocode(ctx context.Context, address string) (*Result, error) {
	o.totalRequests.Add(1)

	if r, ok := o.Lookup(address); ok {
		return r, nil
	}

	if r := o.tryProviders(ctx, address); r != nil {
		o.store(address, r)
		return r, nil
	}

	if !o.noFallback {
		if zip := ExtractZip(address); zip != "" {
			fallbackQuery := zip + ", " + o.defaultState + ", USA"
			if r := o.tryProviders(ctx, fallbackQuery); r != nil {
				r.Fallback = "zip_code"
				r.OriginalAddress = address
				o.store(address, r)
				zap.L().Debug("zip fallback resolved address",
					zap.String("zip", zip),
					zap.String("source", r.Source),
				)
				return r, nil
			}
		}
	}

	o.failed.Add(1)
	return nil, nil
}

// tryProviders walks the chain in order, treating provider errors and
// empty results alike as a miss.
func (o *Orchestrator) tryProviders(ctx context.Context, address string) *Result {
	for _, p := range o.providers {
		if !p.Available() {
			continue
		}
		r, err := p.Geocode(ctx, address)
		if err != nil {
			zap.L().Debug("provider error, trying next",
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
			continue
		}
		if r != nil {
			return r
		}
	}
	return nil
}

// store caches a result under the original lookup address. Write failures
// are logged, not propagated; the result is still good.
func (o *Orchestrator) store(address string, r *Result) {
	if err := o.cache.Set(address, r); err != nil {
		zap.L().Warn("cache write failed", zap.Error(err))
	}
}

// ProviderStats is a per-provider call count snapshot.
type ProviderStats struct {
	Calls    int64 `json:"calls"`
	Failures int64 `json:"failures"`
}

// Stats is a point-in-time snapshot of orchestrator counters.
type Stats struct {
	TotalRequests int64                    `json:"total_requests"`
	CacheHits     int64                    `json:"cache_hits"`
	Failed        int64                    `json:"failed"`
	APICalls      int64                    `json:"api_calls"`
	CacheSize     int                      `json:"cache_size"`
	Providers     map[string]ProviderStats `json:"providers"`
}

// Stats returns a snapshot of all counters.
func (o *Orchestrator) Stats() Stats {
	s := Stats{
		TotalRequests: o.totalRequests.Load(),
		CacheHits:     o.cacheHits.Load(),
		Failed:        o.failed.Load(),
		CacheSize:     o.cache.Size(),
		Providers:     make(map[string]ProviderStats, len(o.providers)),
	}
	for _, p := range o.providers {
		calls, failures := p.Counters()
		s.Providers[p.Name()] = ProviderStats{Calls: calls, Failures: failures}
		s.APICalls += calls
	}
	return s
}

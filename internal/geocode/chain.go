package geocode

import (
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/whovoted/rollmap/internal/config"
)

// NewFromConfig opens the address cache and assembles the provider chain:
// Google (when a key is configured), Census, Photon, then rate-limited
// Nominatim last.
func NewFromConfig(cfg config.GeocodeConfig, cacheFile string) (*Orchestrator, error) {
	cache, err := OpenCache(cacheFile)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: open cache")
	}

	client := &http.Client{Timeout: time.Duration(cfg.TimeoutSecs) * time.Second}

	maxRPS := cfg.NominatimMaxRPS
	if maxRPS <= 0 {
		maxRPS = 1
	}
	limiter := NewLimiter(maxRPS, time.Second)

	providers := []Provider{
		NewGoogleProvider(cfg.GoogleURL, cfg.GoogleKey, client),
		NewCensusProvider(cfg.CensusURL, client),
		NewPhotonProvider(cfg.PhotonURL, client),
		NewNominatimProvider(cfg.NominatimURL, cfg.UserAgent, client, limiter),
	}

	opts := []OrchestratorOption{WithDefaultState(cfg.DefaultState)}
	if cfg.DisableFallbacks {
		opts = append(opts, WithoutZipFallback())
	}
	return NewOrchestrator(cache, providers, opts...), nil
}

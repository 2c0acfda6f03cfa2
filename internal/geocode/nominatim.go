package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/whovoted/rollmap/internal/resilience"
)

// NominatimProvider geocodes via a Nominatim instance. The public service
// enforces an absolute one-request-per-second policy, so every call goes
// through a shared sliding-window limiter and 429 responses are retried
// with exponential backoff before counting as a failure.
type NominatimProvider struct {
	counters
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *Limiter
	retry      resilience.RetryConfig
}

// NewNominatimProvider creates a NominatimProvider. The limiter is shared
// across all workers calling this provider.
func NewNominatimProvider(baseURL, userAgent string, client *http.Client, limiter *Limiter) *NominatimProvider {
	retry := resilience.RateLimitRetryConfig()
	retry.OnRetry = resilience.RetryLogger("nominatim", "search")
	return &NominatimProvider{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: client,
		limiter:    limiter,
		retry:      retry,
	}
}

// Name implements Provider.
func (p *NominatimProvider) Name() string { return "nominatim" }

// Available implements Provider.
func (p *NominatimProvider) Available() bool { return true }

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode implements Provider.
func (p *NominatimProvider) Geocode(ctx context.Context, address string) (*Result, error) {
	result, err := resilience.DoVal(ctx, p.retry, func(ctx context.Context) (*Result, error) {
		return p.search(ctx, address)
	})
	if err != nil {
		p.failures.Add(1)
		return nil, err
	}
	if result == nil {
		p.failures.Add(1)
	}
	return result, nil
}

func (p *NominatimProvider) search(ctx context.Context, address string) (*Result, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim rate limit")
	}
	p.calls.Add(1)

	params := url.Values{
		"q":      {address},
		"format": {"json"},
		"limit":  {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim build request")
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, resilience.NewTransientError(eris.New("geocode: nominatim rate limited"), resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: nominatim returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim read body")
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim parse response")
	}

	if len(places) == 0 {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim parse lat")
	}
	lng, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim parse lon")
	}

	return &Result{
		Latitude:    lat,
		Longitude:   lng,
		DisplayName: places[0].DisplayName,
		Source:      "nominatim",
	}, nil
}

package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/rotisserie/eris"
)

// GoogleProvider geocodes via the Google Geocoding API. Highest accuracy
// in the chain but requires an API key; Available reports false without
// one so the orchestrator skips it cleanly.
type GoogleProvider struct {
	counters
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewGoogleProvider creates a GoogleProvider with the given key.
func NewGoogleProvider(baseURL, apiKey string, client *http.Client) *GoogleProvider {
	return &GoogleProvider{baseURL: baseURL, apiKey: apiKey, httpClient: client}
}

// Name implements Provider.
func (p *GoogleProvider) Name() string { return "google" }

// Available implements Provider.
func (p *GoogleProvider) Available() bool { return p.apiKey != "" }

type googleResponse struct {
	Status  string `json:"status"`
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode implements Provider.
func (p *GoogleProvider) Geocode(ctx context.Context, address string) (*Result, error) {
	p.calls.Add(1)

	params := url.Values{
		"address": {address},
		"key":     {p.apiKey},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		p.failures.Add(1)
		return nil, eris.Wrap(err, "geocode: google build request")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.failures.Add(1)
		return nil, eris.Wrap(err, "geocode: google request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		p.failures.Add(1)
		return nil, eris.Errorf("geocode: google returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		p.failures.Add(1)
		return nil, eris.Wrap(err, "geocode: google read body")
	}

	var parsed googleResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		p.failures.Add(1)
		return nil, eris.Wrap(err, "geocode: google parse response")
	}

	if parsed.Status != "OK" || len(parsed.Results) == 0 {
		p.failures.Add(1)
		return nil, nil
	}

	best := parsed.Results[0]
	return &Result{
		Latitude:    best.Geometry.Location.Lat,
		Longitude:   best.Geometry.Location.Lng,
		DisplayName: best.FormattedAddress,
		Source:      "google",
	}, nil
}

package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/rotisserie/eris"
)

const censusBenchmark = "Public_AR_Current"

// CensusProvider geocodes via the US Census one-line address API. Free,
// no auth, no published rate limit.
type CensusProvider struct {
	counters
	baseURL    string
	httpClient *http.Client
}

// NewCensusProvider creates a CensusProvider against baseURL.
func NewCensusProvider(baseURL string, client *http.Client) *CensusProvider {
	return &CensusProvider{baseURL: baseURL, httpClient: client}
}

// Name implements Provider.
func (p *CensusProvider) Name() string { return "census" }

// Available implements Provider.
func (p *CensusProvider) Available() bool { return true }

type censusResponse struct {
	Result struct {
		AddressMatches []struct {
			Coordinates struct {
				X float64 `json:"x"` // longitude
				Y float64 `json:"y"` // latitude
			} `json:"coordinates"`
			MatchedAddress string `json:"matchedAddress"`
		} `json:"addressMatches"`
	} `json:"result"`
}

// Geocode implements Provider.
func (p *CensusProvider) Geocode(ctx context.Context, address string) (*Result, error) {
	p.calls.Add(1)

	params := url.Values{
		"address":   {address},
		"benchmark": {censusBenchmark},
		"format":    {"json"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		p.failures.Add(1)
		return nil, eris.Wrap(err, "geocode: census build request")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.failures.Add(1)
		return nil, eris.Wrap(err, "geocode: census request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		p.failures.Add(1)
		return nil, eris.Errorf("geocode: census returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		p.failures.Add(1)
		return nil, eris.Wrap(err, "geocode: census read body")
	}

	var parsed censusResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		p.failures.Add(1)
		return nil, eris.Wrap(err, "geocode: census parse response")
	}

	if len(parsed.Result.AddressMatches) == 0 {
		p.failures.Add(1)
		return nil, nil
	}

	match := parsed.Result.AddressMatches[0]
	return &Result{
		Latitude:    match.Coordinates.Y,
		Longitude:   match.Coordinates.X,
		DisplayName: match.MatchedAddress,
		Source:      "census",
	}, nil
}

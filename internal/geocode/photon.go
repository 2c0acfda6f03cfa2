package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

// PhotonProvider geocodes via a Photon (komoot) instance. Free, tolerant
// of bursts, returns GeoJSON.
type PhotonProvider struct {
	counters
	baseURL    string
	httpClient *http.Client
}

// NewPhotonProvider creates a PhotonProvider against baseURL.
func NewPhotonProvider(baseURL string, client *http.Client) *PhotonProvider {
	return &PhotonProvider{baseURL: baseURL, httpClient: client}
}

// Name implements Provider.
func (p *PhotonProvider) Name() string { return "photon" }

// Available implements Provider.
func (p *PhotonProvider) Available() bool { return true }

type photonResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"` // [lon, lat]
		} `json:"geometry"`
		Properties struct {
			Name        string `json:"name"`
			Housenumber string `json:"housenumber"`
			Street      string `json:"street"`
			City        string `json:"city"`
			State       string `json:"state"`
		} `json:"properties"`
	} `json:"features"`
}

// Geocode implements Provider.
func (p *PhotonProvider) Geocode(ctx context.Context, address string) (*Result, error) {
	p.calls.Add(1)

	params := url.Values{
		"q":     {address},
		"limit": {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		p.failures.Add(1)
		return nil, eris.Wrap(err, "geocode: photon build request")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.failures.Add(1)
		return nil, eris.Wrap(err, "geocode: photon request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		p.failures.Add(1)
		return nil, eris.Errorf("geocode: photon returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		p.failures.Add(1)
		return nil, eris.Wrap(err, "geocode: photon read body")
	}

	var parsed photonResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		p.failures.Add(1)
		return nil, eris.Wrap(err, "geocode: photon parse response")
	}

	if len(parsed.Features) == 0 || len(parsed.Features[0].Geometry.Coordinates) < 2 {
		p.failures.Add(1)
		return nil, nil
	}

	feat := parsed.Features[0]
	return &Result{
		Latitude:    feat.Geometry.Coordinates[1],
		Longitude:   feat.Geometry.Coordinates[0],
		DisplayName: photonDisplayName(feat.Properties.Housenumber, feat.Properties.Street, feat.Properties.Name, feat.Properties.City, feat.Properties.State),
		Source:      "photon",
	}, nil
}

// photonDisplayName assembles a readable address from the feature
// properties, preferring housenumber+street over the bare name.
func photonDisplayName(housenumber, street, name, city, state string) string {
	var parts []string
	if housenumber != "" && street != "" {
		parts = append(parts, housenumber+" "+street)
	} else if name != "" {
		parts = append(parts, name)
	}
	if city != "" {
		parts = append(parts, city)
	}
	if state != "" {
		parts = append(parts, state)
	}
	return strings.Join(parts, ", ")
}

package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCensusProviderMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "123 MAIN STREET", r.URL.Query().Get("address"))
		assert.Equal(t, censusBenchmark, r.URL.Query().Get("benchmark"))
		w.Write([]byte(`{"result":{"addressMatches":[{"coordinates":{"x":-101.85,"y":33.58},"matchedAddress":"123 MAIN ST, LUBBOCK, TX, 79401"}]}}`))
	}))
	defer srv.Close()

	p := NewCensusProvider(srv.URL, srv.Client())
	r, err := p.Geocode(context.Background(), "123 MAIN STREET")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, 33.58, r.Latitude)
	assert.Equal(t, -101.85, r.Longitude)
	assert.Equal(t, "census", r.Source)
	assert.Equal(t, "123 MAIN ST, LUBBOCK, TX, 79401", r.DisplayName)

	calls, failures := p.Counters()
	assert.Equal(t, int64(1), calls)
	assert.Equal(t, int64(0), failures)
}

func TestCensusProviderNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":{"addressMatches":[]}}`))
	}))
	defer srv.Close()

	p := NewCensusProvider(srv.URL, srv.Client())
	r, err := p.Geocode(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.Nil(t, r)

	_, failures := p.Counters()
	assert.Equal(t, int64(1), failures)
}

func TestCensusProviderServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewCensusProvider(srv.URL, srv.Client())
	_, err := p.Geocode(context.Background(), "123 MAIN STREET")
	assert.Error(t, err)
}

func TestPhotonProviderMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"features":[{"geometry":{"coordinates":[-101.9,33.6]},"properties":{"housenumber":"456","street":"Oak Avenue","city":"Lubbock","state":"Texas"}}]}`))
	}))
	defer srv.Close()

	p := NewPhotonProvider(srv.URL, srv.Client())
	r, err := p.Geocode(context.Background(), "456 Oak Avenue")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, 33.6, r.Latitude)
	assert.Equal(t, -101.9, r.Longitude)
	assert.Equal(t, "photon", r.Source)
	assert.Equal(t, "456 Oak Avenue, Lubbock, Texas", r.DisplayName)
}

func TestPhotonProviderNoFeatures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"features":[]}`))
	}))
	defer srv.Close()

	p := NewPhotonProvider(srv.URL, srv.Client())
	r, err := p.Geocode(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestNominatimProviderMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "rollmap-test", r.Header.Get("User-Agent"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		w.Write([]byte(`[{"lat":"33.5845","lon":"-101.8562","display_name":"123, Main Street, Lubbock, Texas"}]`))
	}))
	defer srv.Close()

	p := NewNominatimProvider(srv.URL, "rollmap-test", srv.Client(), NewLimiter(100, time.Second))
	r, err := p.Geocode(context.Background(), "123 Main Street")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, 33.5845, r.Latitude)
	assert.Equal(t, -101.8562, r.Longitude)
	assert.Equal(t, "nominatim", r.Source)
}

func TestNominatimProviderRetriesRateLimit(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`[{"lat":"1.5","lon":"2.5","display_name":"somewhere"}]`))
	}))
	defer srv.Close()

	p := NewNominatimProvider(srv.URL, "rollmap-test", srv.Client(), NewLimiter(100, time.Second))
	// Shrink the backoff so the retry happens quickly.
	p.retry.InitialBackoff = 5 * time.Millisecond
	p.retry.MaxBackoff = 10 * time.Millisecond

	r, err := p.Geocode(context.Background(), "somewhere")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, 1.5, r.Latitude)
	assert.Equal(t, int64(2), hits.Load())
}

func TestNominatimProviderNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	p := NewNominatimProvider(srv.URL, "rollmap-test", srv.Client(), NewLimiter(100, time.Second))
	r, err := p.Geocode(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestGoogleProviderUnavailableWithoutKey(t *testing.T) {
	p := NewGoogleProvider("https://example.invalid", "", http.DefaultClient)
	assert.False(t, p.Available())
}

func TestGoogleProviderMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Write([]byte(`{"status":"OK","results":[{"formatted_address":"789 University Dr, Lubbock, TX","geometry":{"location":{"lat":33.59,"lng":-101.87}}}]}`))
	}))
	defer srv.Close()

	p := NewGoogleProvider(srv.URL, "test-key", srv.Client())
	assert.True(t, p.Available())

	r, err := p.Geocode(context.Background(), "789 University Dr")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, 33.59, r.Latitude)
	assert.Equal(t, "google", r.Source)
}

func TestGoogleProviderZeroResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	}))
	defer srv.Close()

	p := NewGoogleProvider(srv.URL, "test-key", srv.Client())
	r, err := p.Geocode(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.Nil(t, r)
}

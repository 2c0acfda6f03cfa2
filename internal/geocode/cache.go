package geocode

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Cache is a durable address-to-location store backed by a single JSON
// file. Every Set rewrites the whole file through a temp-file rename so a
// crash mid-write never corrupts existing entries.
type Cache struct {
	mu      sync.Mutex
	path    string
	entries map[string]Entry
}

// OpenCache loads the cache file at path, creating an empty cache if the
// file does not exist yet.
func OpenCache(path string) (*Cache, error) {
	c := &Cache{path: path, entries: make(map[string]Entry)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, eris.Wrap(err, "geocode: read cache file")
	}

	if err := json.Unmarshal(data, &c.entries); err != nil {
		return nil, eris.Wrap(err, "geocode: parse cache file")
	}

	zap.L().Info("address cache loaded",
		zap.String("path", path),
		zap.Int("entries", len(c.entries)),
	)
	return c, nil
}

// Get returns the cached entry for an address, trying the normalized key,
// the abbreviated-state variant, and finally the verbatim input.
func (c *Cache) Get(address string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range LookupKeys(address) {
		if e, ok := c.entries[key]; ok {
			return &e, true
		}
	}
	return nil, false
}

// Set stores a result under the normalized form of address and rewrites
// the backing file. An existing entry for the same normalized key is
// overwritten, never duplicated.
func (c *Cache) Set(address string, r *Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[Normalize(address)] = entryFromResult(r)
	return c.flushLocked()
}

// Size returns the number of cached entries.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// flushLocked writes the full entry map to a temp file and renames it over
// the cache path. Caller holds c.mu.
func (c *Cache) flushLocked() error {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return eris.Wrap(err, "geocode: marshal cache")
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "geocode: create cache dir")
	}

	tmp, err := os.CreateTemp(dir, ".geocode_cache-*")
	if err != nil {
		return eris.Wrap(err, "geocode: create temp cache file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return eris.Wrap(err, "geocode: write temp cache file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return eris.Wrap(err, "geocode: close temp cache file")
	}

	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return eris.Wrap(err, "geocode: replace cache file")
	}
	return nil
}

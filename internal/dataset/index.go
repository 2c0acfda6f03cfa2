package dataset

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Index is the in-memory registry of persisted datasets, keyed by
// lowercased jurisdiction with entries sorted by election date ascending.
// It is rebuilt from the metadata documents on startup and updated on
// every write, replacing repeated directory scans.
type Index struct {
	mu  sync.RWMutex
	dir *Dir

	byJurisdiction map[string][]*Metadata
}

// NewIndex builds an index over dir and loads the existing metadata.
func NewIndex(dir *Dir) (*Index, error) {
	idx := &Index{dir: dir, byJurisdiction: make(map[string][]*Metadata)}
	if err := idx.Rebuild(); err != nil {
		return nil, err
	}
	return idx, nil
}

// Rebuild rescans the artifact directory, dropping any in-memory state.
// Cumulative metadata documents are not dataset identities and are skipped.
func (x *Index) Rebuild() error {
	names, err := filepath.Glob(filepath.Join(x.dir.Path(), "metadata_*.json"))
	if err != nil {
		return eris.Wrap(err, "dataset: scan metadata")
	}

	fresh := make(map[string][]*Metadata)
	for _, path := range names {
		name := filepath.Base(path)
		if strings.Contains(name, "cumulative") {
			continue
		}
		md, err := x.dir.ReadMetadata(name)
		if err != nil {
			zap.L().Warn("skipping unreadable metadata", zap.String("file", name), zap.Error(err))
			continue
		}
		j := strings.ToLower(md.County)
		fresh[j] = append(fresh[j], md)
	}
	for _, list := range fresh {
		sortByDate(list)
	}

	x.mu.Lock()
	x.byJurisdiction = fresh
	x.mu.Unlock()
	return nil
}

// Add registers a newly written dataset, displacing any entry with the
// same key.
func (x *Index) Add(md *Metadata) {
	x.mu.Lock()
	defer x.mu.Unlock()

	j := strings.ToLower(md.County)
	list := x.byJurisdiction[j]
	key := md.Key()
	kept := list[:0]
	for _, m := range list {
		if !m.Key().Equal(key) {
			kept = append(kept, m)
		}
	}
	kept = append(kept, md)
	sortByDate(kept)
	x.byJurisdiction[j] = kept
}

// Remove drops a dataset from the index.
func (x *Index) Remove(k Key) {
	x.mu.Lock()
	defer x.mu.Unlock()

	j := strings.ToLower(k.Canonical().Jurisdiction)
	list := x.byJurisdiction[j]
	kept := list[:0]
	for _, m := range list {
		if !m.Key().Equal(k) {
			kept = append(kept, m)
		}
	}
	x.byJurisdiction[j] = kept
}

// Find returns the indexed metadata matching a key, or nil. This is the
// duplicate check used before admitting an upload.
func (x *Index) Find(k Key) *Metadata {
	x.mu.RLock()
	defer x.mu.RUnlock()

	for _, m := range x.byJurisdiction[strings.ToLower(k.Canonical().Jurisdiction)] {
		if m.Key().Equal(k) {
			return m
		}
	}
	return nil
}

// MostRecentBefore returns the latest dataset for jurisdiction with an
// election date strictly earlier than date, or nil when none exists.
func (x *Index) MostRecentBefore(jurisdiction, date string) *Metadata {
	x.mu.RLock()
	defer x.mu.RUnlock()

	list := x.byJurisdiction[strings.ToLower(strings.TrimSpace(jurisdiction))]
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].ElectionDate < date {
			return list[i]
		}
	}
	return nil
}

// AllBefore returns every dataset for jurisdiction strictly earlier than
// date, most recent first.
func (x *Index) AllBefore(jurisdiction, date string) []*Metadata {
	x.mu.RLock()
	defer x.mu.RUnlock()

	list := x.byJurisdiction[strings.ToLower(strings.TrimSpace(jurisdiction))]
	var out []*Metadata
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].ElectionDate < date {
			out = append(out, list[i])
		}
	}
	return out
}

// ForJurisdiction returns all datasets for a jurisdiction sorted oldest
// first, which is the scan order the voter-id lookup builder wants.
func (x *Index) ForJurisdiction(jurisdiction string) []*Metadata {
	x.mu.RLock()
	defer x.mu.RUnlock()

	list := x.byJurisdiction[strings.ToLower(strings.TrimSpace(jurisdiction))]
	out := make([]*Metadata, len(list))
	copy(out, list)
	return out
}

// All returns every indexed dataset across jurisdictions.
func (x *Index) All() []*Metadata {
	x.mu.RLock()
	defer x.mu.RUnlock()

	var out []*Metadata
	for _, list := range x.byJurisdiction {
		out = append(out, list...)
	}
	sortByDate(out)
	return out
}

// RosterMetadataNames returns the filenames of early-vote roster metadata
// documents (voting method "early") for a jurisdiction, oldest first.
func (x *Index) RosterMetadataNames(jurisdiction string) []string {
	var names []string
	for _, md := range x.ForJurisdiction(jurisdiction) {
		if strings.EqualFold(md.VotingMethod, "early") {
			names = append(names, MetadataFilename(md.Key()))
		}
	}
	return names
}

func sortByDate(list []*Metadata) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].ElectionDate < list[j].ElectionDate
	})
}

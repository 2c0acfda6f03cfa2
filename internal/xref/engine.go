package xref

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/whovoted/rollmap/internal/dataset"
)

// Engine finds each voter's most recent prior party affiliation by
// loading lookup indices from an earlier dataset for the same
// jurisdiction.
type Engine struct {
	dir *dataset.Dir
	idx *dataset.Index
}

// NewEngine creates an Engine over the artifact directory and its index.
func NewEngine(dir *dataset.Dir, idx *dataset.Index) *Engine {
	return &Engine{dir: dir, idx: idx}
}

// nameCoordKey is the fallback join key for records without a voter id:
// names plus coordinates rounded to 4 decimal places.
type nameCoordKey struct {
	last, first string
	lat, lng    float64
}

func newNameCoordKey(last, first string, lat, lng float64) nameCoordKey {
	return nameCoordKey{
		last:  strings.ToUpper(strings.TrimSpace(last)),
		first: strings.ToUpper(strings.TrimSpace(first)),
		lat:   round4(lat),
		lng:   round4(lng),
	}
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

// Lookup holds the party indices loaded from one or more earlier
// datasets. A nil *Lookup is valid and resolves nothing, which is the
// normal first-dataset condition.
type Lookup struct {
	byVUID      map[string]string
	byNameCoord map[nameCoordKey]string
}

func newLookup() *Lookup {
	return &Lookup{
		byVUID:      make(map[string]string),
		byNameCoord: make(map[nameCoordKey]string),
	}
}

// add indexes one feature's party without overwriting earlier inserts,
// so callers loading most-recent-first get first-match-wins semantics.
func (l *Lookup) add(f dataset.Feature) {
	party := f.Properties.PartyCurrent
	if party == "" {
		return
	}
	if vuid := strings.TrimSpace(f.Properties.VUID); vuid != "" {
		if _, seen := l.byVUID[vuid]; !seen {
			l.byVUID[vuid] = party
		}
	}
	if f.Geometry != nil && f.Properties.LastName != "" {
		k := newNameCoordKey(f.Properties.LastName, f.Properties.FirstName, f.Geometry.Lat(), f.Geometry.Lng())
		if _, seen := l.byNameCoord[k]; !seen {
			l.byNameCoord[k] = party
		}
	}
}

// PriorParty returns the voter's earlier affiliation when it differs from
// currentParty, and "" otherwise. The vuid match is tried first, then the
// name-plus-coordinate composite.
func (l *Lookup) PriorParty(vuid, last, first string, lat, lng float64, currentParty string) string {
	if l == nil {
		return ""
	}

	prior, ok := "", false
	if v := strings.TrimSpace(vuid); v != "" {
		prior, ok = l.byVUID[v]
	}
	if !ok && last != "" {
		prior, ok = l.byNameCoord[newNameCoordKey(last, first, lat, lng)]
	}
	if !ok || prior == "" {
		return ""
	}
	if SameParty(prior, currentParty) {
		return ""
	}
	return prior
}

// Size returns the number of indexed voter ids.
func (l *Lookup) Size() int {
	if l == nil {
		return 0
	}
	return len(l.byVUID)
}

// PriorLookup loads the lookup from the single most recent dataset for
// jurisdiction strictly earlier than currentDate. Returns nil when no
// earlier dataset exists.
func (e *Engine) PriorLookup(jurisdiction, currentDate string) (*Lookup, error) {
	md := e.idx.MostRecentBefore(jurisdiction, currentDate)
	if md == nil {
		zap.L().Info("no earlier dataset for cross-reference",
			zap.String("jurisdiction", jurisdiction),
			zap.String("date", currentDate),
		)
		return nil, nil
	}
	lookup := newLookup()
	if err := e.load(lookup, md); err != nil {
		return nil, err
	}
	zap.L().Info("cross-reference lookup built",
		zap.String("jurisdiction", jurisdiction),
		zap.String("prior_date", md.ElectionDate),
		zap.Int("vuids", lookup.Size()),
	)
	return lookup, nil
}

// MergedLookup loads every dataset earlier than currentDate, most recent
// first, into one lookup with first-match-wins semantics. Used by the
// retroactive backfill.
func (e *Engine) MergedLookup(jurisdiction, currentDate string) (*Lookup, error) {
	earlier := e.idx.AllBefore(jurisdiction, currentDate)
	if len(earlier) == 0 {
		return nil, nil
	}
	lookup := newLookup()
	for _, md := range earlier {
		if err := e.load(lookup, md); err != nil {
			return nil, err
		}
	}
	return lookup, nil
}

func (e *Engine) load(lookup *Lookup, md *dataset.Metadata) error {
	fc, err := e.dir.ReadCollection(dataset.MapDataFilename(md.Key()))
	if err != nil {
		return eris.Wrap(err, "xref: load prior dataset")
	}
	for _, f := range fc.Features {
		lookup.add(f)
	}
	return nil
}

// Annotate fills the prior-party fields on a feature in place. Returns
// true when a party switch was detected.
func Annotate(f *dataset.Feature, lookup *Lookup) bool {
	var lat, lng float64
	if f.Geometry != nil {
		lat, lng = f.Geometry.Lat(), f.Geometry.Lng()
	}
	prior := lookup.PriorParty(
		f.Properties.VUID,
		f.Properties.LastName,
		f.Properties.FirstName,
		lat, lng,
		f.Properties.PartyCurrent,
	)
	if prior == "" {
		f.Properties.PartyPrevious = ""
		f.Properties.HasSwitched = false
		return false
	}
	f.Properties.PartyPrevious = prior
	f.Properties.HasSwitched = true
	f.Properties.PartyHistory = []string{prior, f.Properties.PartyCurrent}
	return true
}

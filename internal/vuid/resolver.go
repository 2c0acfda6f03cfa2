// Package vuid resolves early-vote rosters, which carry a voter id but no
// address, against locations learned from previously geocoded datasets.
package vuid

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/whovoted/rollmap/internal/dataset"
)

// trailingDecimalRe strips a spreadsheet float artifact like ".0" from an
// exported voter id.
var trailingDecimalRe = regexp.MustCompile(`\.\d*$`)

// NormalizeVUID canonicalizes a voter id for lookup.
func NormalizeVUID(id string) string {
	return trailingDecimalRe.ReplaceAllString(strings.TrimSpace(id), "")
}

// Location is the known geocoded position and affiliation for one voter.
type Location struct {
	Lat         float64
	Lng         float64
	Address     string
	DisplayName string
	Party       string
}

// Resolver maps normalized voter ids to their most recently known
// location for one jurisdiction.
type Resolver struct {
	dir    *dataset.Dir
	idx    *dataset.Index
	lookup map[string]Location
}

// NewResolver creates an empty Resolver; call Build before resolving.
func NewResolver(dir *dataset.Dir, idx *dataset.Index) *Resolver {
	return &Resolver{dir: dir, idx: idx, lookup: make(map[string]Location)}
}

// Build scans every persisted dataset for the jurisdiction oldest first,
// so on id collisions the newest dataset's location wins. Unmatched and
// address-free features contribute nothing.
func (r *Resolver) Build(jurisdiction string) error {
	fresh := make(map[string]Location)
	for _, md := range r.idx.ForJurisdiction(jurisdiction) {
		fc, err := r.dir.ReadCollection(dataset.MapDataFilename(md.Key()))
		if err != nil {
			zap.L().Warn("skipping unreadable dataset in vuid lookup",
				zap.String("file", dataset.MapDataFilename(md.Key())),
				zap.Error(err),
			)
			continue
		}
		for _, f := range fc.Features {
			id := NormalizeVUID(f.Properties.VUID)
			if id == "" || f.Geometry == nil {
				continue
			}
			fresh[id] = Location{
				Lat:         f.Geometry.Lat(),
				Lng:         f.Geometry.Lng(),
				Address:     f.Properties.Address,
				DisplayName: f.Properties.DisplayName,
				Party:       f.Properties.PartyCurrent,
			}
		}
	}
	r.lookup = fresh
	zap.L().Info("vuid lookup built",
		zap.String("jurisdiction", jurisdiction),
		zap.Int("vuids", len(fresh)),
	)
	return nil
}

// Resolve looks up a voter id after normalization.
func (r *Resolver) Resolve(id string) (Location, bool) {
	loc, ok := r.lookup[NormalizeVUID(id)]
	return loc, ok
}

// Size returns the number of known voter ids.
func (r *Resolver) Size() int { return len(r.lookup) }

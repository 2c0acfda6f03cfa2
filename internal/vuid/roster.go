package vuid

import (
	"strings"

	"go.uber.org/zap"

	"github.com/whovoted/rollmap/internal/dataset"
)

// RosterEntry is one row of an early-vote roster: identity and check-in
// detail, no address.
type RosterEntry struct {
	VUID      string
	FullName  string
	LastName  string
	FirstName string
	Party     string
	CheckIn   string
	Site      string
}

// BuildFeatures resolves roster entries into output features. Voters
// without a known location are still emitted, with null geometry and the
// unmatched flag set, so a later re-resolution can fill them in.
func BuildFeatures(r *Resolver, entries []RosterEntry) (features []dataset.Feature, unmatched int) {
	features = make([]dataset.Feature, 0, len(entries))
	for _, entry := range entries {
		props := dataset.Properties{
			VUID:                   NormalizeVUID(entry.VUID),
			FullName:               entry.FullName,
			LastName:               entry.LastName,
			FirstName:              entry.FirstName,
			PartyCurrent:           entry.Party,
			CheckIn:                entry.CheckIn,
			Site:                   entry.Site,
			VotedInCurrentElection: true,
		}

		loc, ok := r.Resolve(entry.VUID)
		if !ok {
			unmatched++
			props.Unmatched = true
			features = append(features, dataset.NewFeature(nil, props))
			continue
		}

		props.Address = loc.Address
		props.DisplayName = loc.DisplayName
		if props.PartyCurrent == "" {
			props.PartyCurrent = loc.Party
		}
		features = append(features, dataset.NewFeature(dataset.NewPoint(loc.Lat, loc.Lng), props))
	}
	return features, unmatched
}

// ReResolveResult reports one rewritten roster artifact.
type ReResolveResult struct {
	MapDataName  string
	MetadataName string
	Resolved     int
}

// ReResolve retries resolution for unmatched features in every persisted
// roster output for the jurisdiction, rewriting in place only the files
// that changed. Run after any full-address dataset lands, when the lookup
// may have grown.
func ReResolve(dir *dataset.Dir, idx *dataset.Index, jurisdiction string) ([]ReResolveResult, error) {
	resolver := NewResolver(dir, idx)
	if err := resolver.Build(jurisdiction); err != nil {
		return nil, err
	}

	var results []ReResolveResult
	for _, mdName := range idx.RosterMetadataNames(jurisdiction) {
		md, err := dir.ReadMetadata(mdName)
		if err != nil {
			return results, err
		}
		fcName := dataset.MapDataFilename(md.Key())
		fc, err := dir.ReadCollection(fcName)
		if err != nil {
			return results, err
		}

		resolved := 0
		for i := range fc.Features {
			f := &fc.Features[i]
			if !f.Properties.Unmatched {
				continue
			}
			loc, ok := resolver.Resolve(f.Properties.VUID)
			if !ok {
				continue
			}
			f.Geometry = dataset.NewPoint(loc.Lat, loc.Lng)
			f.Properties.Unmatched = false
			f.Properties.Address = loc.Address
			f.Properties.DisplayName = loc.DisplayName
			if f.Properties.PartyCurrent == "" {
				f.Properties.PartyCurrent = loc.Party
			}
			resolved++
		}
		if resolved == 0 {
			continue
		}

		md.UnmatchedCount -= resolved
		if md.UnmatchedCount < 0 {
			md.UnmatchedCount = 0
		}
		if err := dir.RewriteCollection(fcName, fc); err != nil {
			return results, err
		}
		if err := dir.RewriteMetadata(mdName, md); err != nil {
			return results, err
		}

		zap.L().Info("roster re-resolved",
			zap.String("file", fcName),
			zap.Int("resolved", resolved),
			zap.Int("still_unmatched", md.UnmatchedCount),
		)
		results = append(results, ReResolveResult{MapDataName: fcName, MetadataName: mdName, Resolved: resolved})
	}
	return results, nil
}

// ParseFullName splits "LAST, FIRST MIDDLE" into its name parts; a name
// without a comma stays in FullName only.
func ParseFullName(full string) (last, first string) {
	parts := strings.SplitN(full, ",", 2)
	if len(parts) != 2 {
		return "", ""
	}
	last = strings.TrimSpace(parts[0])
	firstParts := strings.Fields(parts[1])
	if len(firstParts) > 0 {
		first = firstParts[0]
	}
	return last, first
}

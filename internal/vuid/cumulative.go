package vuid

import (
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/whovoted/rollmap/internal/dataset"
)

// MergeCumulative unions every daily roster snapshot sharing k's election
// identity (jurisdiction, year, type, party) into one deduplicated
// cumulative pair. Duplicate voter ids keep the latest snapshot's
// feature. Returns the cumulative metadata that was written.
func MergeCumulative(dir *dataset.Dir, idx *dataset.Index, k dataset.Key) (*dataset.Metadata, error) {
	snapshots := rosterSnapshots(idx, k)
	if len(snapshots) == 0 {
		return nil, eris.Errorf("vuid: no roster snapshots for %s %s %s", k.Jurisdiction, k.Year, k.ElectionType)
	}

	var (
		merged   []dataset.Feature
		position = make(map[string]int)
		days     []string
	)
	for _, md := range snapshots {
		name := dataset.MapDataFilename(md.Key())
		fc, err := dir.ReadCollection(name)
		if err != nil {
			return nil, err
		}
		days = append(days, name)

		for _, f := range fc.Features {
			id := NormalizeVUID(f.Properties.VUID)
			if id == "" {
				merged = append(merged, f)
				continue
			}
			if at, seen := position[id]; seen {
				merged[at] = f
				continue
			}
			position[id] = len(merged)
			merged = append(merged, f)
		}
	}

	latest := snapshots[len(snapshots)-1]
	md := dataset.NewMetadata(latest.Key(), latest.OriginalFilename)
	md.DaySnapshots = days
	md.TotalAddresses = len(merged)
	for _, f := range merged {
		if f.Properties.Unmatched {
			md.UnmatchedCount++
		} else {
			md.SuccessfullyGeocoded++
		}
	}

	if err := dir.WriteCumulativePair(latest.Key(), dataset.NewFeatureCollection(merged), md); err != nil {
		return nil, err
	}

	zap.L().Info("cumulative roster written",
		zap.String("jurisdiction", latest.County),
		zap.Int("snapshots", len(days)),
		zap.Int("voters", len(merged)),
	)
	return md, nil
}

// rosterSnapshots returns the early-vote datasets matching k's election
// identity, oldest first.
func rosterSnapshots(idx *dataset.Index, k dataset.Key) []*dataset.Metadata {
	c := k.Canonical()
	var out []*dataset.Metadata
	for _, md := range idx.ForJurisdiction(c.Jurisdiction) {
		if !strings.EqualFold(md.VotingMethod, "early") {
			continue
		}
		mc := md.Key().Canonical()
		if mc.Year == c.Year && mc.ElectionType == c.ElectionType && mc.Party == c.Party {
			out = append(out, md)
		}
	}
	return out
}

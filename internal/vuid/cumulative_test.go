package vuid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whovoted/rollmap/internal/dataset"
)

func persistRoster(t *testing.T, dir *dataset.Dir, idx *dataset.Index, date string, features ...dataset.Feature) dataset.Key {
	t.Helper()
	k := rosterKey(date)
	md := dataset.NewMetadata(k, "roster_"+date+".csv")
	md.TotalAddresses = len(features)
	require.NoError(t, dir.WritePair(k, dataset.NewFeatureCollection(features), md))
	idx.Add(md)
	return k
}

func TestMergeCumulativeDeduplicates(t *testing.T) {
	dir, idx := newTestStore(t)

	persistRoster(t, dir, idx, "2024-02-20",
		dataset.NewFeature(dataset.NewPoint(1, 1), dataset.Properties{VUID: "V3", Site: "Library"}),
		dataset.NewFeature(dataset.NewPoint(2, 2), dataset.Properties{VUID: "V4"}),
	)
	latest := persistRoster(t, dir, idx, "2024-02-21",
		dataset.NewFeature(dataset.NewPoint(9, 9), dataset.Properties{VUID: "V3", Site: "Mall"}),
	)

	md, err := MergeCumulative(dir, idx, latest)
	require.NoError(t, err)
	assert.Len(t, md.DaySnapshots, 2)
	assert.Equal(t, 2, md.TotalAddresses)

	fc, err := dir.ReadCollection(dataset.CumulativeMapDataFilename(latest))
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)

	var v3 *dataset.Feature
	for i := range fc.Features {
		if fc.Features[i].Properties.VUID == "V3" {
			require.Nil(t, v3, "V3 must appear exactly once")
			v3 = &fc.Features[i]
		}
	}
	require.NotNil(t, v3)
	// The later snapshot's data wins.
	assert.Equal(t, "Mall", v3.Properties.Site)
	assert.Equal(t, 9.0, v3.Geometry.Lat())
}

func TestMergeCumulativeCountsUnmatched(t *testing.T) {
	dir, idx := newTestStore(t)
	latest := persistRoster(t, dir, idx, "2024-02-20",
		dataset.NewFeature(dataset.NewPoint(1, 1), dataset.Properties{VUID: "V1"}),
		dataset.NewFeature(nil, dataset.Properties{VUID: "V2", Unmatched: true}),
	)

	md, err := MergeCumulative(dir, idx, latest)
	require.NoError(t, err)
	assert.Equal(t, 1, md.UnmatchedCount)
	assert.Equal(t, 1, md.SuccessfullyGeocoded)
}

func TestMergeCumulativeIgnoresOtherElections(t *testing.T) {
	dir, idx := newTestStore(t)
	latest := persistRoster(t, dir, idx, "2024-02-20",
		dataset.NewFeature(dataset.NewPoint(1, 1), dataset.Properties{VUID: "V1"}),
	)

	// A full-roll election-day dataset for the same county must not leak in.
	persist(t, dir, idx, fullRollKey("2024-03-05"),
		geocodedFeature("V99", "123 MAIN STREET", "", 1, 1),
	)

	md, err := MergeCumulative(dir, idx, latest)
	require.NoError(t, err)
	assert.Len(t, md.DaySnapshots, 1)
	assert.Equal(t, 1, md.TotalAddresses)
}

func TestMergeCumulativeNoSnapshots(t *testing.T) {
	dir, idx := newTestStore(t)
	_, err := MergeCumulative(dir, idx, rosterKey("2024-02-20"))
	assert.Error(t, err)
}

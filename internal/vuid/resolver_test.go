package vuid

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whovoted/rollmap/internal/dataset"
)

func newTestStore(t *testing.T) (*dataset.Dir, *dataset.Index) {
	t.Helper()
	dir, err := dataset.NewDir(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	idx, err := dataset.NewIndex(dir)
	require.NoError(t, err)
	return dir, idx
}

func fullRollKey(date string) dataset.Key {
	return dataset.Key{
		Jurisdiction: "Lubbock",
		Year:         date[:4],
		ElectionType: "general",
		ElectionDate: date,
		VotingMethod: "election day",
	}
}

func geocodedFeature(vuid, address, party string, lat, lng float64) dataset.Feature {
	return dataset.NewFeature(dataset.NewPoint(lat, lng), dataset.Properties{
		VUID:         vuid,
		Address:      address,
		DisplayName:  address + ", Lubbock, Texas",
		PartyCurrent: party,
	})
}

func persist(t *testing.T, dir *dataset.Dir, idx *dataset.Index, k dataset.Key, features ...dataset.Feature) {
	t.Helper()
	md := dataset.NewMetadata(k, "roll.csv")
	md.TotalAddresses = len(features)
	require.NoError(t, dir.WritePair(k, dataset.NewFeatureCollection(features), md))
	idx.Add(md)
}

func TestNormalizeVUID(t *testing.T) {
	assert.Equal(t, "100001", NormalizeVUID(" 100001 "))
	assert.Equal(t, "100001", NormalizeVUID("100001.0"))
	assert.Equal(t, "100001", NormalizeVUID("100001."))
	assert.Equal(t, "", NormalizeVUID("  "))
	assert.Equal(t, "100001", NormalizeVUID("100001"))
}

func TestResolverBuildAndResolve(t *testing.T) {
	dir, idx := newTestStore(t)
	persist(t, dir, idx, fullRollKey("2022-11-08"),
		geocodedFeature("V1", "123 MAIN STREET", "Republican", 33.58, -101.85),
	)

	r := NewResolver(dir, idx)
	require.NoError(t, r.Build("Lubbock"))
	assert.Equal(t, 1, r.Size())

	loc, ok := r.Resolve("V1")
	require.True(t, ok)
	assert.Equal(t, 33.58, loc.Lat)
	assert.Equal(t, "123 MAIN STREET", loc.Address)
	assert.Equal(t, "Republican", loc.Party)

	// Normalization applies at resolve time too.
	_, ok = r.Resolve(" V1.0 ")
	assert.True(t, ok)

	_, ok = r.Resolve("V404")
	assert.False(t, ok)
}

func TestResolverNumericSuffixResolve(t *testing.T) {
	dir, idx := newTestStore(t)
	persist(t, dir, idx, fullRollKey("2022-11-08"),
		geocodedFeature("100001", "123 MAIN STREET", "", 1, 2),
	)

	r := NewResolver(dir, idx)
	require.NoError(t, r.Build("Lubbock"))

	loc, ok := r.Resolve("100001.0")
	require.True(t, ok)
	assert.Equal(t, 1.0, loc.Lat)
}

func TestResolverLatestDatasetWins(t *testing.T) {
	dir, idx := newTestStore(t)
	persist(t, dir, idx, fullRollKey("2020-11-03"),
		geocodedFeature("V1", "OLD ADDRESS", "", 1, 1),
	)
	persist(t, dir, idx, fullRollKey("2022-11-08"),
		geocodedFeature("V1", "NEW ADDRESS", "", 2, 2),
	)

	r := NewResolver(dir, idx)
	require.NoError(t, r.Build("Lubbock"))

	loc, ok := r.Resolve("V1")
	require.True(t, ok)
	assert.Equal(t, "NEW ADDRESS", loc.Address)
	assert.Equal(t, 2.0, loc.Lat)
}

func TestResolverSkipsNullGeometry(t *testing.T) {
	dir, idx := newTestStore(t)
	persist(t, dir, idx, fullRollKey("2022-11-08"),
		dataset.NewFeature(nil, dataset.Properties{VUID: "V9", Unmatched: true}),
	)

	r := NewResolver(dir, idx)
	require.NoError(t, r.Build("Lubbock"))
	assert.Zero(t, r.Size())
}

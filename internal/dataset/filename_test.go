package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func primaryKey() Key {
	return Key{
		Jurisdiction: "Lubbock",
		Year:         "2024",
		ElectionType: "primary",
		ElectionDate: "2024-03-05",
		VotingMethod: "early",
		Party:        "republican",
	}
}

func TestMapDataFilename(t *testing.T) {
	assert.Equal(t, "map_data_Lubbock_2024_primary_republican_20240305.json", MapDataFilename(primaryKey()))

	general := Key{Jurisdiction: "Tom Green", Year: "2024", ElectionType: "general", ElectionDate: "2024-11-05"}
	assert.Equal(t, "map_data_Tom_Green_2024_general_20241105.json", MapDataFilename(general))
}

func TestMetadataFilename(t *testing.T) {
	assert.Equal(t, "metadata_Lubbock_2024_primary_republican_20240305.json", MetadataFilename(primaryKey()))
}

func TestCumulativeFilenames(t *testing.T) {
	assert.Equal(t, "map_data_Lubbock_2024_primary_republican_cumulative.json", CumulativeMapDataFilename(primaryKey()))
	assert.Equal(t, "metadata_Lubbock_2024_primary_republican_cumulative.json", CumulativeMetadataFilename(primaryKey()))
}

func TestParseUploadFilenameFull(t *testing.T) {
	info := ParseUploadFilename("Lubbock County 2024 REP PRIMARY EV 20240226083000.csv")
	assert.Equal(t, "Lubbock", info.Jurisdiction)
	assert.Equal(t, "2024", info.Year)
	assert.Equal(t, "primary", info.ElectionType)
	assert.Equal(t, "republican", info.Party)
	assert.True(t, info.EarlyVoting)
	assert.False(t, info.Cumulative)
	assert.Equal(t, "2024-02-26", info.ElectionDate)
}

func TestParseUploadFilenameGeneral(t *testing.T) {
	info := ParseUploadFilename("tom_green_county_2022_GENERAL.xlsx")
	assert.Equal(t, "2022", info.Year)
	assert.Equal(t, "general", info.ElectionType)
	assert.Empty(t, info.Party)
	assert.False(t, info.EarlyVoting)
}

func TestParseUploadFilenameCumulative(t *testing.T) {
	info := ParseUploadFilename("Lubbock County DEM RUNOFF CUMULATIVE 2024.csv")
	assert.True(t, info.Cumulative)
	assert.Equal(t, "democratic", info.Party)
	assert.Equal(t, "runoff", info.ElectionType)
}

func TestParseUploadFilenameSparse(t *testing.T) {
	info := ParseUploadFilename("roster.csv")
	assert.Empty(t, info.Jurisdiction)
	assert.Empty(t, info.Year)
	assert.Empty(t, info.ElectionType)
	assert.Empty(t, info.ElectionDate)
}

func TestParseUploadFilenameNoEVFalsePositive(t *testing.T) {
	// "EVENING" must not trip the early-voting token.
	info := ParseUploadFilename("EVENING precinct list 2024.csv")
	assert.False(t, info.EarlyVoting)
}

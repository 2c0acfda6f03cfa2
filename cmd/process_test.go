package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyFromFilename(t *testing.T) {
	t.Cleanup(resetProcessFlags)
	resetProcessFlags()

	k, err := keyFromFlagsAndFilename("Lubbock County 2024 REP PRIMARY EV 20240226083000.csv")
	require.NoError(t, err)
	assert.Equal(t, "Lubbock", k.Jurisdiction)
	assert.Equal(t, "2024", k.Year)
	assert.Equal(t, "primary", k.ElectionType)
	assert.Equal(t, "2024-02-26", k.ElectionDate)
	assert.Equal(t, "republican", k.Party)
	assert.Equal(t, "early", k.VotingMethod)
}

func TestKeyFlagsOverrideFilename(t *testing.T) {
	t.Cleanup(resetProcessFlags)
	resetProcessFlags()
	processCounty = "Hale"
	processDate = "2024-03-05"
	processMethod = "election day"

	k, err := keyFromFlagsAndFilename("Lubbock County 2024 REP PRIMARY EV 20240226083000.csv")
	require.NoError(t, err)
	assert.Equal(t, "Hale", k.Jurisdiction)
	assert.Equal(t, "2024-03-05", k.ElectionDate)
	assert.Equal(t, "election day", k.VotingMethod)
}

func TestKeyFromFilenameIncomplete(t *testing.T) {
	t.Cleanup(resetProcessFlags)
	resetProcessFlags()

	_, err := keyFromFlagsAndFilename("roll.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incomplete")
}

func resetProcessFlags() {
	processCounty = ""
	processYear = ""
	processType = ""
	processDate = ""
	processMethod = ""
	processParty = ""
	processReplace = false
}

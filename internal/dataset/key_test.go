package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyCanonical(t *testing.T) {
	k := Key{
		Jurisdiction: "LUBBOCK",
		Year:         "2024",
		ElectionType: "Primary",
		ElectionDate: "2024-03-05",
		VotingMethod: "Election Day",
		Party:        "REP",
	}
	c := k.Canonical()
	assert.Equal(t, "Lubbock", c.Jurisdiction)
	assert.Equal(t, "primary", c.ElectionType)
	assert.Equal(t, "election day", c.VotingMethod)
	assert.Equal(t, "rep", c.Party)
}

func TestKeyEqualCaseInsensitiveJurisdiction(t *testing.T) {
	a := Key{Jurisdiction: "lubbock", Year: "2024", ElectionType: "primary", ElectionDate: "2024-03-05", VotingMethod: "early"}
	b := Key{Jurisdiction: "LUBBOCK", Year: "2024", ElectionType: "PRIMARY", ElectionDate: "2024-03-05", VotingMethod: "Early"}
	assert.True(t, a.Equal(b))
}

func TestKeyEqualDifferentParty(t *testing.T) {
	a := Key{Jurisdiction: "Lubbock", Year: "2024", ElectionType: "primary", ElectionDate: "2024-03-05", VotingMethod: "early", Party: "republican"}
	b := a
	b.Party = "democratic"
	assert.False(t, a.Equal(b))

	b.Party = "Republican"
	assert.True(t, a.Equal(b))
}

func TestKeyValidate(t *testing.T) {
	k := Key{Jurisdiction: "Lubbock", Year: "2024", ElectionType: "general", ElectionDate: "2024-11-05"}
	assert.NoError(t, k.Validate())

	assert.Error(t, Key{Year: "2024", ElectionType: "general", ElectionDate: "2024-11-05"}.Validate())
	assert.Error(t, Key{Jurisdiction: "Lubbock", Year: "2024", ElectionType: "general", ElectionDate: "11/05/2024"}.Validate())
}

func TestKeyDateCompact(t *testing.T) {
	k := Key{ElectionDate: "2024-03-05"}
	assert.Equal(t, "20240305", k.DateCompact())
}

func TestKeyBefore(t *testing.T) {
	k := Key{ElectionDate: "2022-11-08"}
	assert.True(t, k.Before("2024-03-05"))
	assert.False(t, k.Before("2022-11-08"))
	assert.False(t, k.Before("2020-11-03"))
}

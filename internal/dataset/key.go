// Package dataset defines the identity, artifact naming, and on-disk
// contracts for persisted election datasets, plus the in-memory index
// used to find them.
package dataset

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Key identifies one persisted dataset. At most one output pair exists
// per key at a time; writing a duplicate replaces the prior pair.
type Key struct {
	Jurisdiction string `json:"jurisdiction"`
	Year         string `json:"year"`
	ElectionType string `json:"election_type"`
	ElectionDate string `json:"election_date"` // YYYY-MM-DD
	VotingMethod string `json:"voting_method"`
	Party        string `json:"party,omitempty"`
}

var titleCaser = cases.Title(language.AmericanEnglish)

// Canonical returns the key with the jurisdiction in title case and the
// remaining fields lowercased, so keys compare consistently regardless of
// how the upload spelled them.
func (k Key) Canonical() Key {
	return Key{
		Jurisdiction: titleCaser.String(strings.ToLower(strings.TrimSpace(k.Jurisdiction))),
		Year:         strings.TrimSpace(k.Year),
		ElectionType: strings.ToLower(strings.TrimSpace(k.ElectionType)),
		ElectionDate: strings.TrimSpace(k.ElectionDate),
		VotingMethod: strings.ToLower(strings.TrimSpace(k.VotingMethod)),
		Party:        strings.ToLower(strings.TrimSpace(k.Party)),
	}
}

// Equal reports whether two keys identify the same dataset. Jurisdiction
// comparison is case-insensitive.
func (k Key) Equal(other Key) bool {
	a, b := k.Canonical(), other.Canonical()
	return strings.EqualFold(a.Jurisdiction, b.Jurisdiction) &&
		a.Year == b.Year &&
		a.ElectionType == b.ElectionType &&
		a.ElectionDate == b.ElectionDate &&
		a.VotingMethod == b.VotingMethod &&
		a.Party == b.Party
}

// Validate checks that the key carries everything artifact naming needs.
func (k Key) Validate() error {
	var missing []string
	if strings.TrimSpace(k.Jurisdiction) == "" {
		missing = append(missing, "jurisdiction")
	}
	if strings.TrimSpace(k.Year) == "" {
		missing = append(missing, "year")
	}
	if strings.TrimSpace(k.ElectionType) == "" {
		missing = append(missing, "election type")
	}
	if strings.TrimSpace(k.ElectionDate) == "" {
		missing = append(missing, "election date")
	}
	if len(missing) > 0 {
		return eris.Errorf("dataset: key missing %s", strings.Join(missing, ", "))
	}
	if _, err := time.Parse("2006-01-02", k.ElectionDate); err != nil {
		return eris.Wrapf(err, "dataset: bad election date %q", k.ElectionDate)
	}
	return nil
}

// DateCompact returns the election date as YYYYMMDD for filenames.
func (k Key) DateCompact() string {
	return strings.ReplaceAll(k.ElectionDate, "-", "")
}

// Before reports whether k's election date is strictly earlier than date
// (both YYYY-MM-DD, so string comparison is chronological).
func (k Key) Before(date string) bool {
	return k.ElectionDate < date
}

// Package xref computes prior party affiliation for voters by matching
// the current dataset against earlier persisted datasets.
package xref

import "strings"

// NormalizeParty expands the common roll-file party codes to full names.
// Anything unrecognized passes through trimmed, so write-in and
// third-party tokens keep their literal spelling.
func NormalizeParty(raw string) string {
	s := strings.TrimSpace(raw)
	switch strings.ToUpper(s) {
	case "D", "DEM", "DEMOCRAT", "DEMOCRATIC":
		return "Democratic"
	case "R", "REP", "REPUBLICAN":
		return "Republican"
	}
	return s
}

// partyClass buckets a party string for comparison. Democratic and
// Republican are matched by substring; every other value is its own
// class, compared literally but case-insensitively.
func partyClass(party string) string {
	s := strings.ToLower(strings.TrimSpace(party))
	switch {
	case strings.Contains(s, "dem"):
		return "dem"
	case strings.Contains(s, "rep"):
		return "rep"
	default:
		return s
	}
}

// SameParty reports whether two party strings name the same affiliation.
func SameParty(a, b string) bool {
	return partyClass(a) == partyClass(b)
}

// PartyFromBallotStyle recovers a party from ballot-style text such as
// "BS7 REP", or "" when the style carries no party token.
func PartyFromBallotStyle(style string) string {
	upper := strings.ToUpper(style)
	switch {
	case strings.Contains(upper, "REP"):
		return "Republican"
	case strings.Contains(upper, "DEM"):
		return "Democratic"
	}
	return ""
}

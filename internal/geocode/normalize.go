package geocode

import (
	"regexp"
	"strings"
)

// abbreviations maps street-type, directional, and state abbreviations to
// their full spellings. Applied in order on word boundaries so an already
// expanded form passes through unchanged.
var abbreviations = []struct {
	re   *regexp.Regexp
	full string
}{
	{regexp.MustCompile(`\bST\b`), "STREET"},
	{regexp.MustCompile(`\bAVE\b`), "AVENUE"},
	{regexp.MustCompile(`\bRD\b`), "ROAD"},
	{regexp.MustCompile(`\bDR\b`), "DRIVE"},
	{regexp.MustCompile(`\bLN\b`), "LANE"},
	{regexp.MustCompile(`\bCT\b`), "COURT"},
	{regexp.MustCompile(`\bBLVD\b`), "BOULEVARD"},
	{regexp.MustCompile(`\bCIR\b`), "CIRCLE"},
	{regexp.MustCompile(`\bPKWY\b`), "PARKWAY"},
	{regexp.MustCompile(`\bHWY\b`), "HIGHWAY"},
	{regexp.MustCompile(`\bAPT\b`), "APARTMENT"},
	{regexp.MustCompile(`\bN\b`), "NORTH"},
	{regexp.MustCompile(`\bS\b`), "SOUTH"},
	{regexp.MustCompile(`\bE\b`), "EAST"},
	{regexp.MustCompile(`\bW\b`), "WEST"},
	{regexp.MustCompile(`\bTX\b`), "TEXAS"},
}

var texasRe = regexp.MustCompile(`\bTEXAS\b`)

// Normalize canonicalizes an address for use as a cache key: uppercase,
// single-spaced, abbreviations expanded, state spelled in full. Idempotent.
func Normalize(address string) string {
	s := strings.ToUpper(strings.TrimSpace(address))
	s = strings.Join(strings.Fields(s), " ")
	for _, a := range abbreviations {
		s = a.re.ReplaceAllString(s, a.full)
	}
	return s
}

// AbbreviateState rewrites the full state name back to its two-letter form.
// Cache files written before the normalization format settled keyed some
// entries this way, so lookups try this variant second.
func AbbreviateState(address string) string {
	return texasRe.ReplaceAllString(address, "TX")
}

// LookupKeys returns the candidate cache keys for an address in the order
// they should be tried: normalized, normalized with the state abbreviated,
// then the verbatim input.
func LookupKeys(address string) []string {
	norm := Normalize(address)
	keys := []string{norm}
	if abbr := AbbreviateState(norm); abbr != norm {
		keys = append(keys, abbr)
	}
	if address != norm {
		keys = append(keys, address)
	}
	return keys
}

var zipRe = regexp.MustCompile(`\b(\d{5})\b`)

// ExtractZip returns the first 5-digit postal code in the address, or "".
func ExtractZip(address string) string {
	return zipRe.FindString(address)
}

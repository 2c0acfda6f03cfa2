package dataset

import (
	"regexp"
	"strings"
)

// Fixed "latest" aliases kept for consumers that predate keyed filenames.
const (
	LatestMapDataName  = "map_data.json"
	LatestMetadataName = "metadata.json"
)

// MapDataFilename returns the keyed artifact name,
// map_data_{County}_{Year}_{type}[_{party}]_{YYYYMMDD}.json.
func MapDataFilename(k Key) string {
	return "map_data_" + keyStem(k) + ".json"
}

// MetadataFilename returns the metadata document name for a key.
func MetadataFilename(k Key) string {
	return "metadata_" + keyStem(k) + ".json"
}

// CumulativeMapDataFilename names the merged roster artifact. The merge
// unions daily snapshots, so the name carries the election identity but
// no snapshot date.
func CumulativeMapDataFilename(k Key) string {
	return "map_data_" + electionStem(k) + "_cumulative.json"
}

// CumulativeMetadataFilename names the merged roster metadata.
func CumulativeMetadataFilename(k Key) string {
	return "metadata_" + electionStem(k) + "_cumulative.json"
}

func keyStem(k Key) string {
	return electionStem(k) + "_" + k.DateCompact()
}

func electionStem(k Key) string {
	c := k.Canonical()
	parts := []string{
		strings.ReplaceAll(c.Jurisdiction, " ", "_"),
		c.Year,
		c.ElectionType,
	}
	if c.Party != "" {
		parts = append(parts, c.Party)
	}
	return strings.Join(parts, "_")
}

// UploadInfo is what can be recovered from an uploaded roster filename.
// Missing fields stay zero; callers fill them from explicit parameters.
type UploadInfo struct {
	Jurisdiction string
	Year         string
	ElectionType string
	ElectionDate string // YYYY-MM-DD when a timestamp was embedded
	Party        string
	EarlyVoting  bool
	Cumulative   bool
}

var uploadPartyTokens = map[string]string{
	"REP": "republican",
	"DEM": "democratic",
	"LIB": "libertarian",
	"GRN": "green",
	"IND": "independent",
}

var uploadElectionTypes = []string{"PRIMARY", "RUNOFF", "GENERAL", "SPECIAL"}

var (
	uploadYearRe      = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	uploadTimestampRe = regexp.MustCompile(`(\d{14,20})(?:\.[A-Za-z0-9]+)?$`)
	uploadCountyRe    = regexp.MustCompile(`(?i)\b([A-Z][A-Za-z]+)[ _]County\b`)
)

// ParseUploadFilename extracts whatever dataset parameters the roster
// filename encodes, e.g. "Lubbock County 2024 REP PRIMARY EV 20240226083000.csv".
func ParseUploadFilename(name string) UploadInfo {
	var info UploadInfo

	// Strip a single trailing extension before token scanning.
	base := name
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	upper := strings.ToUpper(base)

	if m := uploadCountyRe.FindStringSubmatch(base); m != nil {
		info.Jurisdiction = titleCaser.String(strings.ToLower(m[1]))
	}
	if y := uploadYearRe.FindString(upper); y != "" {
		info.Year = y
	}
	for _, et := range uploadElectionTypes {
		if containsToken(upper, et) {
			info.ElectionType = strings.ToLower(et)
			break
		}
	}
	for token, party := range uploadPartyTokens {
		if containsToken(upper, token) {
			info.Party = party
			break
		}
	}
	info.EarlyVoting = containsToken(upper, "EV") || strings.Contains(upper, "EARLY")
	info.Cumulative = strings.Contains(upper, "CUMULATIVE")

	if m := uploadTimestampRe.FindStringSubmatch(base); m != nil && len(m[1]) >= 8 {
		ts := m[1]
		info.ElectionDate = ts[0:4] + "-" + ts[4:6] + "-" + ts[6:8]
	}

	return info
}

// containsToken reports whether s contains token as a whole word delimited
// by spaces, underscores, or dashes.
func containsToken(s, token string) bool {
	for _, f := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '_' || r == '-'
	}) {
		if f == token {
			return true
		}
	}
	return false
}

package pipeline

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/whovoted/rollmap/internal/fetcher"
	"github.com/whovoted/rollmap/internal/geocode"
	"github.com/whovoted/rollmap/internal/vuid"
)

// TableKind classifies an upload by its columns.
type TableKind int

const (
	// KindFullRoll is a per-voter address export.
	KindFullRoll TableKind = iota
	// KindRoster is a daily early-vote check-in list keyed by voter id
	// with no address column.
	KindRoster
)

// ClassifyTable decides whether an upload is a full roll or a roster and
// rejects files missing the columns that kind requires.
func ClassifyTable(tbl *fetcher.Table) (TableKind, error) {
	hasAddr := tbl.HasCol(addressCols...)
	hasID := tbl.HasCol(vuidCols...) || tbl.HasCol(idCols...) || tbl.HasCol(certCols...)

	if !hasAddr {
		if hasID {
			return KindRoster, nil
		}
		return 0, eris.New("pipeline: file has neither an address column nor a voter id column")
	}
	if !tbl.HasCol(precinctCols...) {
		return 0, eris.New("pipeline: missing required column PRECINCT")
	}
	if !tbl.HasCol(ballotCols...) {
		return 0, eris.New("pipeline: missing required column BALLOT STYLE")
	}
	return KindFullRoll, nil
}

// CleanAddress normalizes a raw roll address. When the address names none
// of the jurisdiction's known cities, the default city and state are
// appended so providers get a resolvable query; when it already carries a
// city but no state, only the state is appended.
func CleanAddress(raw, defaultCity, state string, knownCities []string) string {
	norm := geocode.Normalize(raw)
	if norm == "" {
		return ""
	}
	st := geocode.Normalize(state)

	if !containsCity(norm, defaultCity, knownCities) {
		if city := strings.ToUpper(strings.TrimSpace(defaultCity)); city != "" {
			return insertLocality(norm, city+", "+st)
		}
		return norm
	}
	if st != "" && !strings.Contains(norm, st) {
		return insertLocality(norm, st)
	}
	return norm
}

// containsCity reports whether the normalized address already names the
// default city or any of the jurisdiction's known cities.
func containsCity(norm, defaultCity string, knownCities []string) bool {
	if city := strings.ToUpper(strings.TrimSpace(defaultCity)); city != "" && strings.Contains(norm, city) {
		return true
	}
	for _, c := range knownCities {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" && strings.Contains(norm, c) {
			return true
		}
	}
	return false
}

// insertLocality appends a locality suffix, keeping a trailing ZIP last.
func insertLocality(norm, locality string) string {
	if zip := geocode.ExtractZip(norm); zip != "" && strings.HasSuffix(norm, zip) {
		head := strings.TrimRight(norm[:len(norm)-len(zip)], " ,")
		return head + ", " + locality + " " + zip
	}
	return norm + ", " + locality
}

// rosterFromTable extracts early-vote check-in entries. Rows without a
// usable voter id are kept so the roster still counts them as unmatched.
func rosterFromTable(tbl *fetcher.Table) []vuid.RosterEntry {
	vuidCol := tbl.Col(vuidCols...)
	idCol := tbl.Col(idCols...)
	certCol := tbl.Col(certCols...)
	nameCol := tbl.Col(nameCols...)
	lastCol := tbl.Col("LASTNAME", "LAST NAME")
	firstCol := tbl.Col("FIRSTNAME", "FIRST NAME")
	partyCol := tbl.Col("PARTY")
	checkCol := tbl.Col("CHECK-IN", "CHECKIN", "CHECK IN", "TIME")
	siteCol := tbl.Col("SITE", "LOCATION", "POLLING PLACE")

	entries := make([]vuid.RosterEntry, 0, tbl.Len())
	for i := 0; i < tbl.Len(); i++ {
		e := vuid.RosterEntry{
			VUID:      identityFallback(tbl.Get(i, vuidCol), tbl.Get(i, certCol), tbl.Get(i, idCol)),
			FullName:  tbl.Get(i, nameCol),
			LastName:  tbl.Get(i, lastCol),
			FirstName: tbl.Get(i, firstCol),
			Party:     tbl.Get(i, partyCol),
			CheckIn:   tbl.Get(i, checkCol),
			Site:      tbl.Get(i, siteCol),
		}
		if e.FullName == "" {
			e.FullName = synthesizeFullName(e.LastName, e.FirstName, "", "")
		}
		if e.LastName == "" && e.FullName != "" {
			e.LastName, e.FirstName = vuid.ParseFullName(e.FullName)
		}
		if e.VUID == "" && e.FullName == "" {
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

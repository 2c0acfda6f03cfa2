// Package pipeline runs uploaded roll files through validation, cleaning,
// parallel geocoding, and artifact generation as cancellable jobs under a
// bounded-concurrency scheduler.
package pipeline

import (
	"regexp"
	"strings"

	"github.com/whovoted/rollmap/internal/fetcher"
)

// Column aliases accepted in uploaded files.
var (
	addressCols  = []string{"ADDRESS", "STREET ADDRESS", "RESIDENCE ADDRESS"}
	precinctCols = []string{"PRECINCT", "PCT"}
	ballotCols   = []string{"BALLOT STYLE", "BALLOTSTYLE"}
	vuidCols     = []string{"VUID", "VOTERID", "VOTER ID"}
	idCols       = []string{"ID"}
	certCols     = []string{"CERT", "CERTIFICATE"}
	nameCols     = []string{"VOTERNAME", "VOTER NAME", "NAME"}
)

// VoterRecord is one roll row owned by a job for its lifetime. Optional
// identity fields stay empty when the upload lacks them.
type VoterRecord struct {
	OriginalAddress string
	CleanAddress    string

	Precinct    string
	BallotStyle string

	VUID       string
	LastName   string
	FirstName  string
	MiddleName string
	Suffix     string
	FullName   string
	Party      string

	Voted      bool
	Registered bool

	Latitude    float64
	Longitude   float64
	DisplayName string
	Source      string
	Fallback    string
	Geocoded    bool
}

var tenDigitRe = regexp.MustCompile(`^\d{10}$`)

// votedInCurrent reports whether the row carries any indicator that the
// voter cast a ballot in this election: an explicit voted flag, or a vote
// method or vote date value.
func votedInCurrent(voted, method, date string) bool {
	switch strings.ToUpper(strings.TrimSpace(voted)) {
	case "Y", "YES", "TRUE", "1":
		return true
	}
	return strings.TrimSpace(method) != "" || strings.TrimSpace(date) != ""
}

// isRegistered interprets an optional registration status column. A roll
// row with no status information counts as registered.
func isRegistered(status string) bool {
	s := strings.ToUpper(strings.TrimSpace(status))
	if s == "" {
		return true
	}
	return s == "ACTIVE" || s == "REGISTERED" || s == "A" || s == "V"
}

// identityFallback picks a voter id from the available columns: VUID,
// then CERT, then an ID that looks like a 10-digit registration number.
func identityFallback(vuid, cert, id string) string {
	if vuid != "" {
		return vuid
	}
	if cert != "" {
		return cert
	}
	if tenDigitRe.MatchString(id) {
		return id
	}
	return ""
}

// synthesizeFullName assembles "LAST, FIRST MIDDLE SUFFIX" from whatever
// name parts the row has.
func synthesizeFullName(last, first, middle, suffix string) string {
	if last == "" && first == "" {
		return ""
	}
	given := strings.Join(nonEmpty(first, middle, suffix), " ")
	if last == "" {
		return given
	}
	if given == "" {
		return last
	}
	return last + ", " + given
}

func nonEmpty(parts ...string) []string {
	var out []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, strings.TrimSpace(p))
		}
	}
	return out
}

// recordsFromTable extracts voter records from a validated full-roll table.
func recordsFromTable(tbl *fetcher.Table) []VoterRecord {
	addrCol := tbl.Col(addressCols...)
	precinctCol := tbl.Col(precinctCols...)
	ballotCol := tbl.Col(ballotCols...)
	vuidCol := tbl.Col(vuidCols...)
	idCol := tbl.Col(idCols...)
	certCol := tbl.Col(certCols...)
	lastCol := tbl.Col("LASTNAME", "LAST NAME")
	firstCol := tbl.Col("FIRSTNAME", "FIRST NAME")
	middleCol := tbl.Col("MIDDLENAME", "MIDDLE NAME")
	suffixCol := tbl.Col("SUFFIX")
	partyCol := tbl.Col("PARTY")
	votedCol := tbl.Col("VOTED")
	methodCol := tbl.Col("VOTE METHOD", "VOTE_METHOD")
	voteDateCol := tbl.Col("VOTE DATE", "VOTE_DATE")
	statusCol := tbl.Col("REGISTRATION STATUS", "REGISTRATION_STATUS", "STATUS")

	records := make([]VoterRecord, 0, tbl.Len())
	for i := 0; i < tbl.Len(); i++ {
		addr := tbl.Get(i, addrCol)
		if addr == "" {
			continue
		}
		rec := VoterRecord{
			OriginalAddress: addr,
			Precinct:        tbl.Get(i, precinctCol),
			BallotStyle:     tbl.Get(i, ballotCol),
			VUID:            identityFallback(tbl.Get(i, vuidCol), tbl.Get(i, certCol), tbl.Get(i, idCol)),
			LastName:        tbl.Get(i, lastCol),
			FirstName:       tbl.Get(i, firstCol),
			MiddleName:      tbl.Get(i, middleCol),
			Suffix:          tbl.Get(i, suffixCol),
			Party:           tbl.Get(i, partyCol),
			Voted:           votedInCurrent(tbl.Get(i, votedCol), tbl.Get(i, methodCol), tbl.Get(i, voteDateCol)),
			Registered:      isRegistered(tbl.Get(i, statusCol)),
		}
		rec.FullName = synthesizeFullName(rec.LastName, rec.FirstName, rec.MiddleName, rec.Suffix)
		records = append(records, rec)
	}
	return records
}

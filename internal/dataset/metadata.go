package dataset

// Metadata is the JSON document persisted beside every FeatureCollection.
// Field names are part of the artifact contract and must not change.
type Metadata struct {
	Year         string `json:"year"`
	County       string `json:"county"`
	ElectionType string `json:"election_type"`
	ElectionDate string `json:"election_date"`
	VotingMethod string `json:"voting_method"`
	PrimaryParty string `json:"primary_party,omitempty"`

	OriginalFilename string `json:"original_filename"`
	LastUpdated      string `json:"last_updated"`

	TotalAddresses       int     `json:"total_addresses"`
	SuccessfullyGeocoded int     `json:"successfully_geocoded"`
	FailedAddresses      int     `json:"failed_addresses"`
	CacheHits            int     `json:"cache_hits"`
	CacheHitRate         float64 `json:"cache_hit_rate"`
	APICalls             int     `json:"api_calls"`

	// Roster-only fields.
	UnmatchedCount int      `json:"unmatched_count,omitempty"`
	DaySnapshots   []string `json:"day_snapshots,omitempty"`
}

// Key derives the dataset key a metadata document describes.
func (m *Metadata) Key() Key {
	return Key{
		Jurisdiction: m.County,
		Year:         m.Year,
		ElectionType: m.ElectionType,
		ElectionDate: m.ElectionDate,
		VotingMethod: m.VotingMethod,
		Party:        m.PrimaryParty,
	}
}

// NewMetadata builds a metadata document from a key.
func NewMetadata(k Key, originalFilename string) *Metadata {
	c := k.Canonical()
	return &Metadata{
		Year:             c.Year,
		County:           c.Jurisdiction,
		ElectionType:     c.ElectionType,
		ElectionDate:     c.ElectionDate,
		VotingMethod:     c.VotingMethod,
		PrimaryParty:     c.Party,
		OriginalFilename: originalFilename,
	}
}

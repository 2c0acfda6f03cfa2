package dataset

// Geometry is a GeoJSON Point. A nil *Geometry on a Feature marshals to
// JSON null, which is how unmatched roster entries are represented.
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"` // [lng, lat]
}

// NewPoint builds a Point geometry from latitude and longitude.
func NewPoint(lat, lng float64) *Geometry {
	return &Geometry{Type: "Point", Coordinates: []float64{lng, lat}}
}

// Lat returns the latitude of a Point geometry.
func (g *Geometry) Lat() float64 {
	if g == nil || len(g.Coordinates) < 2 {
		return 0
	}
	return g.Coordinates[1]
}

// Lng returns the longitude of a Point geometry.
func (g *Geometry) Lng() float64 {
	if g == nil || len(g.Coordinates) < 1 {
		return 0
	}
	return g.Coordinates[0]
}

// Properties is the attribute set carried by every output feature. Voter
// features fill the address and party fields; early-vote roster features
// fill the identity fields and the Unmatched flag.
type Properties struct {
	Address         string `json:"address,omitempty"`
	OriginalAddress string `json:"original_address,omitempty"`
	DisplayName     string `json:"display_name,omitempty"`
	Precinct        string `json:"precinct,omitempty"`
	BallotStyle     string `json:"ballot_style,omitempty"`
	Source          string `json:"source,omitempty"`
	Fallback        string `json:"fallback,omitempty"`

	VUID      string `json:"vuid,omitempty"`
	LastName  string `json:"lastname,omitempty"`
	FirstName string `json:"firstname,omitempty"`
	FullName  string `json:"name,omitempty"`

	PartyCurrent  string   `json:"party_affiliation_current,omitempty"`
	PartyPrevious string   `json:"party_affiliation_previous,omitempty"`
	PartyHistory  []string `json:"party_history,omitempty"`
	HasSwitched   bool     `json:"has_switched,omitempty"`

	VotedInCurrentElection bool `json:"voted_in_current_election,omitempty"`
	IsRegistered           bool `json:"is_registered,omitempty"`
	HouseholdVoterCount    int  `json:"household_voter_count,omitempty"`

	CheckIn string `json:"check_in,omitempty"`
	Site    string `json:"site,omitempty"`

	Unmatched bool `json:"unmatched,omitempty"`
}

// Feature is one GeoJSON feature in an output FeatureCollection.
type Feature struct {
	Type       string     `json:"type"`
	Geometry   *Geometry  `json:"geometry"`
	Properties Properties `json:"properties"`
}

// NewFeature builds a Feature with the conventional type tag.
func NewFeature(geom *Geometry, props Properties) Feature {
	return Feature{Type: "Feature", Geometry: geom, Properties: props}
}

// FeatureCollection is the persisted GeoJSON artifact for one dataset.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// NewFeatureCollection wraps features in a FeatureCollection. A nil slice
// becomes an empty one so the JSON always carries a features array.
func NewFeatureCollection(features []Feature) *FeatureCollection {
	if features == nil {
		features = []Feature{}
	}
	return &FeatureCollection{Type: "FeatureCollection", Features: features}
}

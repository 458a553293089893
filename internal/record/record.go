// Package record holds the typed raw rows produced by the loader.
//
// Every record carries a Ref pointing back at the file and row it came from.
// Records are immutable once loaded; absent fields hold their zero value.
package record

import "fmt"

// Table names, one subdirectory each under the data root.
const (
	TablePersons       = "persons_of_interest"
	TableFlights       = "flight_logs"
	TableDocuments     = "documents"
	TableRelationships = "relationships"
	TableEmails        = "emails"
)

// Tables lists every table in load order.
var Tables = []string{TablePersons, TableFlights, TableDocuments, TableRelationships, TableEmails}

// Ref is the provenance of a record: the file (relative to the data root) and the 1-based row.
type Ref struct {
	File string
	Line int
}

func (r Ref) String() string {
	return fmt.Sprintf("%s:%d", r.File, r.Line)
}

// Person is one row of a person listing.
type Person struct {
	Ref
	RawName     string
	Nationality string
	Category    string
	EntityType  string
	Role        string
	Bio         string
	Slug        string
	InBlackBook bool
}

// Flight is one flight log entry. Passengers are raw names, pre-resolution.
type Flight struct {
	Ref
	Date          string // 2006-01-02 when fully parsed, raw text otherwise
	Year          int
	Departure     string
	DepartureCode string
	Arrival       string
	ArrivalCode   string
	Aircraft      string
	Pilot         string
	Passengers    []string
	PassengersRaw string

	// ManifestInvalid marks a passenger list that could not be parsed.
	// Such flights count toward totals but credit no passenger.
	ManifestInvalid bool
}

// Document is one ranked document.
type Document struct {
	Ref
	Filename        string
	Headline        string
	ImportanceScore int
	Reason          string
	Tags            []string
	PowerMentions   []string
	LeadTypes       []string
	Agencies        []string
	KeyInsights     []string
}

// Edge is one raw relationship row between two raw names.
// Each row carries an implicit weight of 1.
type Edge struct {
	Ref
	A, B string
	Type string
}

// Email is one row of the email table.
type Email struct {
	Ref
	Date    string
	Year    int
	From    string
	To      string
	Subject string
	Slug    string
}

// ImageRef points at an image file relative to the asset root.
type ImageRef struct {
	Path     string `json:"path"`
	Category string `json:"category,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// ImageIndex maps name strings to their images, as produced by the image sync step.
type ImageIndex map[string][]ImageRef

// DepartureLabel renders the departure as "Name (CODE)", or whichever part is known.
func (f Flight) DepartureLabel() string {
	return airportLabel(f.Departure, f.DepartureCode)
}

// ArrivalLabel renders the arrival as "Name (CODE)", or whichever part is known.
func (f Flight) ArrivalLabel() string {
	return airportLabel(f.Arrival, f.ArrivalCode)
}

func airportLabel(name, code string) string {
	switch {
	case name != "" && code != "":
		return fmt.Sprintf("%s (%s)", name, code)
	case name != "":
		return name
	default:
		return code
	}
}

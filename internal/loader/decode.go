package loader

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/tidwall/gjson"

	"filesdash/xref/internal/record"
)

// Accepted column names per field, lowercased. Providers disagree on naming.
var (
	colPersonName  = []string{"name", "persons of interest", "person", "full_name"}
	colNationality = []string{"nationality", "country"}
	colCategory    = []string{"category"}
	colEntityType  = []string{"entity_type", "type"}
	colRole        = []string{"role_description", "role"}
	colBio         = []string{"bio", "description"}
	colSlug        = []string{"slug"}
	colBlackBook   = []string{"in black book", "in_black_book", "black_book"}

	colFlightDate    = []string{"flight_date", "date"}
	colAircraft      = []string{"aircraft_tail_number", "aircraft_id", "aircraft", "tail_number"}
	colPilot         = []string{"pilot_name", "pilot"}
	colDepartureCode = []string{"departure_airport_code", "departure_code"}
	colDeparture     = []string{"departure_airport", "departure", "from"}
	colArrivalCode   = []string{"arrival_airport_code", "arrival_code"}
	colArrival       = []string{"arrival_airport", "arrival", "to"}
	colPassengers    = []string{"passenger_names", "passengers"}

	colFilename    = []string{"filename", "file", "doc_id"}
	colHeadline    = []string{"headline", "title"}
	colImportance  = []string{"importance_score", "importance", "score"}
	colReason      = []string{"reason"}
	colTags        = []string{"tags"}
	colPower       = []string{"power_mentions"}
	colAgencies    = []string{"agency_involvement", "agencies", "agency"}
	colLeadTypes   = []string{"lead_types"}
	colKeyInsights = []string{"key_insights"}

	colEdgeA    = []string{"entity_a", "source", "person_a"}
	colEdgeB    = []string{"entity_b", "target", "person_b"}
	colEdgeType = []string{"relationship_type", "type", "relationship"}

	colEmailDate = []string{"date", "sent_at"}
	colEmailFrom = []string{"from", "sender"}
	colEmailTo   = []string{"to", "recipient", "recipients"}
	colSubject   = []string{"subject"}
)

var bareYear = regexp.MustCompile(`^(19|20)\d{2}$`)

func decodePerson(ref record.Ref, r row) (record.Person, error) {
	p := record.Person{
		Ref:         ref,
		RawName:     r.str(colPersonName...),
		Nationality: known(r.str(colNationality...)),
		Category:    known(r.str(colCategory...)),
		EntityType:  known(r.str(colEntityType...)),
		Role:        r.str(colRole...),
		Bio:         r.str(colBio...),
		Slug:        r.str(colSlug...),
		InBlackBook: truthy(r.str(colBlackBook...)),
	}
	if p.RawName == "" {
		return p, skip("missing name")
	}
	return p, nil
}

func decodeFlight(ref record.Ref, r row) (record.Flight, error) {
	f := record.Flight{
		Ref:           ref,
		Aircraft:      r.str(colAircraft...),
		Pilot:         r.str(colPilot...),
		Departure:     r.str(colDeparture...),
		DepartureCode: r.str(colDepartureCode...),
		Arrival:       r.str(colArrival...),
		ArrivalCode:   r.str(colArrivalCode...),
	}
	raw := r.str(colFlightDate...)
	date, year, ok := parseDate(raw)
	if !ok {
		return f, skip("unparseable date %q", raw)
	}
	f.Date, f.Year = date, year

	f.PassengersRaw = r.str(colPassengers...)
	f.Passengers, f.ManifestInvalid = parsePassengers(f.PassengersRaw)
	return f, nil
}

func decodeDocument(ref record.Ref, r row) (record.Document, error) {
	d := record.Document{
		Ref:           ref,
		Filename:      r.str(colFilename...),
		Headline:      r.str(colHeadline...),
		Reason:        r.str(colReason...),
		Tags:          r.list(colTags...),
		PowerMentions: r.list(colPower...),
		Agencies:      r.list(colAgencies...),
		LeadTypes:     r.list(colLeadTypes...),
		KeyInsights:   r.list(colKeyInsights...),
	}
	if d.Filename == "" && d.Headline == "" {
		return d, skip("missing filename and headline")
	}
	raw := r.str(colImportance...)
	score, ok := parseScore(raw)
	if !ok {
		return d, skip("invalid importance score %q", raw)
	}
	d.ImportanceScore = score
	return d, nil
}

func decodeEdge(ref record.Ref, r row) (record.Edge, error) {
	e := record.Edge{
		Ref:  ref,
		A:    r.str(colEdgeA...),
		B:    r.str(colEdgeB...),
		Type: r.str(colEdgeType...),
	}
	if e.A == "" || e.B == "" {
		return e, skip("missing relationship endpoint")
	}
	return e, nil
}

func decodeEmail(ref record.Ref, r row) (record.Email, error) {
	e := record.Email{
		Ref:     ref,
		From:    r.str(colEmailFrom...),
		To:      r.str(colEmailTo...),
		Subject: r.str(colSubject...),
		Slug:    r.str(colSlug...),
	}
	if e.From == "" && e.To == "" {
		return e, skip("missing sender and recipient")
	}
	raw := r.str(colEmailDate...)
	date, year, ok := parseDate(raw)
	if !ok {
		return e, skip("unparseable date %q", raw)
	}
	e.Date, e.Year = date, year
	return e, nil
}

// parseDate returns the ISO date and year of s. Empty input is the unknown
// date and parses fine; a bare year yields the year alone.
func parseDate(s string) (date string, year int, ok bool) {
	if s == "" {
		return "", 0, true
	}
	if bareYear.MatchString(s) {
		y, _ := strconv.Atoi(s)
		return s, y, true
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return "", 0, false
	}
	return t.Format(time.DateOnly), t.Year(), true
}

// parseScore parses an importance score on the 0-100 scale. Empty is 0.
func parseScore(s string) (int, bool) {
	if s == "" {
		return 0, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || v < 0 || v > 100 {
		return 0, false
	}
	return int(math.Round(v)), true
}

// parsePassengers splits a manifest. It accepts a JSON array of names or a
// delimited string: ';', '|' or newlines when present, commas otherwise.
// invalid reports an array form that could not be read.
func parsePassengers(raw string) (names []string, invalid bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	if strings.HasPrefix(raw, "[") {
		if !strings.HasSuffix(raw, "]") {
			return nil, true
		}
		if !gjson.Valid(raw) {
			return parseList(raw), false
		}
		for _, item := range gjson.Parse(raw).Array() {
			if item.Type != gjson.String {
				return nil, true
			}
			names = append(names, item.String())
		}
		return cleanList(names), false
	}

	sep := func(r rune) bool { return r == ';' || r == '|' || r == '\n' }
	if !strings.ContainsAny(raw, ";|\n") {
		sep = func(r rune) bool { return r == ',' }
	}
	for _, name := range strings.FieldsFunc(raw, sep) {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names, false
}

// parseList reads a stringified list such as "['a', 'b']" or "a, b".
func parseList(s string) []string {
	s = strings.Trim(strings.TrimSpace(s), `[]'"`)
	if s == "" {
		return nil
	}
	return cleanList(strings.Split(s, ","))
}

// cleanList trims items, drops empties and duplicates, and keeps first-seen order.
func cleanList(items []string) []string {
	var out []string
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		item = strings.Trim(strings.TrimSpace(item), `'"`)
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

func known(s string) string {
	if strings.EqualFold(s, "unknown") {
		return ""
	}
	return s
}

func truthy(s string) bool {
	switch strings.ToLower(s) {
	case "yes", "y", "true", "1":
		return true
	}
	return false
}

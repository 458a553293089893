package export

import (
	"sort"
	"strings"

	"filesdash/xref/internal/aggregate"
	"filesdash/xref/internal/graph"
	"filesdash/xref/internal/record"
	"filesdash/xref/internal/resolve"
)

// passengerSeparator joins a manifest into its display string.
const passengerSeparator = "; "

// NewBundle formats the run's entities into the output documents. It computes
// nothing beyond ordering and rendering.
func NewBundle(dir *resolve.Directory, flights []record.Flight, docs []record.Document, g graph.Graph, summary aggregate.Summary) *Bundle {
	return &Bundle{
		Persons:   personDocs(dir.Persons()),
		Flights:   flightDocs(flights),
		Documents: documentDocs(docs),
		Network:   networkDoc(g),
		Summary:   summary,
	}
}

// personDocs orders persons by flights, then documents, both descending, then id.
func personDocs(persons []resolve.Person) []PersonDoc {
	sort.SliceStable(persons, func(i, j int) bool {
		a, b := persons[i], persons[j]
		if a.Flights != b.Flights {
			return a.Flights > b.Flights
		}
		if a.Documents != b.Documents {
			return a.Documents > b.Documents
		}
		return a.ID < b.ID
	})

	out := make([]PersonDoc, 0, len(persons))
	for _, p := range persons {
		out = append(out, PersonDoc{
			ID:          p.ID,
			Name:        p.DisplayName,
			Aliases:     nonNil(p.Aliases),
			Nationality: orUnknown(p.Nationality),
			Category:    orUnknown(p.Category),
			EntityType:  p.EntityType,
			Role:        p.Role,
			Bio:         p.Bio,
			Slug:        p.Slug,
			InBlackBook: p.InBlackBook,
			Flights:     p.Flights,
			Documents:   p.Documents,
			Connections: p.Connections,
			Images:      imageDocs(p.Images),
		})
	}
	return out
}

// flightDocs orders flights by date, undated last, keeping input order for ties.
func flightDocs(flights []record.Flight) []FlightDoc {
	sorted := append([]record.Flight(nil), flights...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Date, sorted[j].Date
		if a == "" || b == "" {
			return a != "" && b == ""
		}
		return a < b
	})

	out := make([]FlightDoc, 0, len(sorted))
	for _, f := range sorted {
		passengers := strings.Join(f.Passengers, passengerSeparator)
		if f.ManifestInvalid {
			passengers = f.PassengersRaw
		}
		out = append(out, FlightDoc{
			Date:       f.Date,
			Year:       f.Year,
			Departure:  f.DepartureLabel(),
			Arrival:    f.ArrivalLabel(),
			Aircraft:   f.Aircraft,
			Pilot:      f.Pilot,
			Passengers: passengers,
		})
	}
	return out
}

// documentDocs orders documents by importance descending, keeping input order for ties.
func documentDocs(docs []record.Document) []DocumentDoc {
	sorted := append([]record.Document(nil), docs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ImportanceScore > sorted[j].ImportanceScore
	})

	out := make([]DocumentDoc, 0, len(sorted))
	for _, d := range sorted {
		out = append(out, DocumentDoc{
			Filename:        d.Filename,
			Headline:        d.Headline,
			ImportanceScore: d.ImportanceScore,
			Reason:          d.Reason,
			Tags:            nonNil(d.Tags),
			PowerMentions:   nonNil(d.PowerMentions),
			LeadTypes:       nonNil(d.LeadTypes),
			Agencies:        nonNil(d.Agencies),
			KeyInsights:     d.KeyInsights,
		})
	}
	return out
}

func networkDoc(g graph.Graph) NetworkDoc {
	doc := NetworkDoc{
		Nodes: make([]NodeDoc, 0, len(g.Nodes)),
		Links: make([]LinkDoc, 0, len(g.Links)),
	}
	for _, n := range g.Nodes {
		doc.Nodes = append(doc.Nodes, NodeDoc{
			ID:          n.ID,
			Name:        n.Name,
			Group:       orUnknown(n.Group),
			Flights:     n.Flights,
			Documents:   n.Documents,
			Connections: n.Connections,
			Nationality: orUnknown(n.Nationality),
			InBlackBook: n.InBlackBook,
			Images:      imageDocs(n.Images),
		})
	}
	for _, l := range g.Links {
		doc.Links = append(doc.Links, LinkDoc{
			Source:  l.Source,
			Target:  l.Target,
			Weight:  l.Weight,
			Types:   l.Types,
			Sources: l.Sources,
		})
	}
	return doc
}

func imageDocs(images []record.ImageRef) []ImageDoc {
	out := make([]ImageDoc, 0, len(images))
	for _, img := range images {
		out = append(out, ImageDoc{Path: img.Path, Category: img.Category})
	}
	return out
}

func orUnknown(s string) string {
	if s == "" {
		return Unknown
	}
	return s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

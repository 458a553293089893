package export

import (
	"fmt"

	"github.com/invopop/jsonschema"

	"filesdash/xref/internal/aggregate"
)

// Output document file names.
const (
	PersonsFile   = "persons_of_interest.json"
	FlightsFile   = "flight_logs.json"
	DocumentsFile = "documents.json"
	NetworkFile   = "network.json"
	SummaryFile   = "summary.json"
)

// Files lists the output documents in write order.
var Files = []string{PersonsFile, FlightsFile, DocumentsFile, NetworkFile, SummaryFile}

// Unknown is rendered for absent nationality and category values.
const Unknown = "Unknown"

type ImageDoc struct {
	Path     string `json:"path" validate:"required"`
	Category string `json:"category,omitempty"`
}

type PersonDoc struct {
	ID          string     `json:"id" validate:"required"`
	Name        string     `json:"name" validate:"required"`
	Aliases     []string   `json:"aliases" validate:"dive,required"`
	Nationality string     `json:"nationality" validate:"required"`
	Category    string     `json:"category" validate:"required"`
	EntityType  string     `json:"entity_type,omitempty"`
	Role        string     `json:"role,omitempty"`
	Bio         string     `json:"bio,omitempty"`
	Slug        string     `json:"slug,omitempty"`
	InBlackBook bool       `json:"in_black_book"`
	Flights     int        `json:"flights" validate:"gte=0"`
	Documents   int        `json:"documents" validate:"gte=0"`
	Connections int        `json:"connections" validate:"gte=0"`
	Images      []ImageDoc `json:"images" validate:"dive"`
}

type FlightDoc struct {
	Date       string `json:"date"`
	Year       int    `json:"year" validate:"gte=0"`
	Departure  string `json:"departure"`
	Arrival    string `json:"arrival"`
	Aircraft   string `json:"aircraft"`
	Pilot      string `json:"pilot,omitempty"`
	Passengers string `json:"passengers"`
}

type DocumentDoc struct {
	Filename        string   `json:"filename,omitempty"`
	Headline        string   `json:"headline"`
	ImportanceScore int      `json:"importance_score" validate:"gte=0,lte=100"`
	Reason          string   `json:"reason,omitempty"`
	Tags            []string `json:"tags" validate:"dive,required"`
	PowerMentions   []string `json:"power_mentions" validate:"dive,required"`
	LeadTypes       []string `json:"lead_types" validate:"dive,required"`
	Agencies        []string `json:"agencies" validate:"dive,required"`
	KeyInsights     []string `json:"key_insights,omitempty"`
}

type NodeDoc struct {
	ID          string     `json:"id" validate:"required"`
	Name        string     `json:"name" validate:"required"`
	Group       string     `json:"group" validate:"required"`
	Flights     int        `json:"flights" validate:"gte=0"`
	Documents   int        `json:"documents" validate:"gte=0"`
	Connections int        `json:"connections" validate:"gte=0"`
	Nationality string     `json:"nationality" validate:"required"`
	InBlackBook bool       `json:"in_black_book"`
	Images      []ImageDoc `json:"images" validate:"dive"`
}

type LinkDoc struct {
	Source  string   `json:"source" validate:"required"`
	Target  string   `json:"target" validate:"required,nefield=Source"`
	Weight  int      `json:"weight" validate:"gt=0"`
	Types   []string `json:"types,omitempty"`
	Sources []string `json:"sources,omitempty"`
}

type NetworkDoc struct {
	Nodes []NodeDoc `json:"nodes" validate:"dive"`
	Links []LinkDoc `json:"links" validate:"dive"`
}

// Bundle holds the five output documents, formatted and ordered.
type Bundle struct {
	Persons   []PersonDoc   `validate:"dive"`
	Flights   []FlightDoc   `validate:"dive"`
	Documents []DocumentDoc `validate:"dive"`
	Network   NetworkDoc
	Summary   aggregate.Summary
}

// documentFor maps a Bundle field to its output file.
var documentFor = map[string]string{
	"Persons":   PersonsFile,
	"Flights":   FlightsFile,
	"Documents": DocumentsFile,
	"Network":   NetworkFile,
	"Summary":   SummaryFile,
}

// content returns the value encoded into the named document.
func (b *Bundle) content(name string) (any, error) {
	switch name {
	case PersonsFile:
		return b.Persons, nil
	case FlightsFile:
		return b.Flights, nil
	case DocumentsFile:
		return b.Documents, nil
	case NetworkFile:
		return b.Network, nil
	case SummaryFile:
		return b.Summary, nil
	}
	return nil, fmt.Errorf("unknown document %q", name)
}

var schemaTypes = map[string]any{
	PersonsFile:   []PersonDoc{},
	FlightsFile:   []FlightDoc{},
	DocumentsFile: []DocumentDoc{},
	NetworkFile:   NetworkDoc{},
	SummaryFile:   aggregate.Summary{},
}

// Schema returns the JSON Schema of one output document.
func Schema(name string) (*jsonschema.Schema, error) {
	v, ok := schemaTypes[name]
	if !ok {
		return nil, fmt.Errorf("unknown document %q", name)
	}
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	s := reflector.Reflect(v)
	s.Title = name
	return s, nil
}

// Schemas returns the JSON Schemas of all output documents, keyed by file name.
func Schemas() map[string]*jsonschema.Schema {
	out := make(map[string]*jsonschema.Schema, len(Files))
	for _, name := range Files {
		s, _ := Schema(name)
		out[name] = s
	}
	return out
}

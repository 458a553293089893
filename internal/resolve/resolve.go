// Package resolve maps raw name strings onto canonical persons.
//
// Two raw names denote the same person exactly when their normalized forms are
// equal; no fuzzy matching is attempted. Resolution is a pure function of the
// input records in their load order.
package resolve

import (
	"context"
	"slices"
	"sort"
	"unicode"

	"filesdash/xref/internal/logger"
	"filesdash/xref/internal/record"
)

// Metrics are the derived per-person counts. They are set once by ApplyMetrics.
type Metrics struct {
	Flights     int
	Documents   int
	Connections int
}

// IsZero reports whether all counts are zero.
func (m Metrics) IsZero() bool {
	return m == Metrics{}
}

// Person is a canonical person merged from every record and mention of it.
type Person struct {
	ID          string
	DisplayName string
	Aliases     []string // distinct raw variants, sorted
	Nationality string
	Category    string
	EntityType  string
	Role        string
	Bio         string
	Slug        string
	InBlackBook bool
	Images      []record.ImageRef
	Sources     []record.Ref // person records merged into this entity, in priority order

	Metrics
}

// Input is everything resolution looks at. Person records must be in
// source-priority order.
type Input struct {
	Persons   []record.Person
	Flights   []record.Flight
	Documents []record.Document
	Edges     []record.Edge
	Images    record.ImageIndex
}

// Stats counts what resolution saw and dropped.
type Stats struct {
	RawNames           int // distinct non-empty raw variants
	Persons            int
	Unresolvable       int // distinct raw names that normalize to ""
	UnmatchedImageKeys int
}

// Option applies a configuration option to Resolve.
type Option func(*resolver)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(r *resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

type resolver struct {
	logger logger.Logger

	persons map[string]*Person
	aliases map[string]string // collapsed raw name -> id
	bad     map[string]bool
}

// Resolve builds the Directory for in.
func Resolve(in Input, opts ...Option) *Directory {
	r := &resolver{
		logger:  logger.Nop(),
		persons: make(map[string]*Person),
		aliases: make(map[string]string),
		bad:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	ctx := context.Background()

	for _, p := range in.Persons {
		if per := r.observe(p.RawName); per != nil {
			mergeRecord(per, p)
		}
	}
	for _, f := range in.Flights {
		for _, name := range f.Passengers {
			r.observe(name)
		}
	}
	for _, d := range in.Documents {
		for _, name := range d.PowerMentions {
			r.observe(name)
		}
	}
	for _, e := range in.Edges {
		r.observe(e.A)
		r.observe(e.B)
	}

	for _, p := range r.persons {
		if p.Category == "" {
			p.Category = p.EntityType
		}
		sort.Strings(p.Aliases)
	}

	unmatched := r.attachImages(in.Images)

	dir := newDirectory(r.persons, r.aliases)
	dir.stats = Stats{
		RawNames:           len(r.aliases),
		Persons:            len(r.persons),
		Unresolvable:       len(r.bad),
		UnmatchedImageKeys: unmatched,
	}

	if len(r.bad) > 0 {
		names := make([]string, 0, len(r.bad))
		for n := range r.bad {
			names = append(names, n)
		}
		sort.Strings(names)
		r.logger.Warn(ctx, "unresolvable names dropped",
			logger.Int("count", len(names)),
			logger.Any("names", names[:min(len(names), 10)]))
	}
	r.logger.Info(ctx, "names resolved",
		logger.Int("raw_names", dir.stats.RawNames),
		logger.Int("persons", dir.stats.Persons),
		logger.Int("unresolvable", dir.stats.Unresolvable),
		logger.Int("unmatched_image_keys", unmatched))
	return dir
}

// observe records one occurrence of a raw name and returns its person, or
// nil when the name is empty or unresolvable.
func (r *resolver) observe(raw string) *Person {
	name := collapse(raw)
	if name == "" {
		return nil
	}
	if id, ok := r.aliases[name]; ok {
		return r.persons[id]
	}

	id := Normalize(name)
	if id == "" {
		r.bad[name] = true
		return nil
	}

	r.aliases[name] = id

	p, ok := r.persons[id]
	if !ok {
		p = &Person{ID: id, DisplayName: name}
		r.persons[id] = p
	}
	p.Aliases = append(p.Aliases, name)
	// Most complete variant wins; earlier observations win ties.
	if nameWeight(name) > nameWeight(p.DisplayName) {
		p.DisplayName = name
	}
	return p
}

func mergeRecord(p *Person, rec record.Person) {
	first(&p.Nationality, rec.Nationality)
	first(&p.Category, rec.Category)
	first(&p.EntityType, rec.EntityType)
	first(&p.Role, rec.Role)
	first(&p.Bio, rec.Bio)
	first(&p.Slug, rec.Slug)
	p.InBlackBook = p.InBlackBook || rec.InBlackBook
	p.Sources = append(p.Sources, rec.Ref)
}

func first(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

// attachImages merges index entries into persons, deduplicating by path.
// Keys are visited in sorted order. It returns the number of keys that
// match no person.
func (r *resolver) attachImages(idx record.ImageIndex) int {
	keys := make([]string, 0, len(idx))
	for k := range idx {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	unmatched := 0
	for _, k := range keys {
		p, ok := r.persons[Normalize(k)]
		if !ok {
			unmatched++
			continue
		}
		for _, img := range idx[k] {
			if img.Path == "" || slices.ContainsFunc(p.Images, func(have record.ImageRef) bool { return have.Path == img.Path }) {
				continue
			}
			p.Images = append(p.Images, img)
		}
	}
	return unmatched
}

// nameWeight counts the letters and digits of a name, so punctuation and
// "Last, First" order do not make a variant look more complete.
func nameWeight(name string) int {
	n := 0
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

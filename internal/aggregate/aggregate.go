// Package aggregate derives per-person metrics and corpus summary statistics.
//
// Run is pure: all accumulation happens in structures local to one call, so
// it can run alongside the graph builder over the same resolved directory.
package aggregate

import (
	"context"
	"math"
	"sort"
	"strconv"

	"filesdash/xref/internal/config"
	"filesdash/xref/internal/logger"
	"filesdash/xref/internal/record"
	"filesdash/xref/internal/resolve"
)

// Input is what the aggregator scans.
type Input struct {
	Directory *resolve.Directory
	Flights   []record.Flight
	Documents []record.Document
	Edges     []record.Edge
	Emails    []record.Email
}

// Result is the aggregator output. Metrics holds an entry for every person
// with at least one non-zero count.
type Result struct {
	Metrics map[string]resolve.Metrics
	Summary Summary

	// Unresolved counts name occurrences in manifests, mentions and edges
	// that match no person. Each edge endpoint is one occurrence.
	// that matched no person.
	Unresolved int
}

// Option applies a configuration option to Run.
type Option func(*aggregator)

// WithLimits sets the sizes of the ranked tables.
func WithLimits(l config.Limits) Option {
	return func(a *aggregator) {
		a.limits = l
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(a *aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

type aggregator struct {
	limits config.Limits
	logger logger.Logger

	dir        *resolve.Directory
	metrics    map[string]*resolve.Metrics
	mentions   counter // canonical id -> documents mentioning it
	unresolved int
}

// Run computes metrics and the summary for in.
func Run(in Input, opts ...Option) *Result {
	a := &aggregator{
		limits:   config.DefaultLimits(),
		logger:   logger.Nop(),
		dir:      in.Directory,
		metrics:  make(map[string]*resolve.Metrics),
		mentions: newCounter(),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.countFlights(in.Flights)
	a.countDocuments(in.Documents)
	links := a.countConnections(in.Edges)

	res := &Result{
		Metrics:    make(map[string]resolve.Metrics, len(a.metrics)),
		Unresolved: a.unresolved,
	}
	for id, m := range a.metrics {
		if !m.IsZero() {
			res.Metrics[id] = *m
		}
	}

	res.Summary = Summary{
		TotalPersons:   a.dir.Len(),
		TotalFlights:   len(in.Flights),
		TotalDocuments: len(in.Documents),
		TotalEmails:    len(in.Emails),
		TotalLinks:     links,
		PersonsStats:   a.personsStats(res.Metrics),
		FlightStats:    a.flightStats(in.Flights),
		DocumentStats:  a.documentStats(in.Documents),
		EmailStats:     a.emailStats(in.Emails),
	}
	res.Summary.TotalImages = countImages(a.dir)

	a.logger.Info(context.Background(), "metrics aggregated",
		logger.Int("persons_with_metrics", len(res.Metrics)),
		logger.Int("links", links),
		logger.Int("unresolved_mentions", a.unresolved))
	return res
}

func (a *aggregator) metric(id string) *resolve.Metrics {
	m, ok := a.metrics[id]
	if !ok {
		m = &resolve.Metrics{}
		a.metrics[id] = m
	}
	return m
}

// resolveSet maps raw names to the distinct canonical ids they resolve to.
func (a *aggregator) resolveSet(names []string) map[string]bool {
	ids := make(map[string]bool, len(names))
	for _, name := range names {
		id, ok := a.dir.Lookup(name)
		if !ok {
			a.unresolved++
			continue
		}
		ids[id] = true
	}
	return ids
}

func (a *aggregator) countFlights(flights []record.Flight) {
	for _, f := range flights {
		if f.ManifestInvalid {
			continue
		}
		for id := range a.resolveSet(f.Passengers) {
			a.metric(id).Flights++
		}
	}
}

func (a *aggregator) countDocuments(docs []record.Document) {
	for _, d := range docs {
		for id := range a.resolveSet(d.PowerMentions) {
			a.metric(id).Documents++
			a.mentions[id]++
		}
	}
}

// countConnections sets each person's degree in the merged undirected edge
// set and returns the number of distinct edges.
func (a *aggregator) countConnections(edges []record.Edge) int {
	type pair struct{ a, b string }
	seen := make(map[pair]bool)
	for _, e := range edges {
		ida, okA := a.dir.Lookup(e.A)
		idb, okB := a.dir.Lookup(e.B)
		if !okA || !okB {
			if !okA {
				a.unresolved++
			}
			if !okB {
				a.unresolved++
			}
			continue
		}
		if ida == idb {
			continue
		}
		if ida > idb {
			ida, idb = idb, ida
		}
		k := pair{ida, idb}
		if seen[k] {
			continue
		}
		seen[k] = true
		a.metric(ida).Connections++
		a.metric(idb).Connections++
	}
	return len(seen)
}

func (a *aggregator) personsStats(metrics map[string]resolve.Metrics) PersonsStats {
	nationalities, categories := newCounter(), newCounter()
	blackBook := 0
	for _, p := range a.dir.Persons() {
		nationalities.add(p.Nationality)
		categories.add(p.Category)
		if p.InBlackBook {
			blackBook++
		}
	}

	n := a.limits.TopPersons
	return PersonsStats{
		InBlackBook: blackBook,
		TopByFlights: a.topPersons(metrics, n, func(m resolve.Metrics) int { return m.Flights },
			func(r *RankedPerson, v int) { r.Flights = v }),
		TopByDocuments: a.topPersons(metrics, n, func(m resolve.Metrics) int { return m.Documents },
			func(r *RankedPerson, v int) { r.Documents = v }),
		TopByConnections: a.topPersons(metrics, n, func(m resolve.Metrics) int { return m.Connections },
			func(r *RankedPerson, v int) { r.Connections = v }),
		Nationalities: nationalities.top(a.limits.TopNationalities),
		Categories:    categories.top(a.limits.TopCategories),
	}
}

// topPersons ranks persons with a non-zero value by value descending, then id.
func (a *aggregator) topPersons(metrics map[string]resolve.Metrics, n int,
	value func(resolve.Metrics) int, set func(*RankedPerson, int)) []RankedPerson {
	ids := make([]string, 0, len(metrics))
	for id, m := range metrics {
		if value(m) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		vi, vj := value(metrics[ids[i]]), value(metrics[ids[j]])
		if vi != vj {
			return vi > vj
		}
		return ids[i] < ids[j]
	})
	if len(ids) > n {
		ids = ids[:n]
	}

	out := make([]RankedPerson, 0, len(ids))
	for _, id := range ids {
		p, _ := a.dir.Person(id)
		r := RankedPerson{ID: id, Name: p.DisplayName}
		set(&r, value(metrics[id]))
		out = append(out, r)
	}
	return out
}

func (a *aggregator) flightStats(flights []record.Flight) FlightStats {
	years, departures, arrivals, aircraft := newCounter(), newCounter(), newCounter(), newCounter()
	type route struct{ from, to string }
	routes := make(map[route]int)

	for _, f := range flights {
		if f.Year > 0 {
			years.add(strconv.Itoa(f.Year))
		}
		dep, arr := f.DepartureLabel(), f.ArrivalLabel()
		departures.add(dep)
		arrivals.add(arr)
		aircraft.add(f.Aircraft)
		if dep != "" && arr != "" {
			routes[route{dep, arr}]++
		}
	}

	top := make([]Route, 0, len(routes))
	for r, c := range routes {
		top = append(top, Route{From: r.from, To: r.to, Count: c})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		if top[i].From != top[j].From {
			return top[i].From < top[j].From
		}
		return top[i].To < top[j].To
	})
	if len(top) > a.limits.TopRoutes {
		top = top[:a.limits.TopRoutes]
	}

	return FlightStats{
		ByYear:        years.sorted(),
		TopRoutes:     top,
		TopDepartures: departures.top(a.limits.TopAirports),
		TopArrivals:   arrivals.top(a.limits.TopAirports),
		Aircraft:      aircraft.top(a.limits.TopAircraft),
	}
}

func (a *aggregator) documentStats(docs []record.Document) DocumentStats {
	tags, agencies, leads := newCounter(), newCounter(), newCounter()
	buckets := make(map[string]int, len(importanceBuckets))
	sum := 0
	for _, d := range docs {
		for _, t := range d.Tags {
			tags.add(t)
		}
		for _, ag := range d.Agencies {
			agencies.add(ag)
		}
		for _, l := range d.LeadTypes {
			leads.add(l)
		}
		buckets[importanceBucket(d.ImportanceScore)]++
		sum += d.ImportanceScore
	}

	dist := newRanking()
	for _, b := range importanceBuckets {
		dist.Set(b, buckets[b])
	}

	// Power mentions are keyed by display name so variants of one person merge.
	power := newCounter()
	for id, c := range a.mentions {
		p, _ := a.dir.Person(id)
		power[p.DisplayName] = c
	}

	var avg float64
	if len(docs) > 0 {
		avg = math.Round(float64(sum)/float64(len(docs))*10) / 10
	}

	return DocumentStats{
		ImportanceDistribution: dist,
		TopTags:                tags.top(a.limits.TopTags),
		TopPowerMentions:       power.top(a.limits.TopPowerMentions),
		TopAgencies:            agencies.top(a.limits.TopAgencies),
		LeadTypes:              leads.top(a.limits.TopLeadTypes),
		AvgImportance:          avg,
	}
}

func (a *aggregator) emailStats(emails []record.Email) EmailStats {
	senders, recipients, years := newCounter(), newCounter(), newCounter()
	for _, e := range emails {
		senders.add(e.From)
		recipients.add(e.To)
		if e.Year > 0 {
			years.add(strconv.Itoa(e.Year))
		}
	}
	return EmailStats{
		TopSenders:    senders.top(a.limits.TopEmailContacts),
		TopRecipients: recipients.top(a.limits.TopEmailContacts),
		ByYear:        years.sorted(),
	}
}

// countImages counts distinct image paths attached to persons.
func countImages(dir *resolve.Directory) int {
	paths := make(map[string]bool)
	for _, p := range dir.Persons() {
		for _, img := range p.Images {
			paths[img.Path] = true
		}
	}
	return len(paths)
}

package graph

import (
	"errors"
	"fmt"
	"sort"

	"filesdash/xref/internal/record"
	"filesdash/xref/internal/resolve"
)

var (
	ErrMetricsPending     = errors.New("person metrics not applied")
	ErrInconsistentDegree = errors.New("connections disagree with merged links")
)

// Link is an undirected relationship between two canonical persons, merged
// from every raw edge between them. Source < Target.
type Link struct {
	Source  string
	Target  string
	Weight  int      // number of raw edge records
	Sources []string // file:line of each contributing record, in input order
	Types   []string // distinct relationship types, in first-seen order
}

// Node is a person in the network with its aggregate attributes.
type Node struct {
	ID          string
	Name        string
	Group       string
	Nationality string
	InBlackBook bool
	Images      []record.ImageRef
	resolve.Metrics
}

// Graph is the assembled, deterministically ordered network.
type Graph struct {
	Nodes []Node
	Links []Link
}

// Network is the merged link set before it is joined with person metrics.
type Network struct {
	links  []*Link
	degree map[string]int

	SelfLoops  int // edges whose endpoints resolve to one person
	Unresolved int // edge endpoints that match no person, counted per endpoint
}

type pairKey struct{ a, b string }

// Build resolves raw edge endpoints and merges edges between the same
// unordered pair. Self loops and unresolvable endpoints are dropped.
func Build(dir *resolve.Directory, edges []record.Edge) *Network {
	n := &Network{degree: make(map[string]int)}
	byPair := make(map[pairKey]*Link)

	for _, e := range edges {
		a, okA := dir.Lookup(e.A)
		b, okB := dir.Lookup(e.B)
		if !okA || !okB {
			if !okA {
				n.Unresolved++
			}
			if !okB {
				n.Unresolved++
			}
			continue
		}
		if a == b {
			n.SelfLoops++
			continue
		}
		if a > b {
			a, b = b, a
		}
		k := pairKey{a, b}
		l, ok := byPair[k]
		if !ok {
			l = &Link{Source: a, Target: b}
			byPair[k] = l
			n.links = append(n.links, l)
			n.degree[a]++
			n.degree[b]++
		}
		l.Weight++
		l.Sources = append(l.Sources, e.Ref.String())
		if e.Type != "" && !contains(l.Types, e.Type) {
			l.Types = append(l.Types, e.Type)
		}
	}
	return n
}

// Degree returns the number of distinct links incident to id.
func (n *Network) Degree(id string) int {
	return n.degree[id]
}

// Len returns the number of merged links.
func (n *Network) Len() int {
	return len(n.links)
}

// Links returns the merged links sorted by weight descending, then pair.
func (n *Network) Links() []Link {
	out := make([]Link, len(n.links))
	for i, l := range n.links {
		out[i] = *l
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Target < out[j].Target
	})
	return out
}

// Assemble joins the links with the person directory. Every person with a
// link or a non-zero metric becomes a node. Nodes are sorted by connections
// descending, then id.
func (n *Network) Assemble(dir *resolve.Directory) (Graph, error) {
	if !dir.MetricsApplied() {
		return Graph{}, ErrMetricsPending
	}

	var nodes []Node
	for _, p := range dir.Persons() {
		deg := n.degree[p.ID]
		if p.Connections != deg {
			return Graph{}, fmt.Errorf("%w: %s has %d connections, %d links", ErrInconsistentDegree, p.ID, p.Connections, deg)
		}
		if deg == 0 && p.Metrics.IsZero() {
			continue
		}
		nodes = append(nodes, Node{
			ID:          p.ID,
			Name:        p.DisplayName,
			Group:       p.Category,
			Nationality: p.Nationality,
			InBlackBook: p.InBlackBook,
			Images:      p.Images,
			Metrics:     p.Metrics,
		})
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Connections != nodes[j].Connections {
			return nodes[i].Connections > nodes[j].Connections
		}
		return nodes[i].ID < nodes[j].ID
	})

	return Graph{Nodes: nodes, Links: n.Links()}, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

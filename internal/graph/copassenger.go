package graph

import (
	"sort"

	"filesdash/xref/internal/record"
	"filesdash/xref/internal/resolve"
)

// CoPassengerType is the relationship type of edges derived from manifests.
const CoPassengerType = "co-passenger"

// CoPassengerEdges derives relationship edges from shared flights, for
// datasets that ship no relationship table. The limit pairs with the most
// shared flights are kept, and every shared flight yields one edge so that
// merged link weights equal the number of flights the pair shared.
func CoPassengerEdges(dir *resolve.Directory, flights []record.Flight, limit int) []record.Edge {
	type occurrence struct {
		pair pairKey
		ref  record.Ref
	}
	counts := make(map[pairKey]int)
	var occurrences []occurrence

	for _, f := range flights {
		if f.ManifestInvalid {
			continue
		}
		ids := passengerIDs(dir, f.Passengers)
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				k := pairKey{ids[i], ids[j]}
				counts[k]++
				occurrences = append(occurrences, occurrence{pair: k, ref: f.Ref})
			}
		}
	}

	pairs := make([]pairKey, 0, len(counts))
	for k := range counts {
		pairs = append(pairs, k)
	}
	sort.Slice(pairs, func(i, j int) bool {
		ci, cj := counts[pairs[i]], counts[pairs[j]]
		if ci != cj {
			return ci > cj
		}
		if pairs[i].a != pairs[j].a {
			return pairs[i].a < pairs[j].a
		}
		return pairs[i].b < pairs[j].b
	})
	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	keep := make(map[pairKey]bool, len(pairs))
	for _, k := range pairs {
		keep[k] = true
	}

	var edges []record.Edge
	for _, o := range occurrences {
		if !keep[o.pair] {
			continue
		}
		a, _ := dir.Person(o.pair.a)
		b, _ := dir.Person(o.pair.b)
		edges = append(edges, record.Edge{
			Ref:  o.ref,
			A:    a.DisplayName,
			B:    b.DisplayName,
			Type: CoPassengerType,
		})
	}
	return edges
}

// passengerIDs returns the sorted distinct ids of a manifest's resolvable names.
func passengerIDs(dir *resolve.Directory, names []string) []string {
	seen := make(map[string]bool, len(names))
	var ids []string
	for _, name := range names {
		id, ok := dir.Lookup(name)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

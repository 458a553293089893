package aggregate

import (
	"sort"

	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Ranking is a JSON object whose keys keep their rank order when encoded.
type Ranking struct {
	*orderedmap.OrderedMap[string, int]
}

func newRanking() Ranking {
	return Ranking{orderedmap.New[string, int]()}
}

// Keys returns the keys in rank order.
func (r Ranking) Keys() []string {
	if r.OrderedMap == nil {
		return nil
	}
	keys := make([]string, 0, r.Len())
	for p := r.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	return keys
}

// Count returns the value stored for key, or 0.
func (r Ranking) Count(key string) int {
	if r.OrderedMap == nil {
		return 0
	}
	v, _ := r.Get(key)
	return v
}

func (r Ranking) MarshalJSON() ([]byte, error) {
	if r.OrderedMap == nil {
		return []byte("{}"), nil
	}
	return r.OrderedMap.MarshalJSON()
}

// JSONSchema describes a ranking as an object of integer counts.
func (Ranking) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:                 "object",
		AdditionalProperties: &jsonschema.Schema{Type: "integer", Minimum: "0"},
	}
}

// counter accumulates frequencies. The zero value is not usable; use newCounter.
type counter map[string]int

func newCounter() counter { return make(counter) }

func (c counter) add(key string) {
	if key != "" {
		c[key]++
	}
}

// top ranks keys by count descending, then key ascending, and keeps at most k.
func (c counter) top(k int) Ranking {
	keys := make([]string, 0, len(c))
	for key := range c {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if c[keys[i]] != c[keys[j]] {
			return c[keys[i]] > c[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > k {
		keys = keys[:k]
	}
	r := newRanking()
	for _, key := range keys {
		r.Set(key, c[key])
	}
	return r
}

// sorted returns every key in ascending key order.
func (c counter) sorted() Ranking {
	keys := make([]string, 0, len(c))
	for key := range c {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	r := newRanking()
	for _, key := range keys {
		r.Set(key, c[key])
	}
	return r
}

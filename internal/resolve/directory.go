package resolve

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrMetricsApplied = errors.New("metrics already applied")
	ErrUnknownPerson  = errors.New("unknown person id")
)

// Directory is the resolved person set. It is read-only apart from a single
// ApplyMetrics call, which must not race with readers.
type Directory struct {
	persons map[string]*Person
	ids     []string
	aliases map[string]string
	stats   Stats

	once    sync.Once
	applied bool
}

func newDirectory(persons map[string]*Person, aliases map[string]string) *Directory {
	ids := make([]string, 0, len(persons))
	for id := range persons {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return &Directory{persons: persons, ids: ids, aliases: aliases}
}

// Lookup returns the canonical id of a raw name.
func (d *Directory) Lookup(raw string) (string, bool) {
	name := collapse(raw)
	if name == "" {
		return "", false
	}
	if id, ok := d.aliases[name]; ok {
		return id, true
	}
	id := Normalize(name)
	if _, ok := d.persons[id]; !ok || id == "" {
		return "", false
	}
	return id, true
}

// Person returns a copy of the person with the given id.
func (d *Directory) Person(id string) (Person, bool) {
	p, ok := d.persons[id]
	if !ok {
		return Person{}, false
	}
	return *p, true
}

// Persons returns copies of all persons sorted by id.
func (d *Directory) Persons() []Person {
	out := make([]Person, 0, len(d.ids))
	for _, id := range d.ids {
		out = append(out, *d.persons[id])
	}
	return out
}

// IDs returns all canonical ids, sorted.
func (d *Directory) IDs() []string {
	return append([]string(nil), d.ids...)
}

// Len returns the number of persons.
func (d *Directory) Len() int { return len(d.ids) }

// Stats returns resolution counters.
func (d *Directory) Stats() Stats { return d.stats }

// MetricsApplied reports whether ApplyMetrics has run.
func (d *Directory) MetricsApplied() bool { return d.applied }

// ApplyMetrics sets the derived counts of every person. Persons missing from
// m get zero counts. It may be called once.
func (d *Directory) ApplyMetrics(m map[string]Metrics) error {
	for id := range m {
		if _, ok := d.persons[id]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownPerson, id)
		}
	}
	err := ErrMetricsApplied
	d.once.Do(func() {
		for _, id := range d.ids {
			d.persons[id].Metrics = m[id]
		}
		d.applied = true
		err = nil
	})
	return err
}

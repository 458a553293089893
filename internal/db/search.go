package db

import (
	"strings"
	"unicode"
)

var stopwords = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "sir": true,
	"the": true, "and": true, "of": true, "jr": true, "sr": true,
}

// BuildFTSQuery preprocesses a name query for FTS5.
// Splits on anything that is not a letter or digit, drops stopwords and
// single characters, and turns each remaining word into a quoted prefix term.
// Terms are joined with spaces, so every word must match.
func BuildFTSQuery(query string) string {
	words := strings.FieldsFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var terms []string
	for _, w := range words {
		if len([]rune(w)) < 2 {
			continue
		}
		if stopwords[strings.ToLower(w)] {
			continue
		}
		terms = append(terms, `"`+w+`"*`)
	}
	return strings.Join(terms, " ")
}

// SearchPersons performs FTS5 search over names and aliases and returns
// matching persons, best first.
// Returns empty slice if the preprocessed query is empty or if FTS table doesn't exist.
func (d *DB) SearchPersons(query string, limit int) ([]Person, error) {
	ftsQuery := BuildFTSQuery(query)
	if ftsQuery == "" {
		return []Person{}, nil
	}

	rows, err := d.conn.Query(`
		SELECT p.id, p.name, p.nationality, p.category, p.entity_type, p.role, p.bio, p.slug,
		       p.in_black_book, p.in_network, p.flights, p.documents, p.connections
		FROM persons_fts fts
		JOIN persons p ON p.id = fts.id
		WHERE persons_fts MATCH ?1
		ORDER BY rank, p.id
		LIMIT ?2
	`, ftsQuery, limit)
	if err != nil {
		// Gracefully handle missing FTS table
		if strings.Contains(err.Error(), "no such table") {
			return []Person{}, nil
		}
		return nil, err
	}
	return collectPersons(rows)
}

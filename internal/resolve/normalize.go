package resolve

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	honorifics = map[string]bool{
		"mr": true, "mrs": true, "ms": true, "miss": true, "mx": true,
		"dr": true, "prof": true, "professor": true,
		"sir": true, "dame": true,
		"rev": true, "hon": true,
	}
	postNominals = map[string]bool{"esq": true, "phd": true}
	suffixes     = map[string]bool{"jr": true, "sr": true, "ii": true, "iii": true, "iv": true}
)

// Normalize maps a raw name to its canonical key. Names that differ only in
// case, accents, punctuation, honorifics, spacing or "Last, First" order
// share a key. An empty result means the name cannot be resolved.
//
//	Normalize("Doe, John")      == "john-doe"
//	Normalize("Dr. John  DOE")  == "john-doe"
//	Normalize("Doe, John, Jr.") == "john-doe-jr"
func Normalize(raw string) string {
	s := stripMarks(raw)
	s = cases.Fold().String(s)
	s = reorderComma(s)

	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '\'' || r == '’' || r == '.':
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	tokens := strings.Fields(b.String())

	for len(tokens) > 0 && honorifics[tokens[0]] {
		tokens = tokens[1:]
	}
	for len(tokens) > 0 && postNominals[tokens[len(tokens)-1]] {
		tokens = tokens[:len(tokens)-1]
	}
	return strings.Join(tokens, "-")
}

func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// reorderComma turns "last, first[, suffix]" into "first last suffix".
// Comma-separated honorifics are dropped.
func reorderComma(s string) string {
	if !strings.Contains(s, ",") {
		return s
	}
	var parts []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 2 {
		return strings.Join(parts, " ")
	}

	var given, tail []string
	for _, p := range parts[1:] {
		key := strings.Trim(p, ".")
		switch {
		case honorifics[key]:
			// "Doe, John, Dr." carries the title after the given name
		case suffixes[key] || postNominals[key]:
			tail = append(tail, p)
		default:
			given = append(given, p)
		}
	}
	if len(given) == 0 {
		// "Doe, Jr." has nothing to move in front of the surname.
		return strings.Join(parts, " ")
	}
	out := append(given, parts[0])
	return strings.Join(append(out, tail...), " ")
}

// collapse trims a raw name and folds runs of whitespace into one space.
func collapse(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

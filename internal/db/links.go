package db

import (
	"encoding/json"
	"fmt"
	"sort"
)

// scanLink scans a row into a Link. The row must have all 5 columns in standard order.
func scanLink(scanner interface{ Scan(dest ...any) error }) (Link, error) {
	var l Link
	var types, sources string
	if err := scanner.Scan(&l.SourceID, &l.TargetID, &l.Weight, &types, &sources); err != nil {
		return l, err
	}
	if err := json.Unmarshal([]byte(types), &l.Types); err != nil {
		return l, fmt.Errorf("decoding link types: %w", err)
	}
	if err := json.Unmarshal([]byte(sources), &l.Sources); err != nil {
		return l, fmt.Errorf("decoding link sources: %w", err)
	}
	return l, nil
}

// AllLinks returns all links ordered by weight descending, then pair
func (d *DB) AllLinks() ([]Link, error) {
	rows, err := d.conn.Query(`
		SELECT source_id, target_id, weight, types, sources
		FROM links ORDER BY weight DESC, source_id, target_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []Link
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// GetLinksForPerson returns all links where the given person is either endpoint.
func (d *DB) GetLinksForPerson(personID string) ([]Link, error) {
	rows, err := d.conn.Query(`
		SELECT source_id, target_id, weight, types, sources
		FROM links WHERE source_id = ? OR target_id = ?
	`, personID, personID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []Link
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// Other returns the endpoint of l that is not personID.
func (l Link) Other(personID string) string {
	if l.SourceID == personID {
		return l.TargetID
	}
	return l.SourceID
}

// StrongestLinks returns the top-N links of a person by weight, ties broken
// by the other endpoint's id.
func (d *DB) StrongestLinks(personID string, topN int) ([]Link, error) {
	all, err := d.GetLinksForPerson(personID)
	if err != nil {
		return nil, err
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Weight != all[j].Weight {
			return all[i].Weight > all[j].Weight
		}
		return all[i].Other(personID) < all[j].Other(personID)
	})

	if topN > 0 && len(all) > topN {
		all = all[:topN]
	}
	return all, nil
}

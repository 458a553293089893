package graph

import "filesdash/xref/internal/db"

// SnapshotFromDB loads the stored network as a GraphSnapshot
func SnapshotFromDB(d *db.DB) (*GraphSnapshot, error) {
	dbPersons, err := d.NetworkPersons()
	if err != nil {
		return nil, err
	}
	dbLinks, err := d.AllLinks()
	if err != nil {
		return nil, err
	}

	nodes := make([]*NodeInfo, 0, len(dbPersons))
	for _, p := range dbPersons {
		nodes = append(nodes, &NodeInfo{
			ID:    p.ID,
			Name:  p.Name,
			Group: p.Category,
		})
	}

	edges := make([]EdgeInfo, 0, len(dbLinks))
	for _, l := range dbLinks {
		edges = append(edges, EdgeInfo{
			Source: l.SourceID,
			Target: l.TargetID,
			Weight: l.Weight,
		})
	}

	return NewSnapshot(nodes, edges), nil
}

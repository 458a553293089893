package graph

import "sort"

// Unassigned is the group of persons without a category.
const Unassigned = "unassigned"

// NodeInfo is a lightweight node representation decoupled from DB types
type NodeInfo struct {
	ID    string
	Name  string
	Group string
}

// EdgeInfo is a lightweight undirected edge representation
type EdgeInfo struct {
	Source string
	Target string
	Weight int
}

// GraphSnapshot holds a graph with precomputed adjacency lists and group map
type GraphSnapshot struct {
	Nodes  map[string]*NodeInfo
	Edges  []EdgeInfo
	Adj    map[string][]string
	Groups map[string]string // node_id -> group
}

// NewSnapshot builds a GraphSnapshot from raw nodes and edges. Edges with an
// endpoint outside nodes are ignored.
func NewSnapshot(nodes []*NodeInfo, edges []EdgeInfo) *GraphSnapshot {
	nodeMap := make(map[string]*NodeInfo, len(nodes))
	adj := make(map[string][]string)
	groups := make(map[string]string, len(nodes))

	for _, n := range nodes {
		nodeMap[n.ID] = n
		adj[n.ID] = nil // ensure entry exists
		groups[n.ID] = n.Group
		if n.Group == "" {
			groups[n.ID] = Unassigned
		}
	}

	var kept []EdgeInfo
	for _, e := range edges {
		if _, ok := nodeMap[e.Source]; !ok {
			continue
		}
		if _, ok := nodeMap[e.Target]; !ok {
			continue
		}
		adj[e.Source] = append(adj[e.Source], e.Target)
		adj[e.Target] = append(adj[e.Target], e.Source)
		kept = append(kept, e)
	}

	return &GraphSnapshot{
		Nodes:  nodeMap,
		Edges:  kept,
		Adj:    adj,
		Groups: groups,
	}
}

// SnapshotFromGraph builds a snapshot of an assembled network.
func SnapshotFromGraph(g Graph) *GraphSnapshot {
	nodes := make([]*NodeInfo, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		nodes = append(nodes, &NodeInfo{ID: n.ID, Name: n.Name, Group: n.Group})
	}
	edges := make([]EdgeInfo, 0, len(g.Links))
	for _, l := range g.Links {
		edges = append(edges, EdgeInfo{Source: l.Source, Target: l.Target, Weight: l.Weight})
	}
	return NewSnapshot(nodes, edges)
}

// FilterToGroup returns a new snapshot containing only members of group
func (s *GraphSnapshot) FilterToGroup(group string) *GraphSnapshot {
	var filteredNodes []*NodeInfo
	filteredSet := make(map[string]bool)
	for _, id := range s.NodeIDs() {
		if s.Groups[id] == group {
			filteredNodes = append(filteredNodes, s.Nodes[id])
			filteredSet[id] = true
		}
	}

	var filteredEdges []EdgeInfo
	for _, e := range s.Edges {
		if filteredSet[e.Source] && filteredSet[e.Target] {
			filteredEdges = append(filteredEdges, e)
		}
	}

	return NewSnapshot(filteredNodes, filteredEdges)
}

// NodeIDs returns a sorted list of all node IDs (for deterministic output)
func (s *GraphSnapshot) NodeIDs() []string {
	ids := make([]string, 0, len(s.Nodes))
	for id := range s.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GroupNames returns the sorted distinct groups.
func (s *GraphSnapshot) GroupNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, g := range s.Groups {
		if !seen[g] {
			seen[g] = true
			names = append(names, g)
		}
	}
	sort.Strings(names)
	return names
}

// Strength returns the summed weight of the links incident to id.
func (s *GraphSnapshot) Strength(id string) int {
	total := 0
	for _, e := range s.Edges {
		if e.Source == id || e.Target == id {
			total += e.Weight
		}
	}
	return total
}

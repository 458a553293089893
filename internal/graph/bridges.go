package graph

import "sort"

// ArticulationPoint is a person whose removal disconnects part of the network
type ArticulationPoint struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Neighbors int    `json:"neighbors"`
}

// BridgeLink is a link whose removal disconnects part of the network
type BridgeLink struct {
	SourceID   string `json:"source_id"`
	TargetID   string `json:"target_id"`
	SourceName string `json:"source_name"`
	TargetName string `json:"target_name"`
	Weight     int    `json:"weight"`
}

// FragileConnection represents two groups joined by very few links
type FragileConnection struct {
	GroupA     string `json:"group_a"`
	GroupB     string `json:"group_b"`
	CrossLinks int    `json:"cross_links"`
}

// fragileLimit is the most cross links a group pair may have to count as fragile
const fragileLimit = 2

// BridgeReport contains bridge analysis results
type BridgeReport struct {
	ArticulationPoints []ArticulationPoint `json:"articulation_points"`
	BridgeLinks        []BridgeLink        `json:"bridge_links"`
	FragileConnections []FragileConnection `json:"fragile_connections"`
	APCount            int                 `json:"ap_count"`
	BridgeCount        int                 `json:"bridge_count"`
}

// ComputeBridges finds articulation points, bridge links and fragile
// connections between groups
func ComputeBridges(snap *GraphSnapshot) *BridgeReport {
	if len(snap.Nodes) == 0 {
		return &BridgeReport{}
	}

	// Map node IDs to indices
	nodeIDs := snap.NodeIDs()
	idToIdx := make(map[string]int, len(nodeIDs))
	for i, id := range nodeIDs {
		idToIdx[id] = i
	}
	n := len(nodeIDs)

	// Build deduplicated undirected adjacency (as indices)
	adjIdx := make([][]int, n)
	type edgePair struct{ u, v int }
	seen := make(map[edgePair]bool)
	weights := make(map[edgePair]int)

	for _, e := range snap.Edges {
		u, okU := idToIdx[e.Source]
		v, okV := idToIdx[e.Target]
		if !okU || !okV || u == v {
			continue
		}
		key := edgePair{u, v}
		if u > v {
			key = edgePair{v, u}
		}
		weights[key] += e.Weight
		if !seen[key] {
			seen[key] = true
			adjIdx[u] = append(adjIdx[u], v)
			adjIdx[v] = append(adjIdx[v], u)
		}
	}

	disc := make([]int, n)
	low := make([]int, n)
	visited := make([]bool, n)
	isAP := make([]bool, n)
	var bridgePairs [][2]int
	counter := 1

	const noParent = -1

	// Iterative Tarjan for each connected component
	type frame struct {
		node, parent, ni int
	}

	for start := 0; start < n; start++ {
		if visited[start] {
			continue
		}

		visited[start] = true
		disc[start] = counter
		low[start] = counter
		counter++

		stack := []frame{{start, noParent, 0}}
		rootChildren := 0

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			node := top.node
			parent := top.parent

			if top.ni < len(adjIdx[node]) {
				child := adjIdx[node][top.ni]
				top.ni++

				if child == parent {
					continue
				}

				if visited[child] {
					// Back edge
					if disc[child] < low[node] {
						low[node] = disc[child]
					}
				} else {
					// Tree edge
					visited[child] = true
					disc[child] = counter
					low[child] = counter
					counter++

					if node == start {
						rootChildren++
					}

					stack = append(stack, frame{child, node, 0})
				}
			} else {
				// Done with this node, pop and propagate
				stack = stack[:len(stack)-1]

				if len(stack) > 0 {
					parentFrame := &stack[len(stack)-1]
					pn := parentFrame.node

					if low[node] < low[pn] {
						low[pn] = low[node]
					}

					// Bridge check
					if low[node] > disc[pn] {
						bridgePairs = append(bridgePairs, [2]int{pn, node})
					}

					// AP check (non-root)
					if pn != start && low[node] >= disc[pn] {
						isAP[pn] = true
					}
				}
			}
		}

		// Root is AP if 2+ tree children
		if rootChildren >= 2 {
			isAP[start] = true
		}
	}

	// Convert results
	var aps []ArticulationPoint
	for i := 0; i < n; i++ {
		if isAP[i] {
			id := nodeIDs[i]
			aps = append(aps, ArticulationPoint{
				ID:        id,
				Name:      snap.Nodes[id].Name,
				Neighbors: len(adjIdx[i]),
			})
		}
	}

	var bridges []BridgeLink
	for _, pair := range bridgePairs {
		u, v := pair[0], pair[1]
		if u > v {
			u, v = v, u
		}
		uid, vid := nodeIDs[u], nodeIDs[v]
		bridges = append(bridges, BridgeLink{
			SourceID:   uid,
			TargetID:   vid,
			SourceName: snap.Nodes[uid].Name,
			TargetName: snap.Nodes[vid].Name,
			Weight:     weights[edgePair{u, v}],
		})
	}
	sort.Slice(bridges, func(i, j int) bool {
		if bridges[i].SourceID != bridges[j].SourceID {
			return bridges[i].SourceID < bridges[j].SourceID
		}
		return bridges[i].TargetID < bridges[j].TargetID
	})

	// Fragile connections: cross-group link counts
	type groupPair struct{ a, b string }
	pairCounts := make(map[groupPair]int)
	for _, e := range snap.Edges {
		ga := snap.Groups[e.Source]
		gb := snap.Groups[e.Target]
		if ga == gb {
			continue
		}
		key := groupPair{ga, gb}
		if ga > gb {
			key = groupPair{gb, ga}
		}
		pairCounts[key]++
	}

	var fragile []FragileConnection
	for pair, count := range pairCounts {
		if count <= fragileLimit {
			fragile = append(fragile, FragileConnection{
				GroupA:     pair.a,
				GroupB:     pair.b,
				CrossLinks: count,
			})
		}
	}
	sort.Slice(fragile, func(i, j int) bool {
		if fragile[i].CrossLinks != fragile[j].CrossLinks {
			return fragile[i].CrossLinks < fragile[j].CrossLinks
		}
		if fragile[i].GroupA != fragile[j].GroupA {
			return fragile[i].GroupA < fragile[j].GroupA
		}
		return fragile[i].GroupB < fragile[j].GroupB
	})

	return &BridgeReport{
		ArticulationPoints: aps,
		BridgeLinks:        bridges,
		FragileConnections: fragile,
		APCount:            len(aps),
		BridgeCount:        len(bridges),
	}
}

package graph

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"filesdash/xref/internal/record"
	"filesdash/xref/internal/resolve"
)

func quickSnapshot(nodeIDs []string, edges [][2]string) *GraphSnapshot {
	var nodes []*NodeInfo
	for _, id := range nodeIDs {
		nodes = append(nodes, &NodeInfo{ID: id, Name: "Person " + id})
	}
	var edgeInfos []EdgeInfo
	for _, e := range edges {
		edgeInfos = append(edgeInfos, EdgeInfo{Source: e[0], Target: e[1], Weight: 1})
	}
	return NewSnapshot(nodes, edgeInfos)
}

func groupedSnapshot(groups map[string]string, edges [][2]string) *GraphSnapshot {
	var nodes []*NodeInfo
	for id, g := range groups {
		nodes = append(nodes, &NodeInfo{ID: id, Name: "Person " + id, Group: g})
	}
	var edgeInfos []EdgeInfo
	for _, e := range edges {
		edgeInfos = append(edgeInfos, EdgeInfo{Source: e[0], Target: e[1], Weight: 1})
	}
	return NewSnapshot(nodes, edgeInfos)
}

// directory resolves names and applies the metrics implied by the network.
func directory(t *testing.T, names []string, edges []record.Edge, extra map[string]resolve.Metrics) (*resolve.Directory, *Network) {
	t.Helper()
	var persons []record.Person
	for _, n := range names {
		persons = append(persons, record.Person{RawName: n})
	}
	dir := resolve.Resolve(resolve.Input{Persons: persons, Edges: edges})
	net := Build(dir, edges)

	metrics := make(map[string]resolve.Metrics)
	for id, m := range extra {
		metrics[id] = m
	}
	for _, id := range dir.IDs() {
		if d := net.Degree(id); d > 0 {
			m := metrics[id]
			m.Connections = d
			metrics[id] = m
		}
	}
	if err := dir.ApplyMetrics(metrics); err != nil {
		t.Fatal(err)
	}
	return dir, net
}

func edge(file string, line int, a, b string) record.Edge {
	return record.Edge{Ref: record.Ref{File: file, Line: line}, A: a, B: b, Type: "associate"}
}

// --- Network Tests ---

func TestBuild_MergesAcrossFiles(t *testing.T) {
	edges := []record.Edge{
		edge("relationships/a.csv", 2, "John Doe", "Jane Roe"),
		edge("relationships/b.csv", 5, "Jane Roe", "Doe, John"),
		edge("relationships/c.json", 1, "JOHN DOE", "jane roe"),
	}
	dir, net := directory(t, []string{"John Doe", "Jane Roe"}, edges, nil)
	g, err := net.Assemble(dir)
	if err != nil {
		t.Fatal(err)
	}

	if len(g.Links) != 1 {
		t.Fatalf("expected 1 link, got %d", len(g.Links))
	}
	l := g.Links[0]
	if l.Source != "jane-roe" || l.Target != "john-doe" {
		t.Errorf("link endpoints should be ordered, got %s-%s", l.Source, l.Target)
	}
	if l.Weight != 3 {
		t.Errorf("expected weight 3, got %d", l.Weight)
	}
	wantSources := []string{"relationships/a.csv:2", "relationships/b.csv:5", "relationships/c.json:1"}
	if !reflect.DeepEqual(l.Sources, wantSources) {
		t.Errorf("sources = %v, want %v", l.Sources, wantSources)
	}
	if !reflect.DeepEqual(l.Types, []string{"associate"}) {
		t.Errorf("types = %v", l.Types)
	}
}

func TestBuild_DropsSelfLoopsAndUnresolved(t *testing.T) {
	edges := []record.Edge{
		edge("r.csv", 2, "John Doe", "Doe, John"),
		edge("r.csv", 3, "John Doe", ""),
		edge("r.csv", 4, "John Doe", "Jane Roe"),
		edge("r.csv", 5, "???", "!!!"),
	}
	dir, net := directory(t, []string{"John Doe", "Jane Roe"}, edges, nil)
	if net.SelfLoops != 1 {
		t.Errorf("expected 1 self loop, got %d", net.SelfLoops)
	}
	// counted per endpoint: one on row 3, two on row 5
	if net.Unresolved != 3 {
		t.Errorf("expected 3 unresolved endpoints, got %d", net.Unresolved)
	}
	g, err := net.Assemble(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, l := range g.Links {
		if l.Source == l.Target {
			t.Errorf("self loop in output: %+v", l)
		}
	}
	if len(g.Links) != 1 {
		t.Errorf("expected 1 link, got %d", len(g.Links))
	}
}

func TestAssemble_NodeCompleteness(t *testing.T) {
	edges := []record.Edge{
		edge("r.csv", 2, "John Doe", "Jane Roe"),
		edge("r.csv", 3, "Bill Poe", "Jane Roe"),
	}
	extra := map[string]resolve.Metrics{"ann-lee": {Flights: 2}}
	dir, net := directory(t, []string{"John Doe", "Jane Roe", "Bill Poe", "Ann Lee", "Nobody Else"}, edges, extra)

	g, err := net.Assemble(dir)
	if err != nil {
		t.Fatal(err)
	}

	ids := make(map[string]bool)
	for _, n := range g.Nodes {
		ids[n.ID] = true
	}
	for _, l := range g.Links {
		if !ids[l.Source] || !ids[l.Target] {
			t.Errorf("link %s-%s references a missing node", l.Source, l.Target)
		}
	}
	if !ids["ann-lee"] {
		t.Error("person with flights but no links should be a node")
	}
	if ids["nobody-else"] {
		t.Error("person without links or metrics should not be a node")
	}

	var order []string
	for _, n := range g.Nodes {
		order = append(order, n.ID)
	}
	want := []string{"jane-roe", "bill-poe", "john-doe", "ann-lee"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("node order = %v, want %v", order, want)
	}
	if g.Nodes[0].Connections != 2 {
		t.Errorf("jane-roe connections = %d, want 2", g.Nodes[0].Connections)
	}
}

func TestAssemble_LinkOrder(t *testing.T) {
	edges := []record.Edge{
		edge("r.csv", 2, "Ann Lee", "Bill Poe"),
		edge("r.csv", 3, "Jane Roe", "John Doe"),
		edge("r.csv", 4, "John Doe", "Jane Roe"),
		edge("r.csv", 5, "Ann Lee", "Jane Roe"),
	}
	dir, net := directory(t, []string{"John Doe", "Jane Roe", "Bill Poe", "Ann Lee"}, edges, nil)
	g, err := net.Assemble(dir)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, l := range g.Links {
		got = append(got, fmt.Sprintf("%s-%s:%d", l.Source, l.Target, l.Weight))
	}
	want := []string{"jane-roe-john-doe:2", "ann-lee-bill-poe:1", "ann-lee-jane-roe:1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("links = %v, want %v", got, want)
	}
}

func TestAssemble_MetricsPending(t *testing.T) {
	dir := resolve.Resolve(resolve.Input{Persons: []record.Person{{RawName: "John Doe"}}})
	_, err := Build(dir, nil).Assemble(dir)
	if !errors.Is(err, ErrMetricsPending) {
		t.Errorf("expected ErrMetricsPending, got %v", err)
	}
}

func TestAssemble_InconsistentDegree(t *testing.T) {
	edges := []record.Edge{edge("r.csv", 2, "John Doe", "Jane Roe")}
	dir := resolve.Resolve(resolve.Input{Edges: edges})
	if err := dir.ApplyMetrics(map[string]resolve.Metrics{"john-doe": {Connections: 5}}); err != nil {
		t.Fatal(err)
	}
	_, err := Build(dir, edges).Assemble(dir)
	if !errors.Is(err, ErrInconsistentDegree) {
		t.Errorf("expected ErrInconsistentDegree, got %v", err)
	}
}

// --- Co-passenger Tests ---

func TestCoPassengerEdges(t *testing.T) {
	flights := []record.Flight{
		{Ref: record.Ref{File: "flight_logs/a.csv", Line: 2}, Passengers: []string{"John Doe", "Jane Roe", "Bill Poe"}},
		{Ref: record.Ref{File: "flight_logs/a.csv", Line: 3}, Passengers: []string{"Jane Roe", "Doe, John", "John Doe"}},
		{Ref: record.Ref{File: "flight_logs/a.csv", Line: 4}, ManifestInvalid: true, Passengers: []string{"Bill Poe", "John Doe"}},
	}
	dir := resolve.Resolve(resolve.Input{Flights: flights})

	edges := CoPassengerEdges(dir, flights, 0)
	if len(edges) != 4 {
		t.Fatalf("expected 4 edges, got %d", len(edges))
	}
	for _, e := range edges {
		if e.Type != CoPassengerType {
			t.Errorf("unexpected type %q", e.Type)
		}
	}

	net := Build(dir, edges)
	links := net.Links()
	if links[0].Source != "jane-roe" || links[0].Target != "john-doe" || links[0].Weight != 2 {
		t.Errorf("strongest link = %+v, want jane-roe-john-doe weight 2", links[0])
	}
	if net.SelfLoops != 0 {
		t.Errorf("duplicate passengers should not produce self loops, got %d", net.SelfLoops)
	}
}

func TestCoPassengerEdges_Limit(t *testing.T) {
	flights := []record.Flight{
		{Passengers: []string{"John Doe", "Jane Roe"}},
		{Passengers: []string{"John Doe", "Jane Roe"}},
		{Passengers: []string{"Bill Poe", "Ann Lee"}},
	}
	dir := resolve.Resolve(resolve.Input{Flights: flights})
	edges := CoPassengerEdges(dir, flights, 1)
	if len(edges) != 2 {
		t.Fatalf("expected the 2 occurrences of the top pair, got %d", len(edges))
	}
	links := Build(dir, edges).Links()
	if len(links) != 1 || links[0].Weight != 2 {
		t.Errorf("unexpected links: %+v", links)
	}
}

// --- Topology Tests ---

func TestTopology_EmptyGraph(t *testing.T) {
	snap := NewSnapshot(nil, nil)
	r := ComputeTopology(snap, 4, 10)
	if r.TotalNodes != 0 || r.TotalLinks != 0 || r.NumComponents != 0 {
		t.Errorf("empty graph should have all zeros, got nodes=%d links=%d components=%d",
			r.TotalNodes, r.TotalLinks, r.NumComponents)
	}
}

func TestTopology_SingleComponent(t *testing.T) {
	snap := quickSnapshot(
		[]string{"A", "B", "C", "D", "E"},
		[][2]string{{"A", "B"}, {"B", "C"}, {"C", "D"}, {"D", "E"}},
	)
	r := ComputeTopology(snap, 4, 10)
	if r.NumComponents != 1 {
		t.Errorf("expected 1 component, got %d", r.NumComponents)
	}
	if r.LargestComponent != 5 {
		t.Errorf("expected largest=5, got %d", r.LargestComponent)
	}
	if r.IsolatedCount != 0 {
		t.Errorf("expected 0 isolated, got %d", r.IsolatedCount)
	}
}

func TestTopology_TwoComponents(t *testing.T) {
	snap := quickSnapshot(
		[]string{"A", "B", "C", "D", "E"},
		[][2]string{{"A", "B"}, {"B", "C"}, {"D", "E"}},
	)
	r := ComputeTopology(snap, 4, 10)
	if r.NumComponents != 2 {
		t.Errorf("expected 2 components, got %d", r.NumComponents)
	}
	if r.LargestComponent != 3 {
		t.Errorf("expected largest=3, got %d", r.LargestComponent)
	}
	if r.SmallestComponent != 2 {
		t.Errorf("expected smallest=2, got %d", r.SmallestComponent)
	}
}

func TestUnionFind_ComponentsDeterministic(t *testing.T) {
	uf := NewUnionFind([]string{"e", "d", "c", "b", "a"})
	uf.Union("e", "d")
	uf.Union("c", "a")
	uf.Union("a", "b")
	got := uf.Components()
	want := [][]string{{"a", "b", "c"}, {"d", "e"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("components = %v, want %v", got, want)
	}
	if uf.Size("b") != 3 {
		t.Errorf("size = %d, want 3", uf.Size("b"))
	}
}

func TestIsolated_Detection(t *testing.T) {
	snap := quickSnapshot(
		[]string{"A", "B", "C"},
		[][2]string{{"A", "B"}},
	)
	r := ComputeTopology(snap, 4, 10)
	if r.IsolatedCount != 1 {
		t.Errorf("expected 1 isolated, got %d", r.IsolatedCount)
	}
	if !reflect.DeepEqual(r.IsolatedIDs, []string{"C"}) {
		t.Errorf("C should be isolated, got %v", r.IsolatedIDs)
	}
}

func TestHub_Detection(t *testing.T) {
	snap := quickSnapshot(
		[]string{"center", "s1", "s2", "s3", "s4", "s5"},
		[][2]string{{"center", "s1"}, {"center", "s2"}, {"center", "s3"}, {"center", "s4"}, {"center", "s5"}},
	)
	r := ComputeTopology(snap, 4, 10)
	if len(r.Hubs) != 1 {
		t.Fatalf("expected 1 hub, got %d", len(r.Hubs))
	}
	if r.Hubs[0].ID != "center" {
		t.Errorf("expected center as hub, got %s", r.Hubs[0].ID)
	}
	if r.Hubs[0].Degree != 5 || r.Hubs[0].Strength != 5 {
		t.Errorf("center degree/strength should be 5/5, got %d/%d", r.Hubs[0].Degree, r.Hubs[0].Strength)
	}
	if r.Hubs[0].Group != Unassigned {
		t.Errorf("expected unassigned group, got %q", r.Hubs[0].Group)
	}
}

func TestSnapshot_IgnoresDanglingEdges(t *testing.T) {
	snap := quickSnapshot([]string{"A", "B"}, [][2]string{{"A", "B"}, {"A", "Z"}})
	if len(snap.Edges) != 1 {
		t.Errorf("expected 1 edge, got %d", len(snap.Edges))
	}
}

// --- Tarjan Tests ---

func TestTarjan_Bridge(t *testing.T) {
	snap := quickSnapshot(
		[]string{"A", "B", "C"},
		[][2]string{{"A", "B"}, {"B", "C"}},
	)
	r := ComputeBridges(snap)
	if r.BridgeCount != 2 {
		t.Errorf("expected 2 bridges, got %d", r.BridgeCount)
	}
	if r.APCount != 1 || r.ArticulationPoints[0].ID != "B" {
		t.Errorf("B should be the only AP, got %+v", r.ArticulationPoints)
	}
}

func TestTarjan_CycleNoBridges(t *testing.T) {
	snap := quickSnapshot(
		[]string{"A", "B", "C"},
		[][2]string{{"A", "B"}, {"B", "C"}, {"C", "A"}},
	)
	r := ComputeBridges(snap)
	if r.BridgeCount != 0 {
		t.Errorf("triangle should have 0 bridges, got %d", r.BridgeCount)
	}
	if r.APCount != 0 {
		t.Errorf("triangle should have 0 APs, got %d", r.APCount)
	}
}

func TestTarjan_TwoCyclesJoined(t *testing.T) {
	snap := quickSnapshot(
		[]string{"A", "B", "C", "D", "E", "F"},
		[][2]string{
			{"A", "B"}, {"B", "C"}, {"C", "A"}, // triangle 1
			{"D", "E"}, {"E", "F"}, {"F", "D"}, // triangle 2
			{"C", "D"}, // bridge
		},
	)
	r := ComputeBridges(snap)
	if r.BridgeCount != 1 {
		t.Fatalf("expected 1 bridge (C-D), got %d", r.BridgeCount)
	}
	if r.BridgeLinks[0].SourceID != "C" || r.BridgeLinks[0].TargetID != "D" {
		t.Errorf("unexpected bridge %+v", r.BridgeLinks[0])
	}
	apIDs := make(map[string]bool)
	for _, ap := range r.ArticulationPoints {
		apIDs[ap.ID] = true
	}
	if !apIDs["C"] || !apIDs["D"] {
		t.Errorf("C and D should be APs, got %v", apIDs)
	}
}

// --- Group Tests ---

func TestGroups_UnassignedDefault(t *testing.T) {
	snap := groupedSnapshot(map[string]string{"a": "Royalty", "b": ""}, nil)
	if snap.Groups["a"] != "Royalty" {
		t.Errorf("a group = %q", snap.Groups["a"])
	}
	if snap.Groups["b"] != Unassigned {
		t.Errorf("b group = %q, want %q", snap.Groups["b"], Unassigned)
	}
	if !reflect.DeepEqual(snap.GroupNames(), []string{"Royalty", Unassigned}) {
		t.Errorf("group names = %v", snap.GroupNames())
	}
}

func TestFilterToGroup(t *testing.T) {
	snap := groupedSnapshot(
		map[string]string{"a": "Pilot", "b": "Pilot", "c": "Royalty"},
		[][2]string{{"a", "b"}, {"b", "c"}},
	)
	sub := snap.FilterToGroup("Pilot")
	if len(sub.Nodes) != 2 || len(sub.Edges) != 1 {
		t.Errorf("expected 2 nodes and 1 edge, got %d and %d", len(sub.Nodes), len(sub.Edges))
	}
}

func TestFragile_Connections(t *testing.T) {
	snap := groupedSnapshot(
		map[string]string{"a1": "Pilot", "a2": "Pilot", "b1": "Royalty", "b2": "Royalty", "c1": "Staff"},
		[][2]string{{"a1", "a2"}, {"a1", "b1"}, {"b1", "b2"}, {"b1", "c1"}, {"b2", "c1"}, {"a2", "c1"}, {"b2", "c1"}},
	)
	r := ComputeBridges(snap)
	want := []FragileConnection{
		{GroupA: "Pilot", GroupB: "Royalty", CrossLinks: 1},
		{GroupA: "Pilot", GroupB: "Staff", CrossLinks: 1},
	}
	if !reflect.DeepEqual(r.FragileConnections, want) {
		t.Errorf("fragile = %+v, want %+v", r.FragileConnections, want)
	}
}

// --- Health Tests ---

func TestHealthScore_Range(t *testing.T) {
	// All isolated
	snap := quickSnapshot([]string{"A", "B", "C"}, nil)
	r := Analyze(snap, DefaultConfig())
	if r.HealthScore < 0 || r.HealthScore > 1 {
		t.Errorf("health out of range: %f", r.HealthScore)
	}

	// Connected
	snap2 := quickSnapshot([]string{"A", "B"}, [][2]string{{"A", "B"}})
	r2 := Analyze(snap2, DefaultConfig())
	if r2.HealthScore < 0 || r2.HealthScore > 1 {
		t.Errorf("health out of range: %f", r2.HealthScore)
	}
}

func TestHealthScore_Perfect(t *testing.T) {
	nodes := []*NodeInfo{{ID: "A"}, {ID: "B"}, {ID: "C"}}
	edges := []EdgeInfo{
		{Source: "A", Target: "B", Weight: 2},
		{Source: "B", Target: "C", Weight: 3},
		{Source: "A", Target: "C", Weight: 2},
	}
	r := Analyze(NewSnapshot(nodes, edges), &AnalyzerConfig{HubThreshold: 10, TopN: 50})
	if r.HealthScore < 0.95 {
		t.Errorf("fully corroborated triangle should have health ~1.0, got %f", r.HealthScore)
	}
	if r.Corroborated != 3 {
		t.Errorf("expected 3 corroborated links, got %d", r.Corroborated)
	}
}

func TestHealthScore_Uncorroborated(t *testing.T) {
	snap := quickSnapshot(
		[]string{"A", "B", "C"},
		[][2]string{{"A", "B"}, {"B", "C"}, {"C", "A"}},
	)
	r := Analyze(snap, DefaultConfig())
	if r.HealthBreakdown.Corroboration != 0 {
		t.Errorf("single-record links should not count as corroborated, got %f", r.HealthBreakdown.Corroboration)
	}
	if r.HealthScore > 0.76 || r.HealthScore < 0.74 {
		t.Errorf("expected health 0.75, got %f", r.HealthScore)
	}
}

func TestSnapshotFromGraph(t *testing.T) {
	g := Graph{
		Nodes: []Node{{ID: "a", Name: "A", Group: "Pilot"}, {ID: "b", Name: "B"}},
		Links: []Link{{Source: "a", Target: "b", Weight: 4}},
	}
	snap := SnapshotFromGraph(g)
	if len(snap.Nodes) != 2 || snap.Strength("a") != 4 {
		t.Errorf("unexpected snapshot: %d nodes, strength %d", len(snap.Nodes), snap.Strength("a"))
	}
	if snap.Groups["b"] != Unassigned {
		t.Errorf("b group = %q", snap.Groups["b"])
	}
}

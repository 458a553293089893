package graph

import "math"

// HealthBreakdown shows the sub-scores of the health formula
type HealthBreakdown struct {
	Connectivity  float64 `json:"connectivity"`
	Components    float64 `json:"components"`
	Corroboration float64 `json:"corroboration"`
	Fragility     float64 `json:"fragility"`
}

// AnalysisReport is the full analysis result
type AnalysisReport struct {
	HealthScore     float64         `json:"health_score"`
	HealthBreakdown HealthBreakdown `json:"health_breakdown"`
	Topology        *TopologyReport `json:"topology"`
	Bridges         *BridgeReport   `json:"bridges"`
	Corroborated    int             `json:"corroborated_links"`
}

// AnalyzerConfig holds analysis parameters
type AnalyzerConfig struct {
	HubThreshold int
	TopN         int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *AnalyzerConfig {
	return &AnalyzerConfig{
		HubThreshold: 10,
		TopN:         50,
	}
}

// Analyze runs all analyses and computes a composite health score.
// A link is corroborated when more than one record backs it.
func Analyze(snap *GraphSnapshot, config *AnalyzerConfig) *AnalysisReport {
	topology := ComputeTopology(snap, config.HubThreshold, config.TopN)
	bridges := ComputeBridges(snap)

	corroborated := 0
	for _, e := range snap.Edges {
		if e.Weight > 1 {
			corroborated++
		}
	}

	total := float64(topology.TotalNodes)

	var connectivity, components, corroboration, fragility float64

	if total > 0 {
		connectivity = clamp(1.0-math.Min(float64(topology.IsolatedCount)/total, 0.2)*5.0, 0, 1)
	}
	if topology.NumComponents > 0 {
		components = clamp(1.0/float64(topology.NumComponents), 0, 1)
	}
	if len(snap.Edges) > 0 {
		corroboration = clamp(float64(corroborated)/float64(len(snap.Edges)), 0, 1)
	}
	if total > 0 {
		fragility = clamp(1.0-math.Min(float64(bridges.APCount)/total, 0.05)*20.0, 0, 1)
	}

	healthScore := 0.30*connectivity + 0.25*components + 0.25*corroboration + 0.20*fragility

	return &AnalysisReport{
		HealthScore: healthScore,
		HealthBreakdown: HealthBreakdown{
			Connectivity:  connectivity,
			Components:    components,
			Corroboration: corroboration,
			Fragility:     fragility,
		},
		Topology:     topology,
		Bridges:      bridges,
		Corroborated: corroborated,
	}
}

func clamp(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

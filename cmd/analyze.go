package cmd

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"filesdash/xref/internal/graph"
)

var (
	analyzeJSON         bool
	analyzeGroup        string
	analyzeTopN         int
	analyzeHubThreshold int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze the person network: topology, bridges, health score",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		snap, err := graph.SnapshotFromDB(db)
		if err != nil {
			return fmt.Errorf("loading network: %w", err)
		}

		if analyzeGroup != "" {
			groups := snap.GroupNames()
			if !slices.Contains(groups, analyzeGroup) {
				return fmt.Errorf("unknown group %q (groups: %s)", analyzeGroup, strings.Join(groups, ", "))
			}
			snap = snap.FilterToGroup(analyzeGroup)
		}

		config := &graph.AnalyzerConfig{
			HubThreshold: analyzeHubThreshold,
			TopN:         analyzeTopN,
		}

		report := graph.Analyze(snap, config)

		run, err := db.LatestRun()
		if err != nil {
			return fmt.Errorf("loading run: %w", err)
		}

		if analyzeJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		if run != nil {
			fmt.Printf("\n  Snapshot %s, built %s from %s\n",
				truncID(run.ID), humanize.Time(time.UnixMilli(run.CreatedAt)), run.DataDir)
		}
		printHumanReadable(report, snap)
		return nil
	},
}

func init() {
	addDBFlag(analyzeCmd)
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Output as JSON")
	analyzeCmd.Flags().StringVar(&analyzeGroup, "group", "", "Scope analysis to persons of this category")
	analyzeCmd.Flags().IntVar(&analyzeTopN, "top-n", 10, "Number of top items to show per section")
	analyzeCmd.Flags().IntVar(&analyzeHubThreshold, "hub-threshold", 10, "Minimum degree to consider a person a hub")
	rootCmd.AddCommand(analyzeCmd)
}

func printHumanReadable(report *graph.AnalysisReport, snap *graph.GraphSnapshot) {
	// Health bar
	barLen := int(report.HealthScore * 20)
	if barLen > 20 {
		barLen = 20
	}
	bar := strings.Repeat("█", barLen) + strings.Repeat("░", 20-barLen)
	fmt.Printf("\n  Network Health: %.0f%%  [%s]\n", report.HealthScore*100, bar)
	fmt.Printf("  breakdown: connectivity=%.2f components=%.2f corroboration=%.2f fragility=%.2f\n\n",
		report.HealthBreakdown.Connectivity,
		report.HealthBreakdown.Components,
		report.HealthBreakdown.Corroboration,
		report.HealthBreakdown.Fragility)

	// Topology
	t := report.Topology
	fmt.Println("  TOPOLOGY")
	fmt.Println("  ────────────────────────────────────────")
	fmt.Printf("  Persons: %d  Links: %d  Components: %d\n", t.TotalNodes, t.TotalLinks, t.NumComponents)
	fmt.Printf("  Largest component: %d  Smallest: %d\n", t.LargestComponent, t.SmallestComponent)
	fmt.Printf("  Corroborated links (weight > 1): %d\n", report.Corroborated)

	if t.IsolatedCount > 0 {
		fmt.Printf("  Isolated: %d persons without links\n", t.IsolatedCount)
		limit := min(5, len(t.IsolatedIDs))
		for _, id := range t.IsolatedIDs[:limit] {
			name := "?"
			if node := snap.Nodes[id]; node != nil {
				name = truncName(node.Name, 50)
			}
			fmt.Printf("    - %s (%s)\n", truncID(id), name)
		}
		if t.IsolatedCount > 5 {
			fmt.Printf("    ... and %d more\n", t.IsolatedCount-5)
		}
	}

	// Degree distribution
	fmt.Println("\n  Degree distribution:")
	for _, b := range t.DegreeHistogram {
		if b.Count > 0 {
			barWidth := int(math.Log2(float64(b.Count))) + 2
			fmt.Printf("    %5s: %4d  %s\n", b.Label, b.Count, strings.Repeat("=", barWidth))
		}
	}

	// Hubs
	if len(t.Hubs) > 0 {
		fmt.Println("\n  Top hubs (degree > threshold):")
		for _, hub := range t.Hubs {
			fmt.Printf("    %s degree=%d strength=%d [%s]  %s\n",
				truncID(hub.ID), hub.Degree, hub.Strength, hub.Group, truncName(hub.Name, 40))
		}
	}

	// Bridges
	br := report.Bridges
	if br.APCount > 0 || br.BridgeCount > 0 || len(br.FragileConnections) > 0 {
		fmt.Println("\n  STRUCTURAL FRAGILITY")
		fmt.Println("  ────────────────────────────────────────")
		if br.APCount > 0 {
			fmt.Printf("  %d articulation points (removal disconnects the network):\n", br.APCount)
			limit := min(10, len(br.ArticulationPoints))
			for _, ap := range br.ArticulationPoints[:limit] {
				fmt.Printf("    %s (%d neighbors)  %s\n",
					truncID(ap.ID), ap.Neighbors, truncName(ap.Name, 40))
			}
		}
		if br.BridgeCount > 0 {
			fmt.Printf("  %d bridge links (removal disconnects the network):\n", br.BridgeCount)
			limit := min(10, len(br.BridgeLinks))
			for _, bl := range br.BridgeLinks[:limit] {
				fmt.Printf("    %s <-> %s (weight %d)\n",
					truncName(bl.SourceName, 30), truncName(bl.TargetName, 30), bl.Weight)
			}
		}
		if len(br.FragileConnections) > 0 {
			fmt.Printf("  %d fragile inter-group connections (<=2 links):\n", len(br.FragileConnections))
			limit := min(10, len(br.FragileConnections))
			for _, fc := range br.FragileConnections[:limit] {
				s := ""
				if fc.CrossLinks != 1 {
					s = "s"
				}
				fmt.Printf("    %s <-> %s (%d link%s)\n",
					truncName(fc.GroupA, 25), truncName(fc.GroupB, 25), fc.CrossLinks, s)
			}
		}
	}

	fmt.Println()
}

func truncID(id string) string {
	if len(id) > 24 {
		return id[:24]
	}
	return id
}

func truncName(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Back up to a rune boundary
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + "..."
}

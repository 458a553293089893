package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"filesdash/xref/internal/logger"
	"filesdash/xref/internal/pipeline"
)

var (
	buildData         string
	buildOut          string
	buildImages       string
	buildAssets       string
	buildNoAssetCheck bool
	buildDB           string
	buildMetrics      string
	buildWorkers      int
	buildJSON         bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Load the raw tables, resolve names and write the dashboard documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		applyBuildFlags(cmd)
		if err := cfg.Validate(); err != nil {
			return err
		}

		p := pipeline.New(cfg, pipeline.WithLogger(logger.Named("pipeline")))
		report, err := p.Run(cmd.Context())
		if err != nil {
			return err
		}

		if buildJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		printBuildReport(report)
		return nil
	},
}

func init() {
	buildCmd.Flags().StringVar(&buildData, "data", "", "Data root with one directory per table")
	buildCmd.Flags().StringVar(&buildOut, "out", "", "Output directory for the JSON documents")
	buildCmd.Flags().StringVar(&buildImages, "images", "", "Image index file")
	buildCmd.Flags().StringVar(&buildAssets, "assets", "", "Directory image paths are relative to")
	buildCmd.Flags().BoolVar(&buildNoAssetCheck, "no-asset-check", false, "Do not verify that referenced images exist")
	buildCmd.Flags().StringVar(&buildDB, "db", "", "Also write a SQLite snapshot to this file")
	buildCmd.Flags().StringVar(&buildMetrics, "metrics", "", "Write run metrics in Prometheus text format to this file")
	buildCmd.Flags().IntVar(&buildWorkers, "workers", 0, "Files read concurrently (default: number of CPUs)")
	buildCmd.Flags().BoolVar(&buildJSON, "json", false, "Print the run report as JSON")
	rootCmd.AddCommand(buildCmd)
}

// applyBuildFlags overrides configuration with the flags given on the command line.
func applyBuildFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("data") {
		cfg.DataDir = buildData
	}
	if flags.Changed("out") {
		cfg.OutputDir = buildOut
	}
	if flags.Changed("images") {
		cfg.ImageIndex = buildImages
	}
	if flags.Changed("assets") {
		cfg.AssetRoot = buildAssets
	}
	if buildNoAssetCheck {
		cfg.CheckAssets = false
	}
	if flags.Changed("db") {
		cfg.SnapshotDB = buildDB
	}
	if flags.Changed("metrics") {
		cfg.MetricsFile = buildMetrics
	}
	if flags.Changed("workers") {
		cfg.Workers = buildWorkers
	}
}

func printBuildReport(r *pipeline.Report) {
	fmt.Printf("\n  Build complete\n")
	fmt.Println("  ────────────────────────────────────────")
	fmt.Printf("  Files read: %d  Skipped rows: %d\n", len(r.Files), r.SkippedRows)
	for _, f := range r.Files {
		if f.Skipped > 0 {
			fmt.Printf("    %s: %d of %d rows skipped\n", f.File, f.Skipped, f.Rows)
			for _, s := range f.Samples {
				fmt.Printf("      line %d: %s\n", s.Line, s.Reason)
			}
		}
	}

	res := r.Resolution
	fmt.Printf("  Persons: %d from %d name variants\n", res.Persons, res.RawNames)
	if res.Unresolvable > 0 {
		fmt.Printf("  Unresolvable names: %d\n", res.Unresolvable)
	}
	if res.UnmatchedImageKeys > 0 {
		fmt.Printf("  Image keys matching no person: %d\n", res.UnmatchedImageKeys)
	}
	if r.UnresolvedMentions > 0 {
		fmt.Printf("  Unresolved mentions: %d\n", r.UnresolvedMentions)
	}

	source := "relationship tables"
	if r.CoPassenger {
		source = "shared flights"
	}
	fmt.Printf("  Links: %d (from %s)  self loops dropped: %d  unresolved endpoints: %d\n",
		r.Links, source, r.SelfLoops, r.UnresolvedEndpoints)
	if r.Health != nil {
		fmt.Printf("  Network health: %.0f%%\n", r.Health.HealthScore*100)
	}

	fmt.Println("\n  Outputs:")
	for _, f := range r.Outputs {
		fmt.Printf("    %-28s %s\n", f.Name, humanize.Bytes(uint64(f.Size)))
	}
	if r.RunID != "" {
		fmt.Printf("\n  Snapshot run: %s\n", r.RunID)
	}
	fmt.Println()
}

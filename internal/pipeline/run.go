package pipeline

import (
	"context"
	"fmt"

	"filesdash/xref/internal/db"
	"filesdash/xref/internal/export"
	"filesdash/xref/internal/graph"
	"filesdash/xref/internal/loader"
	"filesdash/xref/internal/logger"
	"filesdash/xref/internal/resolve"
)

// Report summarizes one build.
type Report struct {
	RunID       string             `json:"run_id,omitempty"`
	Files       []loader.FileStats `json:"-"`
	SkippedRows int                `json:"skipped_rows"`
	Resolution  resolve.Stats      `json:"resolution"`

	// UnresolvedMentions counts name occurrences matching no person across
	// manifests, power mentions and edge endpoints. UnresolvedEndpoints is
	// the edge endpoint share of it. Both count one per occurrence.
	UnresolvedMentions  int  `json:"unresolved_mentions"`
	UnresolvedEndpoints int  `json:"unresolved_endpoints"`
	Links               int  `json:"links"`
	SelfLoops           int  `json:"self_loops"`
	CoPassenger         bool `json:"co_passenger"`

	Outputs []export.File         `json:"outputs"`
	Health  *graph.AnalysisReport `json:"health,omitempty"`
}

// Run performs a full build: load, process, export, then the optional
// snapshot database and metrics file. Nothing is written to the output
// directory when processing or validation fails.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	ds, err := p.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading data: %w", err)
	}
	res, err := p.Process(ctx, ds)
	if err != nil {
		return nil, err
	}
	files, err := p.Export(ctx, res)
	if err != nil {
		return nil, fmt.Errorf("exporting: %w", err)
	}

	report := &Report{
		Files:               ds.Files,
		SkippedRows:         ds.Skipped(),
		Resolution:          res.Directory.Stats(),
		UnresolvedMentions:  res.Aggregate.Unresolved,
		Links:               len(res.Graph.Links),
		SelfLoops:           res.Network.SelfLoops,
		UnresolvedEndpoints: res.Network.Unresolved,
		CoPassenger:         res.CoPassenger,
		Outputs:             files,
		Health:              graph.Analyze(graph.SnapshotFromGraph(res.Graph), graph.DefaultConfig()),
	}
	p.logger.Info(ctx, "network health",
		logger.Float64("score", report.Health.HealthScore),
		logger.Int("components", report.Health.Topology.NumComponents),
		logger.Int("articulation_points", report.Health.Bridges.APCount))

	if p.cfg.SnapshotDB != "" {
		if report.RunID, err = p.persist(ctx, ds, res); err != nil {
			return nil, fmt.Errorf("writing snapshot: %w", err)
		}
	}
	if p.cfg.MetricsFile != "" {
		if err := p.metrics.WriteTextfile(p.cfg.MetricsFile); err != nil {
			return nil, fmt.Errorf("writing metrics: %w", err)
		}
	}
	return report, nil
}

// persist stores the resolved persons and merged links in the snapshot database.
func (p *Pipeline) persist(ctx context.Context, ds *loader.Dataset, res *Result) (string, error) {
	d, err := db.OpenDB(p.cfg.SnapshotDB)
	if err != nil {
		return "", err
	}
	defer d.Close()

	snap := Snapshot(ds, res)
	snap.Run.DataDir = p.cfg.DataDir
	id, err := d.WriteSnapshot(ctx, snap)
	if err != nil {
		return "", err
	}
	p.logger.Info(ctx, "snapshot written",
		logger.String("path", p.cfg.SnapshotDB),
		logger.String("run_id", id))
	return id, nil
}

// Snapshot converts a processed result into database rows.
func Snapshot(ds *loader.Dataset, res *Result) db.Snapshot {
	inNetwork := make(map[string]bool, len(res.Graph.Nodes))
	for _, n := range res.Graph.Nodes {
		inNetwork[n.ID] = true
	}

	s := db.Snapshot{
		Run: db.Run{
			Persons:     res.Directory.Len(),
			Flights:     len(ds.Flights),
			Documents:   len(ds.Documents),
			Emails:      len(ds.Emails),
			Links:       len(res.Graph.Links),
			SkippedRows: ds.Skipped(),
		},
	}
	for _, person := range res.Directory.Persons() {
		s.Persons = append(s.Persons, db.Person{
			ID:          person.ID,
			Name:        person.DisplayName,
			Nationality: person.Nationality,
			Category:    person.Category,
			EntityType:  person.EntityType,
			Role:        person.Role,
			Bio:         person.Bio,
			Slug:        person.Slug,
			InBlackBook: person.InBlackBook,
			InNetwork:   inNetwork[person.ID],
			Flights:     person.Flights,
			Documents:   person.Documents,
			Connections: person.Connections,
			Aliases:     person.Aliases,
		})
		for _, img := range person.Images {
			s.Images = append(s.Images, db.Image{PersonID: person.ID, Path: img.Path, Category: img.Category})
		}
	}
	for _, l := range res.Graph.Links {
		s.Links = append(s.Links, db.Link{
			SourceID: l.Source,
			TargetID: l.Target,
			Weight:   l.Weight,
			Types:    l.Types,
			Sources:  l.Sources,
		})
	}
	return s
}

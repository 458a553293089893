// Package pipeline runs the stages of a build: load, resolve, aggregate and
// build the network side by side, then export.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"filesdash/xref/internal/aggregate"
	"filesdash/xref/internal/config"
	"filesdash/xref/internal/export"
	"filesdash/xref/internal/graph"
	"filesdash/xref/internal/loader"
	"filesdash/xref/internal/logger"
	"filesdash/xref/internal/metrics"
	"filesdash/xref/internal/resolve"
)

// Stage names used for timing.
const (
	StageLoad    = "load"
	StageResolve = "resolve"
	StageDerive  = "derive"
	StageExport  = "export"
)

// Result is the in-memory outcome of processing a dataset.
type Result struct {
	Directory *resolve.Directory
	Aggregate *aggregate.Result
	Network   *graph.Network
	Graph     graph.Graph
	Bundle    *export.Bundle

	// CoPassenger is set when the links were derived from flight manifests.
	CoPassenger bool
}

// Option applies a configuration option to the Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetrics sets the metrics manager. By default each Pipeline owns one.
func WithMetrics(m *metrics.Manager) Option {
	return func(p *Pipeline) {
		if m != nil {
			p.metrics = m
		}
	}
}

// Pipeline wires the stages together from a Config.
type Pipeline struct {
	cfg     *config.Config
	logger  logger.Logger
	metrics *metrics.Manager
}

// New creates a Pipeline for cfg.
func New(cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:    cfg,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics == nil {
		p.metrics = metrics.NewManager()
	}
	return p
}

// Metrics returns the manager the pipeline records into.
func (p *Pipeline) Metrics() *metrics.Manager {
	return p.metrics
}

// Load reads the dataset under the configured data directory.
func (p *Pipeline) Load(ctx context.Context) (*loader.Dataset, error) {
	defer p.timed(StageLoad)()

	opts := []loader.Option{
		loader.WithWorkers(p.cfg.Workers),
		loader.WithImageIndex(p.cfg.ImageIndex),
		loader.WithLogger(p.logger.Named("loader")),
		loader.WithMetrics(p.metrics),
	}
	for table, files := range p.cfg.PrimaryFiles {
		opts = append(opts, loader.WithPrimaryFiles(table, files...))
	}
	return loader.New(p.cfg.DataDir, opts...).Load(ctx)
}

// Process resolves names, derives metrics and the network, and formats the
// output documents. The aggregator and the graph builder run concurrently
// over the same edges.
func (p *Pipeline) Process(ctx context.Context, ds *loader.Dataset) (*Result, error) {
	stopResolve := p.timed(StageResolve)
	dir := resolve.Resolve(resolve.Input{
		Persons:   ds.Persons,
		Flights:   ds.Flights,
		Documents: ds.Documents,
		Edges:     ds.Edges,
		Images:    ds.Images,
	}, resolve.WithLogger(p.logger.Named("resolve")))
	stopResolve()

	res := &Result{Directory: dir}

	edges := ds.Edges
	if len(edges) == 0 && p.cfg.CoPassengerFallback {
		edges = graph.CoPassengerEdges(dir, ds.Flights, p.cfg.CoPassengerLimit)
		res.CoPassenger = true
		p.logger.Info(ctx, "relationships derived from flight manifests",
			logger.Int("edges", len(edges)))
	}

	stopDerive := p.timed(StageDerive)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res.Aggregate = aggregate.Run(aggregate.Input{
			Directory: dir,
			Flights:   ds.Flights,
			Documents: ds.Documents,
			Edges:     edges,
			Emails:    ds.Emails,
		}, aggregate.WithLimits(p.cfg.Limits), aggregate.WithLogger(p.logger.Named("aggregate")))
		return gCtx.Err()
	})
	g.Go(func() error {
		res.Network = graph.Build(dir, edges)
		return gCtx.Err()
	})
	err := g.Wait()
	stopDerive()
	if err != nil {
		return nil, err
	}

	if err := dir.ApplyMetrics(res.Aggregate.Metrics); err != nil {
		return nil, fmt.Errorf("applying metrics: %w", err)
	}
	if res.Graph, err = res.Network.Assemble(dir); err != nil {
		return nil, fmt.Errorf("assembling network: %w", err)
	}
	res.Bundle = export.NewBundle(dir, ds.Flights, ds.Documents, res.Graph, res.Aggregate.Summary)

	p.metrics.SetResolution(dir.Len(), res.Aggregate.Unresolved)
	p.metrics.SetLinks(len(res.Graph.Links))
	p.logger.Info(ctx, "network built",
		logger.Int("nodes", len(res.Graph.Nodes)),
		logger.Int("links", len(res.Graph.Links)),
		logger.Int("self_loops", res.Network.SelfLoops),
		logger.Int("unresolved_endpoints", res.Network.Unresolved))
	return res, nil
}

// Export writes the bundle to the configured output directory.
func (p *Pipeline) Export(ctx context.Context, res *Result) ([]export.File, error) {
	defer p.timed(StageExport)()

	e := export.New(
		export.WithAssetRoot(p.cfg.AssetRoot),
		export.WithAssetCheck(p.cfg.CheckAssets),
		export.WithLogger(p.logger.Named("export")),
		export.WithMetrics(p.metrics),
	)
	return e.Write(ctx, p.cfg.OutputDir, res.Bundle)
}

// timed starts a stage timer; call the returned func when the stage ends.
func (p *Pipeline) timed(stage string) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		p.metrics.ObserveStage(stage, d)
		p.logger.Debug(context.Background(), "stage finished",
			logger.String("stage", stage),
			logger.Duration("duration", d))
	}
}

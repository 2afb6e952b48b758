package app

import (
	"context"
	"fmt"
	"time"

	"github.com/specialistvlad/terrane/internal/ctxlog"
	"github.com/specialistvlad/terrane/internal/graph"
	"github.com/specialistvlad/terrane/internal/schema"
	"github.com/specialistvlad/terrane/internal/vars"
)

// Load reads and validates the workspace without resolving anything.
func (a *App) Load(ctx context.Context) (*schema.Config, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	cfg, err := a.loader.Load(ctx, a.cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	a.logger.Debug("Configuration loaded and translated into the declaration model.")
	return cfg, nil
}

// BuildGraph loads the workspace and assembles its dependency graph,
// which also runs the static reference and cycle analysis.
func (a *App) BuildGraph(ctx context.Context) (*graph.Graph, error) {
	cfg, err := a.Load(ctx)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("Building dependency graph from the declaration model...")
	g, err := graph.Build(ctxlog.WithLogger(ctx, a.logger), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build dependency graph: %w", err)
	}
	a.logger.Debug("Dependency graph built.", "node_count", g.Len())
	return g, nil
}

// Validate loads and builds the workspace, reporting success without
// resolving any values.
func (a *App) Validate(ctx context.Context) error {
	g, err := a.BuildGraph(ctx)
	if err != nil {
		return err
	}
	a.logger.Info("Configuration is valid.", "declarations", g.Len())
	fmt.Fprintf(a.outW, "Configuration valid: %d declarations.\n", g.Len())
	return nil
}

// RenderGraph writes the dependency graph in Graphviz DOT form.
func (a *App) RenderGraph(ctx context.Context) error {
	g, err := a.BuildGraph(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(a.outW, g.DOT())
	return err
}

// Run executes one full resolution of the workspace and renders the
// outcome. The returned error aggregates every failed declaration, not
// just the first one; a non-nil error means the run did not fully
// resolve.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	res, err := a.resolve(ctx)
	if err != nil {
		return err
	}
	if err := a.render(res); err != nil {
		return err
	}

	a.logger.Debug("App.Run method finished.")
	return res.Err()
}

// resolve is one load-build-resolve cycle. Declaration failures land in
// the result, not in the returned error: watch mode keeps going through
// them, and Run reports them after rendering.
func (a *App) resolve(ctx context.Context) (*graph.Result, error) {
	inputs, err := vars.Collect(a.cfg.VarFiles, a.cfg.Vars)
	if err != nil {
		return nil, fmt.Errorf("failed to collect variable inputs: %w", err)
	}

	g, err := a.BuildGraph(ctx)
	if err != nil {
		return nil, err
	}

	runner := graph.NewRunner(g, graph.Options{
		Workers:   a.cfg.Workers,
		Variables: inputs,
	})

	a.logger.Info("🚀 Starting concurrent resolution...", "nodes", g.Len())
	started := time.Now()
	res, err := runner.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolution aborted: %w", err)
	}
	a.metrics.observe(res, time.Since(started))
	a.logger.Info("🏁 Resolution finished.",
		"instances", len(res.Instances),
		"failures", len(res.Failures),
		"skipped", len(res.Skipped),
		"deferred", len(res.Deferred),
	)
	return res, nil
}

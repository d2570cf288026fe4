package app

import (
	"context"
	"fmt"

	"github.com/vk/taskgridgo/internal/ctxlog"
	"github.com/vk/taskgridgo/internal/engine"
	"github.com/vk/taskgridgo/internal/gridhcl"
)

// Run loads the grid, builds the graph, and drives the engine to
// completion. Run-time overrides from the Config win over the grid file's
// engine block.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	spec, err := gridhcl.Load(ctx, a.config.GridPath)
	if err != nil {
		return fmt.Errorf("failed to load grid: %w", err)
	}

	workers := a.config.Workers
	if workers == 0 {
		workers = spec.Workers
	}
	if workers == 0 {
		workers = defaultWorkers
	}
	loops := a.config.Loops
	if loops == 0 {
		loops = spec.Loops
	}
	if loops == 0 {
		loops = defaultLoops
	}
	jitter := a.config.Jitter
	if !jitter && spec.Jitter != nil {
		jitter = *spec.Jitter
	}

	g, err := spec.Build(jitter)
	if err != nil {
		return fmt.Errorf("failed to build task graph: %w", err)
	}
	a.logger.Debug("Task graph built.", "node_count", g.Len(), "workers", workers, "loops", loops, "jitter", jitter)

	if a.config.PrintGraph {
		g.Fprint(a.outW)
	}

	eng, err := engine.New(g, engine.Options{
		Workers:      workers,
		Loops:        loops,
		Out:          a.outW,
		PrintTrace:   a.config.PrintTrace,
		LogLoops:     a.config.LogLoops,
		LogLifecycle: a.config.LogLifecycle,
		LogTask:      a.config.LogTask,
	})
	if err != nil {
		return err
	}

	a.logger.Info("🚀 Starting concurrent execution...", "workers", workers, "loops", loops)
	if err := eng.Run(ctx); err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	a.logger.Info("🏁 Execution finished.")

	fmt.Fprintf(a.outW, "%d loops, stop runners\n", eng.LoopsDone())
	a.logger.Debug("App.Run method finished.")
	return nil
}

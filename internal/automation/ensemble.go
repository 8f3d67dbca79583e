package automation

import (
	"context"
	"fmt"
	"runtime"

	"github.com/san-kum/frictionlab/internal/experiment"
	"golang.org/x/sync/errgroup"
)

// workers is how many runs may share the world backend at once. Remote runs
// go one by one since a server may hand every connection the same world.
func (r *Runner) workers() int {
	if r.World.Backend == "remote" {
		return 1
	}
	if r.Workers > 0 {
		return r.Workers
	}
	return runtime.NumCPU()
}

// Ensemble runs independent experiments concurrently, each in a world of
// its own, and returns the results in the order of cfgs. Nothing is saved.
func (r *Runner) Ensemble(ctx context.Context, cfgs []experiment.Config) ([]*experiment.Result, error) {
	results := make([]*experiment.Result, len(cfgs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())
	for i, cfg := range cfgs {
		g.Go(func() error {
			res, _, err := r.Run(gctx, cfg, "")
			if err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

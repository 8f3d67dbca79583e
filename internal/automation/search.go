package automation

import (
	"context"
	"math"

	"github.com/san-kum/frictionlab/internal/experiment"
	"github.com/san-kum/frictionlab/internal/optim"
)

// stillTolerance is the displacement in meters under which a cube counts as
// held by friction.
const stillTolerance = 1e-9

func (r *Runner) single(ctx context.Context, base experiment.Config, mu float64) (experiment.Sample, error) {
	cfg := base
	force := experiment.DefaultForce
	if len(base.Cubes) > 0 {
		force = base.Cubes[0].Force
	}
	cfg.Cubes = []experiment.Cube{{Color: experiment.Palette(0), Friction: mu, Force: force}}

	result, _, err := r.Run(ctx, cfg, "")
	if err != nil {
		return experiment.Sample{}, err
	}
	return result.Samples[0], nil
}

// StickingFriction finds the smallest coefficient in [lo, hi] that keeps a
// single cube of base from moving under the push of the first cube.
func StickingFriction(ctx context.Context, runner *Runner, base experiment.Config, lo, hi, tol float64) (float64, error) {
	return optim.Bisect(ctx, lo, hi, tol, func(ctx context.Context, mu float64) (bool, error) {
		s, err := runner.single(ctx, base, mu)
		if err != nil {
			return false, err
		}
		return math.Abs(s.DisplacementX) <= stillTolerance, nil
	})
}

// FitFriction picks the coefficient from candidates whose single-cube run
// ends closest to the target displacement.
func FitFriction(ctx context.Context, runner *Runner, base experiment.Config, target float64, candidates []float64) (float64, float64, error) {
	g := optim.NewGridSearch([]string{"friction"}, [][]float64{candidates})
	best, residual, err := g.Search(ctx, func(ctx context.Context, p map[string]float64) (float64, error) {
		s, err := runner.single(ctx, base, p["friction"])
		if err != nil {
			return 0, err
		}
		return math.Abs(s.DisplacementX - target), nil
	})
	if err != nil {
		return 0, 0, err
	}
	return best["friction"], residual, nil
}

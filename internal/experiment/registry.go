package experiment

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/frictionlab/internal/integrators"
	"github.com/san-kum/frictionlab/internal/metrics"
	"github.com/san-kum/frictionlab/internal/physics"
	"github.com/san-kum/frictionlab/internal/transport"
	"github.com/san-kum/frictionlab/internal/world"
	"go.uber.org/zap"
)

// WorldOptions selects and tunes the world an experiment runs against.
type WorldOptions struct {
	Backend        string  `yaml:"backend" json:"backend"`
	URL            string  `yaml:"url,omitempty" json:"url,omitempty"`
	Integrator     string  `yaml:"integrator" json:"integrator"`
	StepSize       float64 `yaml:"step_size" json:"step_size"`
	Gravity        float64 `yaml:"gravity" json:"gravity"`
	GroundFriction float64 `yaml:"ground_friction" json:"ground_friction"`
}

func DefaultWorldOptions() WorldOptions {
	return WorldOptions{
		Backend:        "sandbox",
		Integrator:     "semi_implicit",
		StepSize:       physics.DefaultStepSize,
		Gravity:        physics.StandardGravity,
		GroundFriction: 100,
	}
}

type worldFactory func(ctx context.Context, r *Registry, opts WorldOptions, log *zap.Logger) (world.World, error)

type Registry struct {
	worlds      map[string]worldFactory
	integrators map[string]func() physics.Integrator
}

func NewRegistry() *Registry {
	r := &Registry{
		worlds:      make(map[string]worldFactory),
		integrators: make(map[string]func() physics.Integrator),
	}

	r.integrators["euler"] = func() physics.Integrator { return integrators.NewEuler() }
	r.integrators["semi_implicit"] = func() physics.Integrator { return integrators.NewSemiImplicit() }

	r.worlds["sandbox"] = func(_ context.Context, r *Registry, opts WorldOptions, log *zap.Logger) (world.World, error) {
		cfg, err := r.SandboxConfig(opts)
		if err != nil {
			return nil, err
		}
		return world.NewSandbox(cfg, log), nil
	}
	r.worlds["remote"] = func(ctx context.Context, _ *Registry, opts WorldOptions, log *zap.Logger) (world.World, error) {
		if opts.URL == "" {
			return nil, fmt.Errorf("%w: remote world needs a url", ErrInvalidConfig)
		}
		return transport.Dial(ctx, opts.URL, log)
	}

	return r
}

func (r *Registry) GetIntegrator(name string) (physics.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

// SandboxConfig turns options into the configuration of an in-process world.
func (r *Registry) SandboxConfig(opts WorldOptions) (world.SandboxConfig, error) {
	cfg := world.DefaultSandboxConfig()
	if opts.Integrator != "" {
		integ, err := r.GetIntegrator(opts.Integrator)
		if err != nil {
			return cfg, err
		}
		cfg.Integrator = integ
	}
	switch {
	case opts.StepSize < 0 || math.IsNaN(opts.StepSize) || math.IsInf(opts.StepSize, 0):
		return cfg, fmt.Errorf("%w: %v", physics.ErrInvalidStep, opts.StepSize)
	case opts.StepSize > 0:
		cfg.StepSize = opts.StepSize
	}
	if opts.Gravity > 0 {
		cfg.Gravity = mgl64.Vec3{0, 0, -opts.Gravity}
	}
	if opts.GroundFriction > 0 {
		cfg.GroundFriction = opts.GroundFriction
	}
	return cfg, nil
}

// OpenWorld creates the world named by opts.Backend.
func (r *Registry) OpenWorld(ctx context.Context, opts WorldOptions, log *zap.Logger) (world.World, error) {
	if log == nil {
		log = zap.NewNop()
	}
	backend := opts.Backend
	if backend == "" {
		backend = "sandbox"
	}
	fn, ok := r.worlds[backend]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWorld, backend)
	}
	return fn(ctx, r, opts, log)
}

// OpenSession opens a world and wraps it in a session.
func (r *Registry) OpenSession(ctx context.Context, opts WorldOptions, log *zap.Logger) (*world.Session, error) {
	w, err := r.OpenWorld(ctx, opts, log)
	if err != nil {
		return nil, err
	}
	sess, err := world.Open(w, log)
	if err != nil {
		w.Close()
		return nil, err
	}
	return sess, nil
}

func (r *Registry) ListWorlds() []string {
	return sortedKeys(r.worlds)
}

func (r *Registry) ListIntegrators() []string {
	return sortedKeys(r.integrators)
}

func (r *Registry) DefaultMetrics() []Metric {
	return []Metric{
		metrics.NewMeanDisplacement(),
		metrics.NewMaxSpeed(),
		metrics.NewStopped(metrics.DefaultStopThreshold),
		metrics.NewMonotonicity(),
	}
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

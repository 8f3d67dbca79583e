package automation

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/san-kum/frictionlab/internal/config"
	"github.com/san-kum/frictionlab/internal/experiment"
	"github.com/san-kum/frictionlab/internal/storage"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Runner executes experiments, each in a session of its own.
type Runner struct {
	Registry  *experiment.Registry
	World     experiment.WorldOptions
	Store     *storage.Store
	Log       *zap.Logger
	Record    bool
	Observers []experiment.Observer
	// Workers bounds concurrent runs of an ensemble; zero means one per CPU.
	Workers int
}

func NewRunner(registry *experiment.Registry, opts experiment.WorldOptions, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{Registry: registry, World: opts, Log: log}
}

// Run opens a world, drives cfg through every phase and closes the world
// again. When saveAs is set and the runner has a store the result is saved
// under that name and the run id is returned.
func (r *Runner) Run(ctx context.Context, cfg experiment.Config, saveAs string) (*experiment.Result, string, error) {
	sess, err := r.Registry.OpenSession(ctx, r.World, r.Log)
	if err != nil {
		return nil, "", err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			r.Log.Warn("session close", zap.Error(err))
		}
	}()

	d, err := experiment.New(sess, cfg, r.Log)
	if err != nil {
		return nil, "", err
	}
	for _, m := range r.Registry.DefaultMetrics() {
		d.AddMetric(m)
	}
	for _, o := range r.Observers {
		d.AddObserver(o)
	}
	if r.Record {
		d.Record()
	}

	result, err := d.Run(ctx)
	if err != nil {
		return nil, "", err
	}

	if saveAs == "" || r.Store == nil {
		return result, "", nil
	}
	if err := r.Store.Init(); err != nil {
		return result, "", err
	}
	runID, err := r.Store.Save(storage.RunInfo{Name: saveAs, World: r.World}, cfg, result)
	if err != nil {
		return result, "", fmt.Errorf("save %s: %w", saveAs, err)
	}
	r.Log.Info("run saved", zap.String("id", runID))
	return result, runID, nil
}

// Scenario defines a scripted sequence of experiments
type Scenario struct {
	Name        string                   `yaml:"name"`
	Description string                   `yaml:"description"`
	World       *experiment.WorldOptions `yaml:"world,omitempty"`
	Steps       []ScenarioStep           `yaml:"steps"`
}

// ScenarioStep is a single experiment in a scenario. Zero fields keep the
// value of the preset, or of the default configuration when no preset is named.
type ScenarioStep struct {
	Preset        string    `yaml:"preset"`
	Frictions     []float64 `yaml:"frictions"`
	Forces        []float64 `yaml:"forces"`
	Mass          float64   `yaml:"mass"`
	Edge          float64   `yaml:"edge"`
	ForceDuration float64   `yaml:"force_duration"`
	Steps         int       `yaml:"steps"`
	SaveAs        string    `yaml:"save_as"`
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s has no steps", path)
	}

	return &scenario, nil
}

// Config resolves the step against the presets.
func (s ScenarioStep) Config() (experiment.Config, error) {
	cfg := config.DefaultConfig()
	if s.Preset != "" {
		if cfg = config.GetPreset(s.Preset); cfg == nil {
			return experiment.Config{}, fmt.Errorf("unknown preset: %s", s.Preset)
		}
	}

	e := &cfg.Experiment
	if len(s.Frictions) > 0 {
		e.Frictions = s.Frictions
	}
	if len(s.Forces) > 0 {
		e.Forces = s.Forces
	}
	if s.Mass > 0 {
		e.Mass = s.Mass
	}
	if s.Edge > 0 {
		e.Edge = s.Edge
	}
	if s.ForceDuration > 0 {
		e.ForceDuration = s.ForceDuration
	}
	if s.Steps > 0 {
		e.Steps = s.Steps
	}
	return cfg.GetExperiment()
}

// RunScenario executes all steps in a scenario
func RunScenario(ctx context.Context, scenario *Scenario, runner *Runner) ([]*experiment.Result, error) {
	if scenario.World != nil {
		scoped := *runner
		scoped.World = *scenario.World
		runner = &scoped
	}

	results := make([]*experiment.Result, 0, len(scenario.Steps))
	for i, step := range scenario.Steps {
		runner.Log.Info("scenario step",
			zap.String("scenario", scenario.Name),
			zap.Int("step", i+1),
			zap.Int("of", len(scenario.Steps)),
			zap.String("preset", step.Preset))

		cfg, err := step.Config()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		result, _, err := runner.Run(ctx, cfg, step.SaveAs)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}
		results = append(results, result)
	}

	return results, nil
}

// ParameterSweep runs one experiment per value of Param spread evenly over
// [Min, Max]. Param is one of friction, force, mass or duration. Sweeping
// friction gives every run a single cube.
type ParameterSweep struct {
	Param    string
	Min      float64
	Max      float64
	NumSteps int
	Base     experiment.Config
}

type SweepResult struct {
	ParamValue float64
	Samples    []experiment.Sample
	Metrics    map[string]float64
}

func (s *ParameterSweep) Values() []float64 {
	if s.NumSteps <= 1 {
		return []float64{s.Min}
	}
	values := make([]float64, s.NumSteps)
	step := (s.Max - s.Min) / float64(s.NumSteps-1)
	for i := range values {
		values[i] = s.Min + float64(i)*step
	}
	values[len(values)-1] = s.Max
	return values
}

func (s *ParameterSweep) apply(v float64) (experiment.Config, error) {
	cfg := s.Base
	cfg.Cubes = append([]experiment.Cube(nil), s.Base.Cubes...)

	switch s.Param {
	case "friction":
		force := experiment.DefaultForce
		if len(cfg.Cubes) > 0 {
			force = cfg.Cubes[0].Force
		}
		cfg.Cubes = []experiment.Cube{{Color: experiment.Palette(0), Friction: v, Force: force}}
	case "force":
		for i := range cfg.Cubes {
			cfg.Cubes[i].Force = v
		}
	case "mass":
		cfg.Mass = v
	case "duration":
		cfg.ForceDuration = v
	default:
		return cfg, fmt.Errorf("unknown sweep parameter: %s", s.Param)
	}
	return cfg, cfg.Validate()
}

// RunSweep executes a parameter sweep. The points run as one ensemble.
func RunSweep(ctx context.Context, sweep *ParameterSweep, runner *Runner) ([]SweepResult, error) {
	values := sweep.Values()
	cfgs := make([]experiment.Config, len(values))
	for i, v := range values {
		cfg, err := sweep.apply(v)
		if err != nil {
			return nil, err
		}
		cfgs[i] = cfg
	}

	runs, err := runner.Ensemble(ctx, cfgs)
	if err != nil {
		return nil, fmt.Errorf("sweep %s: %w", sweep.Param, err)
	}

	results := make([]SweepResult, len(values))
	for i, v := range values {
		results[i] = SweepResult{
			ParamValue: v,
			Samples:    runs[i].Samples,
			Metrics:    runs[i].Metrics,
		}
		runner.Log.Info("sweep point",
			zap.Int("point", i+1),
			zap.Int("of", len(values)),
			zap.String("param", sweep.Param),
			zap.Float64("value", v),
			zap.Float64("mean_displacement", runs[i].Metrics["mean_displacement"]))
	}

	return results, nil
}

// MonteCarloConfig perturbs the friction coefficients of Base at random to
// check that the ordering of displacements survives noise.
type MonteCarloConfig struct {
	Base         experiment.Config
	Perturbation float64
	NumTrials    int
	Seed         int64
}

type MonteCarloResult struct {
	TrialID   int
	Frictions []float64
	Samples   []experiment.Sample
	Monotonic bool
}

// RunMonteCarlo draws every trial up front from one seeded source, so the
// coefficients do not depend on how the trials are scheduled.
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig, runner *Runner) ([]MonteCarloResult, error) {
	rng := rand.New(rand.NewSource(cfg.Seed))
	if cfg.Seed == 0 {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	cfgs := make([]experiment.Config, cfg.NumTrials)
	for trial := range cfgs {
		expCfg := cfg.Base
		expCfg.Cubes = append([]experiment.Cube(nil), cfg.Base.Cubes...)
		for i := range expCfg.Cubes {
			mu := expCfg.Cubes[i].Friction + (rng.Float64()-0.5)*2*cfg.Perturbation
			if mu < 0 {
				mu = 0
			}
			expCfg.Cubes[i].Friction = mu
		}
		cfgs[trial] = expCfg
	}

	runs, err := runner.Ensemble(ctx, cfgs)
	if err != nil {
		return nil, fmt.Errorf("monte carlo: %w", err)
	}

	results := make([]MonteCarloResult, len(runs))
	for trial, res := range runs {
		results[trial] = MonteCarloResult{
			TrialID:   trial,
			Frictions: cfgs[trial].Frictions(),
			Samples:   res.Samples,
			Monotonic: res.Metrics["monotonicity"] == 1,
		}
	}
	runner.Log.Info("monte carlo done", zap.Int("trials", len(results)))

	return results, nil
}

// MonteCarloStats counts trials whose displacements kept friction order.
func MonteCarloStats(results []MonteCarloResult) (monotonic int, violated int) {
	for _, r := range results {
		if r.Monotonic {
			monotonic++
		} else {
			violated++
		}
	}
	return
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/san-kum/frictionlab/internal/automation"
	"github.com/san-kum/frictionlab/internal/config"
	"github.com/san-kum/frictionlab/internal/experiment"
	"github.com/san-kum/frictionlab/internal/logging"
	"github.com/san-kum/frictionlab/internal/storage"
	"github.com/san-kum/frictionlab/internal/transport"
	"github.com/san-kum/frictionlab/internal/urdf"
	"github.com/san-kum/frictionlab/internal/viz"
	"github.com/san-kum/frictionlab/internal/world"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configFile string
	dataDir    string
	logLevel   string
	devLog     bool

	// experiment overrides
	preset     string
	frictions  []float64
	forces     []float64
	steps      int
	backend    string
	worldURL   string
	integrator string
	stepSize   float64
	gui        bool
	pause      float64
	saveName   string
	record     bool
	report     bool
	theme      string

	// sweep / search
	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepCount int
	lo, hi     float64
	tol        float64
	target     float64
	candidates []float64
	trials     int
	perturb    float64
	seed       int64

	addr   string
	output string
	kind   string
	all    bool

	cfg         *config.Config
	logger      *zap.Logger
	atomicLevel zap.AtomicLevel
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "frictionlab",
		Short:         "sliding cube friction experiments",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	pf.StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	pf.BoolVar(&devLog, "dev", false, "human readable development logs")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "push the cubes and report how far they slid",
		Args:  cobra.NoArgs,
		RunE:  runExperiment,
	}
	experimentFlags(runCmd)
	runCmd.Flags().BoolVar(&gui, "gui", false, "show the live view and pause between phases")
	runCmd.Flags().Float64Var(&pause, "pause", config.DefaultPause, "seconds to pause between phases with --gui")
	runCmd.Flags().StringVar(&saveName, "save", "", "store the run under this name")
	runCmd.Flags().BoolVar(&record, "record", false, "keep the trajectory of the advance phase")
	runCmd.Flags().BoolVar(&report, "report", false, "print a styled report after the summary")
	runCmd.Flags().StringVar(&theme, "theme", "dark", "color theme")

	describeCmd := &cobra.Command{
		Use:   "describe [cube]",
		Short: "print the generated cube descriptor",
		Args:  cobra.MaximumNArgs(1),
		RunE:  describeCube,
	}
	experimentFlags(describeCmd)
	describeCmd.Flags().BoolVar(&all, "all", false, "print every cube")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "run one experiment per parameter value",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	experimentFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "friction", "friction, force, mass or duration")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 5, "last value")
	sweepCmd.Flags().IntVar(&sweepCount, "count", 6, "number of values")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted sequence of experiments",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	thresholdCmd := &cobra.Command{
		Use:   "threshold",
		Short: "find the smallest coefficient that keeps a cube still",
		Args:  cobra.NoArgs,
		RunE:  findThreshold,
	}
	experimentFlags(thresholdCmd)
	thresholdCmd.Flags().Float64Var(&lo, "lo", 0, "lower bound")
	thresholdCmd.Flags().Float64Var(&hi, "hi", 100, "upper bound")
	thresholdCmd.Flags().Float64Var(&tol, "tol", 1e-3, "tolerance")

	fitCmd := &cobra.Command{
		Use:   "fit",
		Short: "pick the coefficient whose run ends closest to a distance",
		Args:  cobra.NoArgs,
		RunE:  fitFriction,
	}
	experimentFlags(fitCmd)
	fitCmd.Flags().Float64Var(&target, "target", 1, "target displacement in meters")
	fitCmd.Flags().Float64SliceVar(&candidates, "candidates", []float64{0, 0.25, 0.5, 1, 2, 3, 4, 5}, "coefficients to try")

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "check the distance ordering under perturbed coefficients",
		Args:  cobra.NoArgs,
		RunE:  runMonteCarlo,
	}
	experimentFlags(monteCarloCmd)
	monteCarloCmd.Flags().IntVar(&trials, "trials", 20, "number of trials")
	monteCarloCmd.Flags().Float64Var(&perturb, "perturbation", 0.1, "largest change of a coefficient")
	monteCarloCmd.Flags().Int64Var(&seed, "seed", 0, "random seed, 0 picks one")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve an in-process world over websocket",
		Args:  cobra.NoArgs,
		RunE:  serveWorld,
	}
	serveCmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8765", "listen address")
	serveCmd.Flags().StringVar(&integrator, "integrator", "", "integrator of the served world")
	serveCmd.Flags().Float64Var(&stepSize, "dt", 0, "step size of the served world")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list friction presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write the default configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "frictionlab.yaml"
			if len(args) > 0 {
				path = args[0]
			}
			if err := config.Save(path, config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, describeCmd, sweepCmd, scenarioCmd, thresholdCmd, fitCmd,
		monteCarloCmd, serveCmd, presetsCmd, initCmd)
	rootCmd.AddCommand(runCommands()...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func experimentFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&preset, "preset", "", "friction preset (see presets)")
	f.Float64SliceVar(&frictions, "frictions", nil, "friction coefficient per cube")
	f.Float64SliceVar(&forces, "force", nil, "push in newtons, one value or one per cube")
	f.IntVar(&steps, "steps", experiment.DefaultSteps, "steps to advance after the push")
	f.StringVar(&backend, "backend", "sandbox", "world backend (sandbox, remote)")
	f.StringVar(&worldURL, "url", "", "websocket url of a remote world")
	f.StringVar(&integrator, "integrator", "semi_implicit", "integrator of the sandbox world")
	f.Float64Var(&stepSize, "dt", 0, "step size of the sandbox world")
}

// setup loads the configuration file, applies the global flags and builds
// the logger.
func setup(cmd *cobra.Command) error {
	cfg = config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("data") {
		cfg.Storage.DataDir = dataDir
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("dev") {
		cfg.Log.Development = devLog
	}

	var err error
	logger, atomicLevel, err = logging.New(cfg.Log.Level, cfg.Log.Development)
	return err
}

// applyExperimentFlags layers the preset and the changed flags over the
// configuration file.
func applyExperimentFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if preset != "" {
		p, ok := config.Presets[preset]
		if !ok {
			return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cfg.Apply(p)
	}
	if flags.Changed("frictions") {
		cfg.Experiment.Frictions = frictions
	}
	if flags.Changed("force") {
		cfg.Experiment.Forces = forces
	}
	if flags.Changed("steps") {
		cfg.Experiment.Steps = steps
	}
	if flags.Changed("backend") {
		cfg.World.Backend = backend
	}
	if flags.Changed("url") {
		cfg.World.URL = worldURL
		if !flags.Changed("backend") {
			cfg.World.Backend = "remote"
		}
	}
	if flags.Changed("integrator") {
		cfg.World.Integrator = integrator
	}
	if flags.Changed("dt") {
		cfg.World.StepSize = stepSize
	}
	if flags.Changed("gui") {
		cfg.GUI.Enabled = gui
	}
	if flags.Changed("pause") {
		cfg.GUI.PauseSeconds = pause
	}
	if flags.Changed("record") {
		cfg.Storage.Trajectory = record
	}
	return cfg.Validate()
}

func newRunner() *automation.Runner {
	runner := automation.NewRunner(experiment.NewRegistry(), cfg.World, logger)
	runner.Store = storage.New(cfg.Storage.DataDir)
	runner.Record = cfg.Storage.Trajectory
	return runner
}

func runExperiment(cmd *cobra.Command, args []string) error {
	if err := applyExperimentFlags(cmd); err != nil {
		return err
	}
	expCfg, err := cfg.GetExperiment()
	if err != nil {
		return err
	}
	runner := newRunner()
	ctx := cmd.Context()

	var (
		result *experiment.Result
		runID  string
	)
	if cfg.GUI.Enabled {
		logging.Quiet(atomicLevel)
		model := viz.NewModel(expCfg, cfg.World.StepSize, viz.GetTheme(theme))
		result, err = viz.RunLive(ctx, model, func(ctx context.Context, obs experiment.Observer) (*experiment.Result, error) {
			r := *runner
			r.Observers = append(append([]experiment.Observer(nil), runner.Observers...), obs)
			res, id, err := r.Run(ctx, expCfg, saveName)
			runID = id
			return res, err
		})
		if err != nil && result != nil {
			logger.Warn("live view", zap.Error(err))
			err = nil
		}
	} else {
		result, runID, err = runner.Run(ctx, expCfg, saveName)
	}
	if err != nil {
		return err
	}

	if err := viz.WriteSummary(os.Stdout, result); err != nil {
		return err
	}
	if report {
		fmt.Println()
		fmt.Println(viz.Report(result, expCfg, viz.GetTheme(theme)))
	}
	if runID != "" {
		fmt.Printf("\nrun id: %s\n", runID)
	}
	return nil
}

func describeCube(cmd *cobra.Command, args []string) error {
	if err := applyExperimentFlags(cmd); err != nil {
		return err
	}
	expCfg, err := cfg.GetExperiment()
	if err != nil {
		return err
	}

	indices := []int{0}
	switch {
	case all:
		indices = indices[:0]
		for i := range expCfg.Cubes {
			indices = append(indices, i)
		}
	case len(args) == 1:
		var i int
		if _, err := fmt.Sscan(args[0], &i); err != nil || i < 0 || i >= len(expCfg.Cubes) {
			return fmt.Errorf("cube index %q out of range [0, %d)", args[0], len(expCfg.Cubes))
		}
		indices[0] = i
	}

	for _, i := range indices {
		cube := expCfg.Cubes[i]
		robot, err := urdf.NewCube(urdf.CubeParams{
			Mass:     expCfg.Mass,
			Edge:     expCfg.Edge,
			Color:    cube.Color,
			Friction: cube.Friction,
		})
		if err != nil {
			return err
		}
		data, err := robot.Marshal()
		if err != nil {
			return err
		}
		if len(indices) > 1 {
			fmt.Printf("<!-- %s fingerprint %s -->\n", expCfg.Name(i), urdf.Fingerprint(data))
		}
		os.Stdout.Write(data)
		fmt.Println()
	}
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	if err := applyExperimentFlags(cmd); err != nil {
		return err
	}
	base, err := cfg.GetExperiment()
	if err != nil {
		return err
	}

	sweep := &automation.ParameterSweep{
		Param:    sweepParam,
		Min:      sweepMin,
		Max:      sweepMax,
		NumSteps: sweepCount,
		Base:     base,
	}
	results, err := automation.RunSweep(cmd.Context(), sweep, newRunner())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tMEAN DX\tMAX SPEED\tSTOPPED\n", sweepParam)
	for _, r := range results {
		fmt.Fprintf(w, "%.4g\t%.3f\t%.3f\t%.0f\n",
			r.ParamValue, r.Metrics["mean_displacement"], r.Metrics["max_speed"], r.Metrics["stopped"])
	}
	return w.Flush()
}

func runScenario(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("scenario: %s\n", scenario.Name)
	if scenario.Description != "" {
		fmt.Printf("  %s\n", scenario.Description)
	}

	results, err := automation.RunScenario(cmd.Context(), scenario, newRunner())
	for i, res := range results {
		fmt.Printf("\nstep %d\n", i+1)
		if werr := viz.WriteSummary(os.Stdout, res); werr != nil {
			return werr
		}
	}
	return err
}

func findThreshold(cmd *cobra.Command, args []string) error {
	if err := applyExperimentFlags(cmd); err != nil {
		return err
	}
	base, err := cfg.GetExperiment()
	if err != nil {
		return err
	}
	mu, err := automation.StickingFriction(cmd.Context(), newRunner(), base, lo, hi, tol)
	if err != nil {
		return err
	}
	fmt.Printf("sticking friction: %.4f (force %.2f N, mass %.2f kg)\n", mu, base.Cubes[0].Force, base.Mass)
	return nil
}

func fitFriction(cmd *cobra.Command, args []string) error {
	if err := applyExperimentFlags(cmd); err != nil {
		return err
	}
	base, err := cfg.GetExperiment()
	if err != nil {
		return err
	}
	mu, residual, err := automation.FitFriction(cmd.Context(), newRunner(), base, target, candidates)
	if err != nil {
		return err
	}
	fmt.Printf("best friction: %g (off by %.4f m)\n", mu, residual)
	return nil
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	if err := applyExperimentFlags(cmd); err != nil {
		return err
	}
	base, err := cfg.GetExperiment()
	if err != nil {
		return err
	}
	mc := &automation.MonteCarloConfig{
		Base:         base,
		Perturbation: perturb,
		NumTrials:    trials,
		Seed:         seed,
	}
	results, err := automation.RunMonteCarlo(cmd.Context(), mc, newRunner())
	if err != nil {
		return err
	}
	ok, violated := automation.MonteCarloStats(results)
	fmt.Printf("trials: %d  ordered: %d  violated: %d\n", len(results), ok, violated)
	return nil
}

func serveWorld(cmd *cobra.Command, args []string) error {
	opts := cfg.World
	opts.Backend = "sandbox"
	if cmd.Flags().Changed("integrator") {
		opts.Integrator = integrator
	}
	if cmd.Flags().Changed("dt") {
		opts.StepSize = stepSize
	}

	reg := experiment.NewRegistry()
	if _, err := reg.SandboxConfig(opts); err != nil {
		return err
	}

	srv := transport.NewSessionServer(func(ctx context.Context) (world.World, error) {
		return reg.OpenWorld(ctx, opts, logger)
	}, logger)
	logger.Info("serving world", zap.String("addr", addr), zap.String("path", transport.Path))
	return srv.ListenAndServe(cmd.Context(), addr)
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tFRICTIONS\tFORCES\tDESCRIPTION")
	for _, name := range config.ListPresets() {
		p := config.Presets[name]
		fmt.Fprintf(w, "%s\t%v\t%v\t%s\n", name, p.Frictions, p.Forces, p.Description)
	}
	return w.Flush()
}

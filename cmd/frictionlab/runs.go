package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/san-kum/frictionlab/internal/experiment"
	"github.com/san-kum/frictionlab/internal/export"
	"github.com/san-kum/frictionlab/internal/storage"
	"github.com/san-kum/frictionlab/internal/viz"
	"github.com/spf13/cobra"
)

// runCommands are the commands working on stored runs.
func runCommands() []*cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show the report of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
	showCmd.Flags().StringVar(&theme, "theme", "dark", "color theme")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot displacements and the recorded trajectory",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	descriptorCmd := &cobra.Command{
		Use:   "descriptor [run_id] [entity]",
		Short: "print a descriptor stored with a run",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := store().Descriptor(args[0], args[1])
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := store().Export(args[0])
			if err != nil {
				return err
			}
			return storage.ExportJSON(output, data)
		},
	}
	exportJSONCmd.Flags().StringVarP(&output, "output", "o", "-", "output file, - for stdout")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run samples to CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := store().Export(args[0])
			if err != nil {
				return err
			}
			return storage.ExportCSV(output, data)
		},
	}
	exportCSVCmd.Flags().StringVarP(&output, "output", "o", "-", "output file, - for stdout")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "draw a run as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&output, "output", "o", "", "output file, defaults to <run_id>_<kind>.svg")
	exportSVGCmd.Flags().StringVar(&kind, "kind", "samples", "samples or trajectory")

	return []*cobra.Command{listCmd, showCmd, plotCmd, descriptorCmd, exportJSONCmd, exportCSVCmd, exportSVGCmd}
}

func store() *storage.Store {
	return storage.New(cfg.Storage.DataDir)
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := store().List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tBACKEND\tINTEG\tSTEPS\tFRICTIONS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%v\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Backend,
			run.Integrator,
			run.Steps,
			run.Frictions,
		)
	}
	return w.Flush()
}

// loadResult rebuilds the parts of a result that a run keeps on disk.
func loadResult(runID string) (*storage.RunMetadata, *experiment.Result, error) {
	st := store()
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	samples, err := st.LoadSamples(runID)
	if err != nil {
		return nil, nil, err
	}
	trajectory, err := st.LoadTrajectory(runID)
	if err != nil {
		return nil, nil, err
	}
	return meta, &experiment.Result{
		Entities:   meta.Entities,
		Samples:    samples,
		Steps:      meta.Steps,
		Metrics:    meta.Metrics,
		Trajectory: trajectory,
	}, nil
}

func showRun(cmd *cobra.Command, args []string) error {
	meta, res, err := loadResult(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s (%s)\n", meta.ID, meta.Name)
	fmt.Printf("time: %s\n", meta.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Printf("world: %s / %s, dt %.4gs\n", meta.Backend, meta.Integrator, meta.StepSize)
	fmt.Printf("cubes: %.2f kg, %.2f m, pushed for %.2fs\n\n", meta.Mass, meta.Edge, meta.ForceDuration)
	fmt.Println(viz.Report(res, experiment.NewConfig(meta.Frictions, 0), viz.GetTheme(theme)))

	if len(meta.Descriptors) > 0 {
		fmt.Println("\ndescriptors:")
		for _, d := range meta.Descriptors {
			fmt.Printf("  %-10s %s\n", d.Entity, d.Fingerprint)
		}
	}
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, res, err := loadResult(args[0])
	if err != nil {
		return err
	}
	if len(res.Samples) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n\n", meta.ID)
	if chart := viz.DisplacementChart(res.Samples, 60, 10); chart != "" {
		fmt.Println(chart)
	}
	if chart := viz.TrajectoryChart(res.Trajectory, 60, 12); chart != "" {
		fmt.Println()
		fmt.Println(chart)
	} else {
		fmt.Println("\nno trajectory recorded (run with --record)")
	}

	names := make([]string, 0, len(res.Metrics))
	for name := range res.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, res.Metrics[name])
	}
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	runID := args[0]
	meta, res, err := loadResult(runID)
	if err != nil {
		return err
	}

	colors := make([]string, len(meta.Frictions))
	for i := range colors {
		colors[i] = experiment.Palette(i).Hex()
	}

	var svg string
	switch kind {
	case "samples":
		svg = export.SamplesToSVG(res.Samples, colors, 800, 400)
	case "trajectory":
		svg = export.SeriesToSVG(export.TrajectorySeries(res.Trajectory, meta.StepSize, colors), 800, 400)
	default:
		return fmt.Errorf("unknown svg kind: %s", kind)
	}
	if svg == "" {
		return errors.New("nothing to draw")
	}

	path := output
	if path == "" {
		path = fmt.Sprintf("%s_%s.svg", runID, kind)
	}
	if err := os.WriteFile(path, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

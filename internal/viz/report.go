package viz

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/frictionlab/internal/experiment"
)

// WriteSummary prints the entity list, the traveled distance and the final
// velocity of every cube as plain text.
func WriteSummary(w io.Writer, res *experiment.Result) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Models currently inserted in the world: %v\n", res.Entities)
	b.WriteString("Traveled distance (x):\n")
	for _, s := range res.Samples {
		fmt.Fprintf(&b, "Cube #%d: %.2f\n", s.Index, s.DisplacementX)
	}
	b.WriteString("\nLinear velocity(x):\n")
	for _, s := range res.Samples {
		fmt.Fprintf(&b, "Cube #%d: %.2f\n", s.Index, s.LinearVelocityX)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Report renders the samples as a styled table with a bar per cube, the
// run metrics and a displacement chart over the cubes.
func Report(res *experiment.Result, cfg experiment.Config, t Theme) string {
	st := NewStyles(t)

	maxD := 0.0
	for _, s := range res.Samples {
		maxD = math.Max(maxD, math.Abs(s.DisplacementX))
	}

	var b strings.Builder
	b.WriteString(st.Header.Render(fmt.Sprintf("FRICTION RUN  %d cubes  %d steps", len(res.Samples), res.Steps)) + "\n")
	b.WriteString(st.Label.Render(fmt.Sprintf("   %-8s %8s %10s %10s", "cube", "mu", "dx [m]", "vx [m/s]")) + "\n")
	for _, s := range res.Samples {
		color := "#ffffff"
		if s.Index < len(cfg.Cubes) {
			color = cfg.Cubes[s.Index].Color.Hex()
		}
		frac := 0.0
		if maxD > 0 {
			frac = math.Abs(s.DisplacementX) / maxD
		}
		fmt.Fprintf(&b, "%s  %-8s %8g %s %s  %s\n",
			Swatch(color), s.Entity, s.Friction,
			st.Value.Render(fmt.Sprintf("%10.2f", s.DisplacementX)),
			st.Value.Render(fmt.Sprintf("%10.2f", s.LinearVelocityX)),
			st.ProgressBar(frac, 20))
	}

	if len(res.Metrics) > 0 {
		b.WriteString("\n")
		names := make([]string, 0, len(res.Metrics))
		for name := range res.Metrics {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			b.WriteString(st.Label.Render(fmt.Sprintf("%-18s", name)) + st.Value.Render(fmt.Sprintf("%.4g", res.Metrics[name])) + "\n")
		}
	}

	if chart := DisplacementChart(res.Samples, 40, 8); chart != "" {
		b.WriteString("\n" + chart + "\n")
	}
	return st.Panel.Render(strings.TrimRight(b.String(), "\n"))
}

// DisplacementChart plots the displacement of every cube in registration
// order. It needs at least two samples.
func DisplacementChart(samples []experiment.Sample, width, height int) string {
	if len(samples) < 2 {
		return ""
	}
	data := make([]float64, len(samples))
	for i, s := range samples {
		data[i] = s.DisplacementX
	}
	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(2),
		asciigraph.Caption("displacement (x) by cube"))
}

// TrajectoryChart plots the X position of every cube over the recorded
// snapshots.
func TrajectoryChart(snaps []experiment.Snapshot, width, height int) string {
	if len(snaps) < 2 || len(snaps[0].Positions) == 0 {
		return ""
	}
	series := make([][]float64, len(snaps[0].Positions))
	for i := range series {
		series[i] = make([]float64, 0, len(snaps))
	}
	for _, s := range snaps {
		for i := range series {
			if i < len(s.Positions) {
				series[i] = append(series[i], s.Positions[i].X())
			}
		}
	}
	return asciigraph.PlotMany(series,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(2),
		asciigraph.Caption("x position over steps"))
}

package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/frictionlab/internal/experiment"
)

const (
	background = "#0a0a0a"
	foreground = "#c0c0c0"
	margin     = 40.0
)

type Point struct{ X, Y float64 }

// Series is one polyline of a chart.
type Series struct {
	Name   string
	Color  string
	Points []Point
}

// TrajectorySeries turns recorded snapshots into one X-over-time series per
// cube. colors are indexed like the cubes; missing entries fall back to
// foreground.
func TrajectorySeries(snaps []experiment.Snapshot, stepSize float64, colors []string) []Series {
	if len(snaps) == 0 {
		return nil
	}
	series := make([]Series, len(snaps[0].Entities))
	for i, name := range snaps[0].Entities {
		color := foreground
		if i < len(colors) {
			color = colors[i]
		}
		series[i] = Series{Name: name, Color: color, Points: make([]Point, 0, len(snaps))}
	}
	for _, s := range snaps {
		t := float64(s.Step) * stepSize
		for i := range series {
			if i < len(s.Positions) {
				series[i].Points = append(series[i].Points, Point{X: t, Y: s.Positions[i].X()})
			}
		}
	}
	return series
}

// SeriesToSVG draws every series into one chart with a shared scale and a
// legend in the top left corner.
func SeriesToSVG(series []Series, width, height int) string {
	minX, maxX, minY, maxY, ok := bounds(series)
	if !ok {
		return ""
	}
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.05
	rangeY *= 1.1

	w := float64(width) - 2*margin
	h := float64(height) - 2*margin

	var sb strings.Builder
	header(&sb, width, height)
	axes(&sb, width, height)

	for _, s := range series {
		if len(s.Points) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="M`, s.Color))
		for i, p := range s.Points {
			x := margin + (p.X-minX)/rangeX*w
			y := margin + h - (p.Y-minY)/rangeY*h
			if i == 0 {
				sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
			} else {
				sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
			}
		}
		sb.WriteString("\"/>\n")
	}

	for i, s := range series {
		y := margin + 14*float64(i) + 10
		sb.WriteString(fmt.Sprintf(`<rect x="%.0f" y="%.0f" width="10" height="3" fill="%s"/>`+"\n", margin+8, y-3, s.Color))
		sb.WriteString(fmt.Sprintf(`<text x="%.0f" y="%.0f" fill="%s" font-size="11" font-family="monospace">%s</text>`+"\n",
			margin+22, y+1, foreground, escape(s.Name)))
	}

	sb.WriteString(fmt.Sprintf(`<text x="%.0f" y="%d" fill="%s" font-size="11" font-family="monospace">%.3g .. %.3g</text>`+"\n",
		margin, height-12, foreground, minX, maxX))
	sb.WriteString("</svg>")
	return sb.String()
}

// SamplesToSVG draws the final X displacement of every cube as a bar labelled
// with its friction coefficient.
func SamplesToSVG(samples []experiment.Sample, colors []string, width, height int) string {
	if len(samples) == 0 {
		return ""
	}
	maxD := 0.0
	for _, s := range samples {
		maxD = math.Max(maxD, math.Abs(s.DisplacementX))
	}
	if maxD == 0 {
		maxD = 1
	}

	w := float64(width) - 2*margin
	h := float64(height) - 2*margin
	slot := w / float64(len(samples))
	barW := slot * 0.6

	var sb strings.Builder
	header(&sb, width, height)
	axes(&sb, width, height)

	for i, s := range samples {
		color := foreground
		if i < len(colors) {
			color = colors[i]
		}
		bh := math.Abs(s.DisplacementX) / maxD * h
		x := margin + float64(i)*slot + (slot-barW)/2
		y := margin + h - bh
		sb.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"/>`+"\n", x, y, barW, bh, color))
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" fill="%s" font-size="11" font-family="monospace" text-anchor="middle">%.2f</text>`+"\n",
			x+barW/2, y-4, foreground, s.DisplacementX))
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" fill="%s" font-size="11" font-family="monospace" text-anchor="middle">mu=%g</text>`+"\n",
			x+barW/2, margin+h+16, foreground, s.Friction))
	}
	sb.WriteString("</svg>")
	return sb.String()
}

func header(sb *strings.Builder, width, height int) {
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background))
}

func axes(sb *strings.Builder, width, height int) {
	x0, y0 := margin, float64(height)-margin
	sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1" d="M%.0f,%.0f L%.0f,%.0f L%.0f,%.0f"/>`+"\n",
		foreground, x0, margin, x0, y0, float64(width)-margin, y0))
}

func bounds(series []Series) (minX, maxX, minY, maxY float64, ok bool) {
	for _, s := range series {
		for _, p := range s.Points {
			if !ok {
				minX, maxX, minY, maxY, ok = p.X, p.X, p.Y, p.Y, true
				continue
			}
			minX = math.Min(minX, p.X)
			maxX = math.Max(maxX, p.X)
			minY = math.Min(minY, p.Y)
			maxY = math.Max(maxY, p.Y)
		}
	}
	return
}

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escape(s string) string { return escaper.Replace(s) }

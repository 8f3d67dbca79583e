package viz

import (
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

const blank = 0x2800

// Braille cell dot bits, indexed [row][col]. Each character holds 2x4 dots.
var dotBits = [4][2]rune{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

// Canvas is a grid of braille characters addressed in dots; a canvas of
// Width x Height characters is Width*2 x Height*4 dots.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h, Grid: make([][]rune, h)}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
		}
	}
	return c
}

// Set lights the dot at (x, y). Dots outside the canvas are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= dotBits[y%4][x%2]
}

// DrawLine lights every dot between two points (Bresenham).
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx, dy := abs(x1-x0), abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx - dy
	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 > -dy {
			e -= dy
			x0 += sx
		}
		if e2 < dx {
			e += dx
			y0 += sy
		}
	}
}

// FillRect lights every dot of the rectangle with corners (x0, y0) and (x1, y1).
func (c *Canvas) FillRect(x0, y0, x1, y1 int) {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			c.Set(x, y)
		}
	}
}

// Rows returns one string per character row.
func (c *Canvas) Rows() []string {
	rows := make([]string, len(c.Grid))
	for i, row := range c.Grid {
		rows[i] = string(row)
	}
	return rows
}

func (c *Canvas) String() string {
	return strings.Join(c.Rows(), "\n") + "\n"
}

// Frame maps a rectangle of the ground plane onto a canvas seen from above:
// +X runs right and +Y runs up.
type Frame struct {
	MinX, MaxX float64
	MinY, MaxY float64
}

// FrameOf fits the XY extent of points with pad meters on every side.
func FrameOf(points []mgl64.Vec3, pad float64) Frame {
	if len(points) == 0 {
		return Frame{-1, 1, -1, 1}
	}
	f := Frame{points[0].X(), points[0].X(), points[0].Y(), points[0].Y()}
	for _, p := range points[1:] {
		f.MinX = math.Min(f.MinX, p.X())
		f.MaxX = math.Max(f.MaxX, p.X())
		f.MinY = math.Min(f.MinY, p.Y())
		f.MaxY = math.Max(f.MaxY, p.Y())
	}
	f.MinX -= pad
	f.MaxX += pad
	f.MinY -= pad
	f.MaxY += pad
	return f
}

// Include grows the frame so it contains p.
func (f Frame) Include(p mgl64.Vec3) Frame {
	f.MinX = math.Min(f.MinX, p.X())
	f.MaxX = math.Max(f.MaxX, p.X())
	f.MinY = math.Min(f.MinY, p.Y())
	f.MaxY = math.Max(f.MaxY, p.Y())
	return f
}

func (f Frame) dot(c *Canvas, p mgl64.Vec3) (int, int) {
	w, h := float64(c.Width*2-1), float64(c.Height*4-1)
	rx, ry := f.MaxX-f.MinX, f.MaxY-f.MinY
	if rx <= 0 {
		rx = 1
	}
	if ry <= 0 {
		ry = 1
	}
	x := (p.X() - f.MinX) / rx * w
	y := h - (p.Y()-f.MinY)/ry*h
	return int(math.Round(x)), int(math.Round(y))
}

// TopView draws every cube as a small block with a trail back to where it
// started. start and now are indexed like the cubes.
func TopView(c *Canvas, f Frame, start, now []mgl64.Vec3) {
	for i, p := range now {
		x, y := f.dot(c, p)
		if i < len(start) {
			x0, y0 := f.dot(c, start[i])
			c.DrawLine(x0, y0, x, y)
		}
		c.FillRect(x-1, y-1, x+1, y+1)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

package experiment

import (
	"fmt"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/frictionlab/internal/urdf"
	"github.com/san-kum/frictionlab/internal/world"
)

const (
	DefaultPrefix        = "cube"
	DefaultSteps         = 10000
	DefaultForce         = 20.0
	DefaultForceDuration = 0.2
	DefaultChunkSize     = 100
)

// Cube is the per-entity part of the configuration.
type Cube struct {
	Color    urdf.RGBA `json:"color" yaml:"color"`
	Friction float64   `json:"friction" yaml:"friction"`
	// Force is the magnitude of the push along +X in newtons.
	Force float64 `json:"force" yaml:"force"`
}

type Config struct {
	Prefix string
	Mass   float64
	Edge   float64
	Cubes  []Cube

	ForceDuration float64
	// SettleSteps advance the world between discovery and the push.
	SettleSteps int
	Steps       int

	// Cube i starts at Origin + i*Spacing with identity orientation.
	Origin  mgl64.Vec3
	Spacing mgl64.Vec3

	Ground     string
	GroundLink string
	CubeLink   string

	// Pause is a wall-clock wait after setup, discovery and sampling so a
	// viewer can follow along. It does not change results.
	Pause time.Duration
	// ChunkSize is how many steps run between observer snapshots.
	ChunkSize int
}

// ReferenceFrictions are the coefficients of the reference scenario.
var ReferenceFrictions = []float64{0, 0.5, 1, 3, 100}

var referenceColors = []urdf.RGBA{urdf.Red, urdf.Green, urdf.Blue, urdf.Yellow, urdf.Magenta}

// Palette returns the color used for cube i.
func Palette(i int) urdf.RGBA {
	return referenceColors[i%len(referenceColors)]
}

// DefaultConfig is the reference scenario: five half-kilogram cubes one
// meter apart along Y, pushed with 20 N for 0.2 s, then 10000 steps.
func DefaultConfig() Config {
	return NewConfig(ReferenceFrictions, DefaultForce)
}

// NewConfig builds the reference layout around the given coefficients.
func NewConfig(frictions []float64, force float64) Config {
	cubes := make([]Cube, len(frictions))
	for i, mu := range frictions {
		cubes[i] = Cube{Color: Palette(i), Friction: mu, Force: force}
	}
	return Config{
		Prefix:        DefaultPrefix,
		Mass:          0.5,
		Edge:          0.5,
		Cubes:         cubes,
		ForceDuration: DefaultForceDuration,
		Steps:         DefaultSteps,
		Origin:        mgl64.Vec3{0, -2, 0.25},
		Spacing:       mgl64.Vec3{0, 1, 0},
		Ground:        world.GroundName,
		GroundLink:    world.GroundLinkName,
		CubeLink:      urdf.LinkName,
		ChunkSize:     DefaultChunkSize,
	}
}

func (c Config) Validate() error {
	switch {
	case len(c.Cubes) == 0:
		return fmt.Errorf("%w: no cubes", ErrInvalidConfig)
	case c.Prefix == "":
		return fmt.Errorf("%w: empty name prefix", ErrInvalidConfig)
	case c.Ground == "" || c.GroundLink == "" || c.CubeLink == "":
		return fmt.Errorf("%w: empty entity or link name", ErrInvalidConfig)
	case !(c.ForceDuration >= 0) || math.IsInf(c.ForceDuration, 0):
		return fmt.Errorf("%w: force duration %v", ErrInvalidConfig, c.ForceDuration)
	case c.Steps < 0 || c.SettleSteps < 0:
		return fmt.Errorf("%w: negative step count", ErrInvalidConfig)
	case c.ChunkSize < 0:
		return fmt.Errorf("%w: negative chunk size", ErrInvalidConfig)
	case c.Pause < 0:
		return fmt.Errorf("%w: negative pause", ErrInvalidConfig)
	}

	for i, cube := range c.Cubes {
		if math.IsNaN(cube.Force) || math.IsInf(cube.Force, 0) {
			return fmt.Errorf("%w: cube %d force %v", ErrInvalidConfig, i, cube.Force)
		}
		p := c.params(i)
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: cube %d: %w", ErrInvalidConfig, i, err)
		}
	}
	return nil
}

// Name is the entity name of cube i.
func (c Config) Name(i int) string {
	return fmt.Sprintf("%s_%d", c.Prefix, i)
}

// Pose is the initial pose of cube i.
func (c Config) Pose(i int) world.Pose {
	p := c.Origin.Add(c.Spacing.Mul(float64(i)))
	return world.NewPose(p.X(), p.Y(), p.Z())
}

func (c Config) Frictions() []float64 {
	out := make([]float64, len(c.Cubes))
	for i, cube := range c.Cubes {
		out[i] = cube.Friction
	}
	return out
}

func (c Config) params(i int) urdf.CubeParams {
	cube := c.Cubes[i]
	return urdf.CubeParams{
		Mass:     c.Mass,
		Edge:     c.Edge,
		Color:    cube.Color,
		Friction: cube.Friction,
	}
}

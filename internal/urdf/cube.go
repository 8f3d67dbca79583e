package urdf

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

var (
	// ErrInvalidArgument indicates physical parameters outside their domain.
	ErrInvalidArgument = errors.New("urdf: invalid argument")

	// ErrMalformed indicates a document that cannot be decoded as a descriptor.
	ErrMalformed = errors.New("urdf: malformed descriptor")
)

const (
	RobotName    = "cube_robot"
	LinkName     = "cube"
	MaterialName = "custom"
)

// CubeParams are the physical parameters of a uniform cube.
type CubeParams struct {
	Mass     float64 `json:"mass" yaml:"mass"`
	Edge     float64 `json:"edge" yaml:"edge"`
	Color    RGBA    `json:"color" yaml:"color"`
	Friction float64 `json:"friction" yaml:"friction"`
}

func (p CubeParams) Validate() error {
	if !(p.Mass > 0) || math.IsInf(p.Mass, 0) {
		return fmt.Errorf("%w: mass must be positive, got %v", ErrInvalidArgument, p.Mass)
	}
	if !(p.Edge > 0) || math.IsInf(p.Edge, 0) {
		return fmt.Errorf("%w: edge must be positive, got %v", ErrInvalidArgument, p.Edge)
	}
	if !(p.Friction >= 0) || math.IsInf(p.Friction, 0) {
		return fmt.Errorf("%w: friction must be non-negative, got %v", ErrInvalidArgument, p.Friction)
	}
	if !p.Color.Valid() {
		return fmt.Errorf("%w: color components must lie in [0,1], got %v", ErrInvalidArgument, p.Color)
	}
	return nil
}

// CubeInertia returns the principal moment of a uniform cube about its centroid.
func CubeInertia(mass, edge float64) float64 {
	return mass * edge * edge / 6
}

// NewCube builds the descriptor of a single-link cube.
func NewCube(p CubeParams) (*Robot, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	i := CubeInertia(p.Mass, p.Edge)
	box := Geometry{Box: &Box{Size: Triple{p.Edge, p.Edge, p.Edge}}}
	friction := Friction{ODE: ODEFriction{Mu: p.Friction, Mu2: p.Friction}}

	robot := &Robot{Name: RobotName}
	robot.Materials = append(robot.Materials, Material{
		Name:  MaterialName,
		Color: &Color{RGBA: p.Color},
	})
	robot.Gazebo = append(robot.Gazebo, Gazebo{
		Reference: LinkName,
		Visual:    &GazeboVisual{Material: GazeboMaterial{Diffuse: p.Color}},
		Collision: &GazeboCollision{Surface: Surface{Friction: friction}},
	})
	robot.Links = append(robot.Links, Link{
		Name: LinkName,
		Inertial: &Inertial{
			Mass:    Mass{Value: p.Mass},
			Inertia: Inertia{Ixx: i, Iyy: i, Izz: i},
		},
		Visual: &Visual{
			Geometry: box,
			Material: &Material{Name: MaterialName, Color: &Color{RGBA: p.Color}},
		},
		Collision: &Collision{
			Geometry: box,
			Surface:  &Surface{Friction: friction},
		},
	})

	return robot, nil
}

// Marshal renders the descriptor as an indented XML document.
func (r *Robot) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func Parse(data []byte) (*Robot, error) {
	var r Robot
	if err := xml.Unmarshal(data, &r); err != nil {
		if errors.Is(err, ErrMalformed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(r.Links) == 0 {
		return nil, fmt.Errorf("%w: no links", ErrMalformed)
	}
	return &r, nil
}

func (r *Robot) Link(name string) (*Link, bool) {
	for i := range r.Links {
		if r.Links[i].Name == name {
			return &r.Links[i], true
		}
	}
	return nil, false
}

// CubeParams recovers the physical parameters of the named link. The link
// must carry an inertial section and a cubic collision box.
func (r *Robot) CubeParams(link string) (CubeParams, error) {
	l, ok := r.Link(link)
	if !ok {
		return CubeParams{}, fmt.Errorf("%w: link %q not found", ErrMalformed, link)
	}
	if l.Inertial == nil {
		return CubeParams{}, fmt.Errorf("%w: link %q has no inertial", ErrMalformed, link)
	}
	size, ok := l.BoxSize()
	if !ok {
		return CubeParams{}, fmt.Errorf("%w: link %q has no box collision", ErrMalformed, link)
	}
	if size[0] != size[1] || size[1] != size[2] {
		return CubeParams{}, fmt.Errorf("%w: link %q box %v is not a cube", ErrMalformed, link, size)
	}

	p := CubeParams{
		Mass:  l.Inertial.Mass.Value,
		Edge:  size[0],
		Color: White,
	}
	if mu, ok := r.Friction(link); ok {
		p.Friction = mu
	}
	if l.Visual != nil && l.Visual.Material != nil && l.Visual.Material.Color != nil {
		p.Color = l.Visual.Material.Color.RGBA
	}
	return p, nil
}

// BoxSize reports the collision box of the link, falling back to the
// visual box when no collision geometry is declared.
func (l *Link) BoxSize() (Triple, bool) {
	if l.Collision != nil && l.Collision.Geometry.Box != nil {
		return l.Collision.Geometry.Box.Size, true
	}
	if l.Visual != nil && l.Visual.Geometry.Box != nil {
		return l.Visual.Geometry.Box.Size, true
	}
	return Triple{}, false
}

// Friction is the primary Coulomb coefficient of the named link. The link
// collision surface wins over a gazebo block referencing the link.
func (r *Robot) Friction(link string) (float64, bool) {
	if l, ok := r.Link(link); ok && l.Collision != nil && l.Collision.Surface != nil {
		return l.Collision.Surface.Friction.ODE.Mu, true
	}
	for _, g := range r.Gazebo {
		if g.Reference == link && g.Collision != nil {
			return g.Collision.Surface.Friction.ODE.Mu, true
		}
	}
	return 0, false
}

// Fingerprint identifies a serialized descriptor.
func Fingerprint(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

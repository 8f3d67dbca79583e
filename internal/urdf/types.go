package urdf

import (
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RGBA is a color with every component in [0, 1].
type RGBA [4]float64

var (
	Red     = RGBA{1, 0, 0, 1}
	Green   = RGBA{0, 1, 0, 1}
	Blue    = RGBA{0, 0, 1, 1}
	Yellow  = RGBA{1, 1, 0, 1}
	Magenta = RGBA{1, 0, 1, 1}
	White   = RGBA{1, 1, 1, 1}
)

func (c RGBA) Valid() bool {
	for _, v := range c {
		if !(v >= 0 && v <= 1) {
			return false
		}
	}
	return true
}

// Hex formats the color channels as #rrggbb, dropping alpha.
func (c RGBA) Hex() string {
	ch := func(v float64) int {
		return int(math.Round(math.Max(0, math.Min(1, v)) * 255))
	}
	return fmt.Sprintf("#%02x%02x%02x", ch(c[0]), ch(c[1]), ch(c[2]))
}

func (c RGBA) MarshalText() ([]byte, error) {
	return formatFloats(c[:]), nil
}

func (c *RGBA) UnmarshalText(text []byte) error {
	return parseFloats(text, c[:])
}

// Triple is a space separated 3-vector attribute such as xyz, rpy or size.
type Triple [3]float64

func (t Triple) MarshalText() ([]byte, error) {
	return formatFloats(t[:]), nil
}

func (t *Triple) UnmarshalText(text []byte) error {
	return parseFloats(text, t[:])
}

func formatFloats(vals []float64) []byte {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return []byte(strings.Join(parts, " "))
}

func parseFloats(text []byte, dst []float64) error {
	fields := strings.Fields(string(text))
	if len(fields) != len(dst) {
		return fmt.Errorf("%w: expected %d values, got %q", ErrMalformed, len(dst), text)
	}
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		dst[i] = v
	}
	return nil
}

type Robot struct {
	XMLName   xml.Name   `xml:"robot"`
	Name      string     `xml:"name,attr"`
	Materials []Material `xml:"material"`
	Gazebo    []Gazebo   `xml:"gazebo"`
	Links     []Link     `xml:"link"`
}

type Material struct {
	Name  string `xml:"name,attr,omitempty"`
	Color *Color `xml:"color,omitempty"`
}

type Color struct {
	RGBA RGBA `xml:"rgba,attr"`
}

// Gazebo holds simulator specific extensions for the link named by Reference.
type Gazebo struct {
	Reference string           `xml:"reference,attr"`
	Visual    *GazeboVisual    `xml:"visual,omitempty"`
	Collision *GazeboCollision `xml:"collision,omitempty"`
}

type GazeboVisual struct {
	Material GazeboMaterial `xml:"material"`
}

type GazeboMaterial struct {
	Diffuse RGBA `xml:"diffuse"`
}

type GazeboCollision struct {
	Surface Surface `xml:"surface"`
}

type Surface struct {
	Friction Friction `xml:"friction"`
}

type Friction struct {
	ODE ODEFriction `xml:"ode"`
}

// ODEFriction carries the Coulomb coefficients of the two friction
// directions of a contact surface.
type ODEFriction struct {
	Mu  float64 `xml:"mu"`
	Mu2 float64 `xml:"mu2"`
}

type Link struct {
	Name      string     `xml:"name,attr"`
	Inertial  *Inertial  `xml:"inertial,omitempty"`
	Visual    *Visual    `xml:"visual,omitempty"`
	Collision *Collision `xml:"collision,omitempty"`
}

type Inertial struct {
	Origin  Origin  `xml:"origin"`
	Mass    Mass    `xml:"mass"`
	Inertia Inertia `xml:"inertia"`
}

type Origin struct {
	RPY Triple `xml:"rpy,attr"`
	XYZ Triple `xml:"xyz,attr"`
}

type Mass struct {
	Value float64 `xml:"value,attr"`
}

// Inertia is the symmetric inertia tensor of a link about its origin.
type Inertia struct {
	Ixx float64 `xml:"ixx,attr"`
	Ixy float64 `xml:"ixy,attr"`
	Ixz float64 `xml:"ixz,attr"`
	Iyy float64 `xml:"iyy,attr"`
	Iyz float64 `xml:"iyz,attr"`
	Izz float64 `xml:"izz,attr"`
}

type Geometry struct {
	Box *Box `xml:"box,omitempty"`
}

type Box struct {
	Size Triple `xml:"size,attr"`
}

type Visual struct {
	Geometry Geometry  `xml:"geometry"`
	Origin   Origin    `xml:"origin"`
	Material *Material `xml:"material,omitempty"`
}

type Collision struct {
	Geometry Geometry `xml:"geometry"`
	Origin   Origin   `xml:"origin"`
	Surface  *Surface `xml:"surface,omitempty"`
}

package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const contactSlop = 1e-6

// Constraint corrects a body after its unconstrained velocity update.
type Constraint interface {
	ResolveVelocity(b *Body, dt float64)
	ProjectPosition(b *Body)
}

// Integrator advances a body by one step of size dt under acceleration a.
type Integrator interface {
	Name() string
	Step(b *Body, a mgl64.Vec3, dt float64, c Constraint)
}

// Plane is a horizontal ground at Height.
type Plane struct {
	Height   float64
	Friction float64
}

func NewPlane(friction float64) Plane {
	return Plane{Friction: friction}
}

func (p Plane) InContact(b *Body) bool {
	return b.Bottom() <= p.Height+contactSlop
}

// ResolveVelocity applies the normal impulse that stops a body approaching
// the plane and the Coulomb friction impulse bounded by mu times it.
func (p Plane) ResolveVelocity(b *Body, dt float64) {
	if b.Static || !p.InContact(b) {
		return
	}
	vn := b.Velocity.Z()
	if vn >= 0 {
		return
	}

	// Normal impulse per unit mass.
	jn := -vn
	mu := math.Min(b.Friction, p.Friction)
	limit := mu * jn

	tangent := mgl64.Vec3{b.Velocity.X(), b.Velocity.Y(), 0}
	speed := tangent.Len()
	if speed <= limit {
		tangent = mgl64.Vec3{}
	} else {
		tangent = tangent.Mul(1 - limit/speed)
	}
	b.Velocity = tangent
}

// ProjectPosition removes any penetration left by the position update.
func (p Plane) ProjectPosition(b *Body) {
	if b.Static {
		return
	}
	if depth := p.Height - b.Bottom(); depth > 0 {
		b.Position = b.Position.Add(mgl64.Vec3{0, 0, depth})
	}
}

package integrators

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/frictionlab/internal/physics"
)

// Euler is the explicit scheme: the position moves with the velocity held
// at the start of the step.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Name() string { return "euler" }

func (e *Euler) Step(b *physics.Body, a mgl64.Vec3, dt float64, c physics.Constraint) {
	v0 := b.Velocity
	b.Velocity = b.Velocity.Add(a.Mul(dt))
	if c != nil {
		c.ResolveVelocity(b, dt)
	}
	b.Position = b.Position.Add(v0.Mul(dt))
	if c != nil {
		c.ProjectPosition(b)
	}
}

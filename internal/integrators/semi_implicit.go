package integrators

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/frictionlab/internal/physics"
)

// SemiImplicit is symplectic Euler: velocity first, constraint impulses,
// then the position with the corrected velocity. This is the ordering used
// by impulse based contact solvers.
type SemiImplicit struct{}

func NewSemiImplicit() *SemiImplicit {
	return &SemiImplicit{}
}

func (s *SemiImplicit) Name() string { return "semi_implicit" }

func (s *SemiImplicit) Step(b *physics.Body, a mgl64.Vec3, dt float64, c physics.Constraint) {
	b.Velocity = b.Velocity.Add(a.Mul(dt))
	if c != nil {
		c.ResolveVelocity(b, dt)
	}
	b.Position = b.Position.Add(b.Velocity.Mul(dt))
	if c != nil {
		c.ProjectPosition(b)
	}
}

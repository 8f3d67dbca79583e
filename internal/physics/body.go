package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	StandardGravity = 9.81

	// DefaultStepSize matches the 1 kHz update rate of common rigid body engines.
	DefaultStepSize = 0.001

	// DefaultFriction is used for surfaces that declare no coefficient.
	DefaultFriction = 1.0
)

type appliedForce struct {
	force     mgl64.Vec3
	remaining int
}

// Body is a rigid box. Position is the center of the box in the world frame.
type Body struct {
	Name        string
	Mass        float64
	Inertia     mgl64.Vec3
	Size        mgl64.Vec3
	Friction    float64
	Static      bool
	Position    mgl64.Vec3
	Orientation mgl64.Quat
	Velocity    mgl64.Vec3

	forces []appliedForce
}

func NewBody(name string, mass float64, size mgl64.Vec3) (*Body, error) {
	if !(mass > 0) || !(size.X() > 0 && size.Y() > 0 && size.Z() > 0) {
		return nil, ErrInvalidBody
	}
	return &Body{
		Name:        name,
		Mass:        mass,
		Size:        size,
		Friction:    DefaultFriction,
		Orientation: mgl64.QuatIdent(),
	}, nil
}

// NewStatic returns an immovable body used as a fixed reference.
func NewStatic(name string) *Body {
	return &Body{
		Name:        name,
		Static:      true,
		Friction:    DefaultFriction,
		Orientation: mgl64.QuatIdent(),
	}
}

// StepsFor converts a duration in seconds to a whole number of steps,
// rounding up so that short pulses are never dropped.
func StepsFor(duration, dt float64) int {
	if duration <= 0 || dt <= 0 {
		return 0
	}
	return int(math.Ceil(duration/dt - 1e-9))
}

// ApplyForce schedules a world-frame force for the next steps updates.
// Static bodies ignore forces.
func (b *Body) ApplyForce(f mgl64.Vec3, steps int) {
	if b.Static || steps <= 0 {
		return
	}
	b.forces = append(b.forces, appliedForce{force: f, remaining: steps})
}

// NetForce is the sum of the currently active applied forces.
func (b *Body) NetForce() mgl64.Vec3 {
	var sum mgl64.Vec3
	for _, f := range b.forces {
		sum = sum.Add(f.force)
	}
	return sum
}

// ActiveForces reports how many scheduled forces are still acting.
func (b *Body) ActiveForces() int {
	return len(b.forces)
}

// ConsumeForces ages the force schedule by one step.
func (b *Body) ConsumeForces() {
	kept := b.forces[:0]
	for _, f := range b.forces {
		f.remaining--
		if f.remaining > 0 {
			kept = append(kept, f)
		}
	}
	b.forces = kept
}

// Acceleration combines gravity with the active applied forces.
func (b *Body) Acceleration(gravity mgl64.Vec3) mgl64.Vec3 {
	if b.Static {
		return mgl64.Vec3{}
	}
	return gravity.Add(b.NetForce().Mul(1 / b.Mass))
}

// Bottom is the height of the lowest face, ignoring orientation.
func (b *Body) Bottom() float64 {
	return b.Position.Z() - b.Size.Z()/2
}

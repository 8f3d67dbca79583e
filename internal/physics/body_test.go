package physics

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestNewBodyValidation(t *testing.T) {
	tests := []struct {
		name string
		mass float64
		size mgl64.Vec3
		ok   bool
	}{
		{"cube", 0.5, mgl64.Vec3{0.5, 0.5, 0.5}, true},
		{"zero mass", 0, mgl64.Vec3{1, 1, 1}, false},
		{"negative mass", -1, mgl64.Vec3{1, 1, 1}, false},
		{"flat box", 1, mgl64.Vec3{1, 1, 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBody("b", tt.mass, tt.size)
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidBody) {
				t.Fatalf("expected ErrInvalidBody, got %v", err)
			}
		})
	}
}

func TestStepsFor(t *testing.T) {
	tests := []struct {
		duration, dt float64
		expected     int
	}{
		{0.2, 0.001, 200},
		{0.0005, 0.001, 1},
		{0.001, 0.001, 1},
		{1, 0.01, 100},
		{0, 0.001, 0},
		{0.2, 0, 0},
	}

	for _, tt := range tests {
		if got := StepsFor(tt.duration, tt.dt); got != tt.expected {
			t.Errorf("StepsFor(%v, %v) = %d, want %d", tt.duration, tt.dt, got, tt.expected)
		}
	}
}

func TestForceSchedule(t *testing.T) {
	b, err := NewBody("b", 2, mgl64.Vec3{1, 1, 1})
	if err != nil {
		t.Fatal(err)
	}

	b.ApplyForce(mgl64.Vec3{10, 0, 0}, 2)
	b.ApplyForce(mgl64.Vec3{0, 4, 0}, 1)

	if got := b.NetForce(); got != (mgl64.Vec3{10, 4, 0}) {
		t.Errorf("net force = %v", got)
	}

	acc := b.Acceleration(mgl64.Vec3{0, 0, -StandardGravity})
	if !acc.ApproxEqual(mgl64.Vec3{5, 2, -StandardGravity}) {
		t.Errorf("acceleration = %v", acc)
	}

	b.ConsumeForces()
	if b.ActiveForces() != 1 || b.NetForce() != (mgl64.Vec3{10, 0, 0}) {
		t.Errorf("after one step: %d forces, net %v", b.ActiveForces(), b.NetForce())
	}

	b.ConsumeForces()
	if b.ActiveForces() != 0 {
		t.Errorf("expected schedule to drain, %d forces left", b.ActiveForces())
	}
}

func TestStaticBodyIgnoresForces(t *testing.T) {
	g := NewStatic("ground")
	g.ApplyForce(mgl64.Vec3{100, 0, 0}, 10)

	if g.ActiveForces() != 0 {
		t.Error("static body accepted a force")
	}
	if g.Acceleration(mgl64.Vec3{0, 0, -StandardGravity}) != (mgl64.Vec3{}) {
		t.Error("static body must not accelerate")
	}
}

func restingCube(mu float64, v mgl64.Vec3) *Body {
	b, _ := NewBody("cube", 0.5, mgl64.Vec3{0.5, 0.5, 0.5})
	b.Position = mgl64.Vec3{0, 0, 0.25}
	b.Friction = mu
	b.Velocity = v
	return b
}

func TestPlaneSticks(t *testing.T) {
	p := NewPlane(100)
	dt := 0.001
	b := restingCube(1, mgl64.Vec3{0.005, 0, -StandardGravity * dt})

	p.ResolveVelocity(b, dt)

	if b.Velocity != (mgl64.Vec3{}) {
		t.Errorf("expected cube to stick, velocity %v", b.Velocity)
	}
}

func TestPlaneSlides(t *testing.T) {
	p := NewPlane(100)
	dt := 0.001
	b := restingCube(0.5, mgl64.Vec3{2, 0, -StandardGravity * dt})

	p.ResolveVelocity(b, dt)

	want := 2 - 0.5*StandardGravity*dt
	if math.Abs(b.Velocity.X()-want) > 1e-12 {
		t.Errorf("vx = %v, want %v", b.Velocity.X(), want)
	}
	if b.Velocity.Z() != 0 {
		t.Errorf("normal velocity must be cancelled, got %v", b.Velocity.Z())
	}
}

func TestPlaneUsesSmallerCoefficient(t *testing.T) {
	p := NewPlane(0.1)
	dt := 0.001
	b := restingCube(100, mgl64.Vec3{2, 0, -StandardGravity * dt})

	p.ResolveVelocity(b, dt)

	want := 2 - 0.1*StandardGravity*dt
	if math.Abs(b.Velocity.X()-want) > 1e-12 {
		t.Errorf("vx = %v, want %v", b.Velocity.X(), want)
	}
}

func TestPlaneIgnoresAirborneBodies(t *testing.T) {
	p := NewPlane(100)
	b := restingCube(1, mgl64.Vec3{1, 0, -1})
	b.Position = mgl64.Vec3{0, 0, 2}

	p.ResolveVelocity(b, 0.001)

	if b.Velocity != (mgl64.Vec3{1, 0, -1}) {
		t.Errorf("airborne velocity changed to %v", b.Velocity)
	}
}

func TestPlaneProjectsPenetration(t *testing.T) {
	p := NewPlane(100)
	b := restingCube(1, mgl64.Vec3{})
	b.Position = mgl64.Vec3{0, 0, 0.2}

	p.ProjectPosition(b)

	if math.Abs(b.Position.Z()-0.25) > 1e-12 {
		t.Errorf("z = %v, want 0.25", b.Position.Z())
	}
}

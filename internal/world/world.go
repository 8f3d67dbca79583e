package world

import (
	"context"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	GroundName     = "ground_plane"
	GroundLinkName = "link"
)

// Pose places an entity in the world frame.
type Pose struct {
	Position    mgl64.Vec3
	Orientation mgl64.Quat
}

// NewPose returns a pose at (x, y, z) with identity orientation.
func NewPose(x, y, z float64) Pose {
	return Pose{Position: mgl64.Vec3{x, y, z}, Orientation: mgl64.QuatIdent()}
}

// World is a simulated world addressed by entity name.
type World interface {
	// RegisterEntity instantiates the descriptor stored at path under name.
	RegisterEntity(ctx context.Context, path string, pose Pose, name string) error
	// EntityNames lists entities in registration order.
	EntityNames(ctx context.Context) ([]string, error)
	Entity(ctx context.Context, name string) (Entity, error)
	// Advance steps the simulation clock. It blocks until every step ran.
	Advance(ctx context.Context, steps int) error
	Close() error
}

// DescriptorRegistrar is implemented by worlds that accept descriptor
// content directly instead of a file path.
type DescriptorRegistrar interface {
	RegisterDescriptor(ctx context.Context, data []byte, pose Pose, name string) error
}

type Entity interface {
	Name() string
	LinkNames(ctx context.Context) ([]string, error)
	Link(ctx context.Context, name string) (Link, error)
}

type Link interface {
	Name() string
	// ApplyWorldForce applies f, expressed in the world frame, for duration seconds.
	ApplyWorldForce(ctx context.Context, f mgl64.Vec3, duration float64) error
	Position(ctx context.Context) (mgl64.Vec3, error)
	LinearVelocity(ctx context.Context) (mgl64.Vec3, error)
}

package world

import (
	"context"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/frictionlab/internal/integrators"
	"github.com/san-kum/frictionlab/internal/physics"
	"github.com/san-kum/frictionlab/internal/urdf"
	"go.uber.org/zap"
)

type SandboxConfig struct {
	StepSize       float64
	Gravity        mgl64.Vec3
	GroundFriction float64
	Integrator     physics.Integrator
}

func DefaultSandboxConfig() SandboxConfig {
	return SandboxConfig{
		StepSize:       physics.DefaultStepSize,
		Gravity:        mgl64.Vec3{0, 0, -physics.StandardGravity},
		GroundFriction: 100,
		Integrator:     integrators.NewSemiImplicit(),
	}
}

type sandboxEntity struct {
	name  string
	links []*physics.Body
}

func (e *sandboxEntity) link(name string) (*physics.Body, bool) {
	for _, b := range e.links {
		if b.Name == name {
			return b, true
		}
	}
	return nil, false
}

// Sandbox is an in-process world of box bodies resting on a ground plane.
// It is safe for concurrent use.
type Sandbox struct {
	mu       sync.Mutex
	cfg      SandboxConfig
	ground   physics.Plane
	entities map[string]*sandboxEntity
	order    []string
	steps    int
	closed   bool
	log      *zap.Logger
}

var (
	_ World               = (*Sandbox)(nil)
	_ DescriptorRegistrar = (*Sandbox)(nil)
)

// NewSandbox returns a world containing only the ground plane. A nil
// integrator or unset step size takes the default.
func NewSandbox(cfg SandboxConfig, log *zap.Logger) *Sandbox {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Integrator == nil {
		cfg.Integrator = integrators.NewSemiImplicit()
	}
	if cfg.StepSize <= 0 {
		cfg.StepSize = physics.DefaultStepSize
	}

	s := &Sandbox{
		cfg:      cfg,
		ground:   physics.NewPlane(cfg.GroundFriction),
		entities: make(map[string]*sandboxEntity),
		log:      log.Named("sandbox"),
	}
	ground := physics.NewStatic(GroundLinkName)
	ground.Friction = cfg.GroundFriction
	s.entities[GroundName] = &sandboxEntity{name: GroundName, links: []*physics.Body{ground}}
	s.order = append(s.order, GroundName)
	return s
}

func (s *Sandbox) RegisterEntity(ctx context.Context, path string, pose Pose, name string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return s.RegisterDescriptor(ctx, data, pose, name)
}

func (s *Sandbox) RegisterDescriptor(_ context.Context, data []byte, pose Pose, name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty entity name", ErrInvalidArgument)
	}

	robot, err := urdf.Parse(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	links, err := s.instantiate(robot, pose)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if _, ok := s.entities[name]; ok {
		return fmt.Errorf("%w: %s", ErrRegistrationConflict, name)
	}
	s.entities[name] = &sandboxEntity{name: name, links: links}
	s.order = append(s.order, name)

	s.log.Debug("entity registered",
		zap.String("entity", name),
		zap.Int("links", len(links)),
		zap.Float64("x", pose.Position.X()),
		zap.Float64("y", pose.Position.Y()),
		zap.Float64("z", pose.Position.Z()))
	return nil
}

func (s *Sandbox) instantiate(robot *urdf.Robot, pose Pose) ([]*physics.Body, error) {
	orientation := pose.Orientation
	if orientation.Len() == 0 {
		orientation = mgl64.QuatIdent()
	}

	links := make([]*physics.Body, 0, len(robot.Links))
	for i := range robot.Links {
		l := &robot.Links[i]
		if l.Inertial == nil {
			return nil, fmt.Errorf("%w: link %q has no inertial", ErrMalformed, l.Name)
		}
		size, ok := l.BoxSize()
		if !ok {
			return nil, fmt.Errorf("%w: link %q has no box geometry", ErrMalformed, l.Name)
		}

		b, err := physics.NewBody(l.Name, l.Inertial.Mass.Value, mgl64.Vec3(size))
		if err != nil {
			return nil, fmt.Errorf("%w: link %q: %v", ErrMalformed, l.Name, err)
		}
		in := l.Inertial.Inertia
		b.Inertia = mgl64.Vec3{in.Ixx, in.Iyy, in.Izz}
		if mu, ok := robot.Friction(l.Name); ok {
			b.Friction = mu
		}
		offset := mgl64.Vec3(l.Inertial.Origin.XYZ)
		b.Position = pose.Position.Add(orientation.Rotate(offset))
		b.Orientation = orientation
		links = append(links, b)
	}
	return links, nil
}

func (s *Sandbox) EntityNames(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	names := make([]string, len(s.order))
	copy(names, s.order)
	return names, nil
}

func (s *Sandbox) Entity(_ context.Context, name string) (Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	e, ok := s.entities[name]
	if !ok {
		return nil, fmt.Errorf("%w: entity %q", ErrNotFound, name)
	}
	return &entityHandle{world: s, entity: e}, nil
}

// Advance runs steps updates. It does not observe ctx: once started, the
// requested steps always complete.
func (s *Sandbox) Advance(_ context.Context, steps int) error {
	if steps < 0 {
		return fmt.Errorf("%w: negative step count %d", ErrInvalidArgument, steps)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	dt := s.cfg.StepSize
	for i := 0; i < steps; i++ {
		for _, name := range s.order {
			for _, b := range s.entities[name].links {
				if b.Static {
					continue
				}
				s.cfg.Integrator.Step(b, b.Acceleration(s.cfg.Gravity), dt, s.ground)
				b.ConsumeForces()
			}
		}
	}
	s.steps += steps
	return nil
}

// Time is the simulated time elapsed since the world was created.
func (s *Sandbox) Time() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float64(s.steps) * s.cfg.StepSize
}

func (s *Sandbox) StepSize() float64 {
	return s.cfg.StepSize
}

func (s *Sandbox) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.log.Debug("sandbox closed", zap.Int("steps", s.steps))
	return nil
}

type entityHandle struct {
	world  *Sandbox
	entity *sandboxEntity
}

func (h *entityHandle) Name() string { return h.entity.name }

func (h *entityHandle) LinkNames(_ context.Context) ([]string, error) {
	h.world.mu.Lock()
	defer h.world.mu.Unlock()

	names := make([]string, len(h.entity.links))
	for i, b := range h.entity.links {
		names[i] = b.Name
	}
	return names, nil
}

func (h *entityHandle) Link(_ context.Context, name string) (Link, error) {
	h.world.mu.Lock()
	defer h.world.mu.Unlock()

	b, ok := h.entity.link(name)
	if !ok {
		return nil, fmt.Errorf("%w: link %q of entity %q", ErrNotFound, name, h.entity.name)
	}
	return &linkHandle{world: h.world, body: b}, nil
}

type linkHandle struct {
	world *Sandbox
	body  *physics.Body
}

func (h *linkHandle) Name() string { return h.body.Name }

func (h *linkHandle) ApplyWorldForce(_ context.Context, f mgl64.Vec3, duration float64) error {
	if !(duration >= 0) || math.IsInf(duration, 0) {
		return fmt.Errorf("%w: force duration %v", ErrInvalidArgument, duration)
	}
	if !finite(f) {
		return fmt.Errorf("%w: force %v", ErrInvalidArgument, f)
	}

	h.world.mu.Lock()
	defer h.world.mu.Unlock()

	if h.world.closed {
		return ErrClosed
	}
	h.body.ApplyForce(f, physics.StepsFor(duration, h.world.cfg.StepSize))
	return nil
}

func (h *linkHandle) Position(_ context.Context) (mgl64.Vec3, error) {
	h.world.mu.Lock()
	defer h.world.mu.Unlock()

	if h.world.closed {
		return mgl64.Vec3{}, ErrClosed
	}
	return h.body.Position, nil
}

func (h *linkHandle) LinearVelocity(_ context.Context) (mgl64.Vec3, error) {
	h.world.mu.Lock()
	defer h.world.mu.Unlock()

	if h.world.closed {
		return mgl64.Vec3{}, ErrClosed
	}
	return h.body.Velocity, nil
}

func finite(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

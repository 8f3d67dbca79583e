package experiment

import (
	"context"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/frictionlab/internal/urdf"
	"github.com/san-kum/frictionlab/internal/world"
	"go.uber.org/zap"
)

// Sample is the final state of one cube. Samples are ordered as the cubes
// were registered.
type Sample struct {
	Index           int     `json:"index"`
	Entity          string  `json:"entity"`
	Friction        float64 `json:"friction"`
	InitialX        float64 `json:"initial_x"`
	PositionX       float64 `json:"position_x"`
	LinearVelocityX float64 `json:"linear_velocity_x"`
	DisplacementX   float64 `json:"displacement_x"`
}

// Descriptor is a generated cube document as handed to the world.
type Descriptor struct {
	Entity      string `json:"entity"`
	Path        string `json:"path"`
	Fingerprint string `json:"fingerprint"`
	Data        []byte `json:"-"`
}

type Result struct {
	// Entities is the world's entity list as seen during discovery.
	Entities    []string           `json:"entities"`
	Samples     []Sample           `json:"samples"`
	Descriptors []Descriptor       `json:"descriptors"`
	Steps       int                `json:"steps"`
	Metrics     map[string]float64 `json:"metrics"`
	Trajectory  []Snapshot         `json:"-"`
}

// Driver runs the experiment phases against the world of one session.
// It is not safe for concurrent use.
type Driver struct {
	session *world.Session
	world   world.World
	cfg     Config
	log     *zap.Logger

	next   Phase
	failed error

	observers []Observer
	metrics   []Metric
	recorder  *Recorder

	descriptors []Descriptor
	entities    []string
	ground      world.Link
	links       []world.Link
	initial     []mgl64.Vec3
	steps       int
	samples     []Sample
}

func New(session *world.Session, cfg Config, log *zap.Logger) (*Driver, error) {
	if session == nil {
		return nil, fmt.Errorf("%w: nil session", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{
		session: session,
		world:   session.World(),
		cfg:     cfg,
		log:     log.Named("driver"),
	}, nil
}

func (d *Driver) AddObserver(o Observer) { d.observers = append(d.observers, o) }
func (d *Driver) AddMetric(m Metric)     { d.metrics = append(d.metrics, m) }

// Record keeps the advance snapshots in the result trajectory.
func (d *Driver) Record() {
	if d.recorder == nil {
		d.recorder = NewRecorder()
		d.AddObserver(d.recorder)
	}
}

// Next is the phase the driver expects to run next.
func (d *Driver) Next() Phase { return d.next }

func (d *Driver) Config() Config { return d.cfg }

func (d *Driver) begin(p Phase) error {
	if d.failed != nil {
		return &PhaseError{Phase: p, Err: fmt.Errorf("%w: %v", ErrAborted, d.failed)}
	}
	if p != d.next {
		return &PhaseError{Phase: p, Err: fmt.Errorf("%w: next is %s", ErrPhaseOrder, d.next)}
	}
	for _, o := range d.observers {
		o.OnPhase(p)
	}
	d.log.Debug("phase started", zap.Stringer("phase", p))
	return nil
}

func (d *Driver) end(p Phase, entity string, err error) error {
	if err != nil {
		perr := &PhaseError{Phase: p, Entity: entity, Err: err}
		d.failed = perr
		d.log.Error("phase failed", zap.Stringer("phase", p), zap.String("entity", entity), zap.Error(err))
		return perr
	}
	d.next = p + 1
	if d.next == PhaseDone {
		for _, o := range d.observers {
			o.OnPhase(PhaseDone)
		}
	}
	return nil
}

// Setup generates one descriptor per cube, writes it into the session
// directory and registers it with the world.
func (d *Driver) Setup(ctx context.Context) error {
	if err := d.begin(PhaseSetup); err != nil {
		return err
	}
	for i := range d.cfg.Cubes {
		name := d.cfg.Name(i)
		if err := d.register(ctx, i, name); err != nil {
			return d.end(PhaseSetup, name, err)
		}
	}
	d.log.Info("cubes registered", zap.Int("count", len(d.cfg.Cubes)))
	return d.end(PhaseSetup, "", nil)
}

func (d *Driver) register(ctx context.Context, i int, name string) error {
	robot, err := urdf.NewCube(d.cfg.params(i))
	if err != nil {
		return err
	}
	data, err := robot.Marshal()
	if err != nil {
		return err
	}
	path, err := d.session.WriteDescriptor(name, data)
	if err != nil {
		return err
	}
	pose := d.cfg.Pose(i)
	if err := d.world.RegisterEntity(ctx, path, pose, name); err != nil {
		return err
	}

	d.descriptors = append(d.descriptors, Descriptor{
		Entity:      name,
		Path:        path,
		Fingerprint: urdf.Fingerprint(data),
		Data:        data,
	})
	d.log.Debug("cube registered",
		zap.String("entity", name),
		zap.Float64("friction", d.cfg.Cubes[i].Friction),
		zap.Float64("y", pose.Position.Y()))
	return nil
}

// Discover resolves the ground link and every cube link by name and records
// where each cube starts.
func (d *Driver) Discover(ctx context.Context) error {
	if err := d.begin(PhaseDiscovery); err != nil {
		return err
	}
	d.sleep(ctx)

	names, err := d.world.EntityNames(ctx)
	if err != nil {
		return d.end(PhaseDiscovery, "", err)
	}
	d.entities = names
	d.log.Info("models currently inserted in the world", zap.Strings("entities", names))

	d.ground, err = d.resolve(ctx, d.cfg.Ground, d.cfg.GroundLink)
	if err != nil {
		return d.end(PhaseDiscovery, d.cfg.Ground, err)
	}

	d.links = make([]world.Link, len(d.cfg.Cubes))
	d.initial = make([]mgl64.Vec3, len(d.cfg.Cubes))
	for i := range d.cfg.Cubes {
		name := d.cfg.Name(i)
		if d.links[i], err = d.resolve(ctx, name, d.cfg.CubeLink); err != nil {
			return d.end(PhaseDiscovery, name, err)
		}
		if d.initial[i], err = d.links[i].Position(ctx); err != nil {
			return d.end(PhaseDiscovery, name, err)
		}
	}
	return d.end(PhaseDiscovery, "", nil)
}

func (d *Driver) resolve(ctx context.Context, entity, link string) (world.Link, error) {
	e, err := d.world.Entity(ctx, entity)
	if err != nil {
		return nil, err
	}
	return e.Link(ctx, link)
}

// Excite pushes every cube along +X for the configured duration, after the
// optional settle steps.
func (d *Driver) Excite(ctx context.Context) error {
	if err := d.begin(PhaseExcitation); err != nil {
		return err
	}
	d.sleep(ctx)

	if d.cfg.SettleSteps > 0 {
		if err := d.world.Advance(ctx, d.cfg.SettleSteps); err != nil {
			return d.end(PhaseExcitation, "", err)
		}
		d.steps += d.cfg.SettleSteps
	}

	for i, l := range d.links {
		f := mgl64.Vec3{d.cfg.Cubes[i].Force, 0, 0}
		if err := l.ApplyWorldForce(ctx, f, d.cfg.ForceDuration); err != nil {
			return d.end(PhaseExcitation, d.cfg.Name(i), err)
		}
	}
	return d.end(PhaseExcitation, "", nil)
}

// Advance steps the world clock. With observers attached the steps are
// split into chunks and a snapshot is taken between chunks; the total
// stays the same.
func (d *Driver) Advance(ctx context.Context) error {
	if err := d.begin(PhaseAdvance); err != nil {
		return err
	}
	start := time.Now()

	if len(d.observers) == 0 || d.cfg.ChunkSize == 0 {
		if err := d.world.Advance(ctx, d.cfg.Steps); err != nil {
			return d.end(PhaseAdvance, "", err)
		}
		d.steps += d.cfg.Steps
	} else if err := d.advanceObserved(ctx); err != nil {
		return d.end(PhaseAdvance, "", err)
	}

	d.log.Info("world advanced",
		zap.Int("steps", d.cfg.Steps),
		zap.Duration("elapsed", time.Since(start)))
	return d.end(PhaseAdvance, "", nil)
}

func (d *Driver) advanceObserved(ctx context.Context) error {
	if err := d.snapshot(ctx, 0); err != nil {
		return err
	}
	for done := 0; done < d.cfg.Steps; {
		n := min(d.cfg.ChunkSize, d.cfg.Steps-done)
		if err := d.world.Advance(ctx, n); err != nil {
			return err
		}
		done += n
		d.steps += n
		if err := d.snapshot(ctx, done); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) snapshot(ctx context.Context, step int) error {
	s := Snapshot{
		Step:       step,
		Entities:   make([]string, len(d.links)),
		Positions:  make([]mgl64.Vec3, len(d.links)),
		Velocities: make([]mgl64.Vec3, len(d.links)),
	}
	for i, l := range d.links {
		var err error
		s.Entities[i] = d.cfg.Name(i)
		if s.Positions[i], err = l.Position(ctx); err != nil {
			return err
		}
		if s.Velocities[i], err = l.LinearVelocity(ctx); err != nil {
			return err
		}
	}
	for _, o := range d.observers {
		o.OnSnapshot(s)
	}
	return nil
}

// Sample reads the final X position and X velocity of every cube in
// registration order.
func (d *Driver) Sample(ctx context.Context) error {
	if err := d.begin(PhaseSampling); err != nil {
		return err
	}

	samples := make([]Sample, 0, len(d.links))
	for i, l := range d.links {
		name := d.cfg.Name(i)
		pos, err := l.Position(ctx)
		if err != nil {
			return d.end(PhaseSampling, name, err)
		}
		vel, err := l.LinearVelocity(ctx)
		if err != nil {
			return d.end(PhaseSampling, name, err)
		}
		samples = append(samples, Sample{
			Index:           i,
			Entity:          name,
			Friction:        d.cfg.Cubes[i].Friction,
			InitialX:        d.initial[i].X(),
			PositionX:       pos.X(),
			LinearVelocityX: vel.X(),
			DisplacementX:   pos.X() - d.initial[i].X(),
		})
	}
	d.samples = samples

	for _, m := range d.metrics {
		m.Reset()
		for _, s := range samples {
			m.Observe(s.Friction, s.DisplacementX, s.LinearVelocityX)
		}
	}
	if err := d.end(PhaseSampling, "", nil); err != nil {
		return err
	}
	d.sleep(ctx)
	return nil
}

// Result is available once sampling completed.
func (d *Driver) Result() (*Result, error) {
	if d.next != PhaseDone {
		return nil, fmt.Errorf("%w: result before %s completed", ErrPhaseOrder, PhaseSampling)
	}

	res := &Result{
		Entities:    append([]string(nil), d.entities...),
		Samples:     append([]Sample(nil), d.samples...),
		Descriptors: append([]Descriptor(nil), d.descriptors...),
		Steps:       d.steps,
		Metrics:     make(map[string]float64, len(d.metrics)),
	}
	for _, m := range d.metrics {
		res.Metrics[m.Name()] = m.Value()
	}
	if d.recorder != nil {
		res.Trajectory = d.recorder.Snapshots()
	}
	return res, nil
}

// Run executes all phases in order and stops at the first failure.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	phases := []func(context.Context) error{d.Setup, d.Discover, d.Excite, d.Advance, d.Sample}
	for _, phase := range phases {
		if err := phase(ctx); err != nil {
			return nil, err
		}
	}
	return d.Result()
}

func (d *Driver) sleep(ctx context.Context) {
	if d.cfg.Pause <= 0 {
		return
	}
	t := time.NewTimer(d.cfg.Pause)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

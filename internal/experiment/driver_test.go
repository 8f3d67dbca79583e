package experiment_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/frictionlab/internal/experiment"
	"github.com/san-kum/frictionlab/internal/transport"
	"github.com/san-kum/frictionlab/internal/urdf"
	"github.com/san-kum/frictionlab/internal/world"
)

func openSandbox(ctx context.Context, reg *experiment.Registry) *world.Session {
	sess, err := reg.OpenSession(ctx, experiment.DefaultWorldOptions(), nil)
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(sess.Close)
	return sess
}

func run(ctx context.Context, sess *world.Session, cfg experiment.Config, observers ...experiment.Observer) (*experiment.Result, error) {
	d, err := experiment.New(sess, cfg, nil)
	Expect(err).NotTo(HaveOccurred())
	for _, o := range observers {
		d.AddObserver(o)
	}
	return d.Run(ctx)
}

var _ = Describe("Driver", func() {
	var (
		ctx context.Context
		reg *experiment.Registry
		cfg experiment.Config
	)

	BeforeEach(func() {
		ctx = context.Background()
		reg = experiment.NewRegistry()
		cfg = experiment.DefaultConfig()
	})

	Describe("the reference scenario", func() {
		var res *experiment.Result

		BeforeEach(func() {
			d, err := experiment.New(openSandbox(ctx, reg), cfg, nil)
			Expect(err).NotTo(HaveOccurred())
			for _, m := range reg.DefaultMetrics() {
				d.AddMetric(m)
			}
			res, err = d.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
		})

		It("samples every cube in registration order", func() {
			Expect(res.Samples).To(HaveLen(5))
			for i, s := range res.Samples {
				Expect(s.Index).To(Equal(i))
				Expect(s.Entity).To(Equal(cfg.Name(i)))
				Expect(s.Friction).To(Equal(experiment.ReferenceFrictions[i]))
			}
		})

		It("lists the ground plane next to the cubes", func() {
			Expect(res.Entities).To(ConsistOf("ground_plane", "cube_0", "cube_1", "cube_2", "cube_3", "cube_4"))
		})

		It("moves cubes less as friction grows", func() {
			Expect(res.Samples[0].DisplacementX).To(BeNumerically(">", 0))
			for i := 1; i < len(res.Samples); i++ {
				Expect(res.Samples[i].DisplacementX).To(BeNumerically("<=", res.Samples[i-1].DisplacementX))
			}
			Expect(res.Samples[4].PositionX).To(BeNumerically("~", 0, 1e-9))
			Expect(res.Metrics).To(HaveKeyWithValue("monotonicity", 1.0))
		})

		It("keeps the frictionless cube at its launch speed", func() {
			Expect(res.Samples[0].LinearVelocityX).To(BeNumerically("~", 8, 1e-6))
			Expect(res.Samples[4].LinearVelocityX).To(BeNumerically("~", 0, 1e-9))
			Expect(res.Metrics).To(HaveKeyWithValue("stopped", 4.0))
		})

		It("fingerprints every generated descriptor", func() {
			Expect(res.Descriptors).To(HaveLen(5))
			for _, desc := range res.Descriptors {
				Expect(desc.Fingerprint).To(Equal(urdf.Fingerprint(desc.Data)))
				robot, err := urdf.Parse(desc.Data)
				Expect(err).NotTo(HaveOccurred())
				Expect(robot.Name).To(Equal(urdf.RobotName))
			}
			Expect(res.Steps).To(Equal(experiment.DefaultSteps))
		})
	})

	It("orders displacement for the alternative coefficient sets", func() {
		for _, frictions := range [][]float64{{0, 1, 2, 3, 4}, {0, 25, 50, 75, 100}} {
			res, err := run(ctx, openSandbox(ctx, reg), experiment.NewConfig(frictions, experiment.DefaultForce))
			Expect(err).NotTo(HaveOccurred())
			for i := 1; i < len(res.Samples); i++ {
				Expect(res.Samples[i].DisplacementX).To(BeNumerically("<=", res.Samples[i-1].DisplacementX))
			}
		}
	})

	Describe("phase order", func() {
		It("refuses to skip a phase", func() {
			d, err := experiment.New(openSandbox(ctx, reg), cfg, nil)
			Expect(err).NotTo(HaveOccurred())

			err = d.Discover(ctx)
			Expect(err).To(MatchError(experiment.ErrPhaseOrder))
			_, err = d.Result()
			Expect(err).To(MatchError(experiment.ErrPhaseOrder))
		})

		It("refuses to repeat a phase", func() {
			d, err := experiment.New(openSandbox(ctx, reg), cfg, nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(d.Setup(ctx)).To(Succeed())
			Expect(d.Setup(ctx)).To(MatchError(experiment.ErrPhaseOrder))
			Expect(d.Next()).To(Equal(experiment.PhaseDiscovery))
		})
	})

	Describe("failures", func() {
		It("aborts on a registration conflict", func() {
			sess := openSandbox(ctx, reg)
			robot, err := urdf.NewCube(urdf.CubeParams{Mass: 1, Edge: 1, Color: urdf.White})
			Expect(err).NotTo(HaveOccurred())
			data, err := robot.Marshal()
			Expect(err).NotTo(HaveOccurred())
			path, err := sess.WriteDescriptor("cube_2", data)
			Expect(err).NotTo(HaveOccurred())
			Expect(sess.World().RegisterEntity(ctx, path, world.NewPose(5, 5, 0.5), "cube_2")).To(Succeed())

			d, err := experiment.New(sess, cfg, nil)
			Expect(err).NotTo(HaveOccurred())
			err = d.Setup(ctx)
			Expect(err).To(MatchError(world.ErrRegistrationConflict))

			var perr *experiment.PhaseError
			Expect(errors.As(err, &perr)).To(BeTrue())
			Expect(perr.Phase).To(Equal(experiment.PhaseSetup))
			Expect(perr.Entity).To(Equal("cube_2"))

			Expect(d.Discover(ctx)).To(MatchError(experiment.ErrAborted))
		})

		It("reports a missing ground as not found", func() {
			cfg.Ground = "missing_ground"
			_, err := run(ctx, openSandbox(ctx, reg), cfg)
			Expect(err).To(MatchError(world.ErrNotFound))

			var perr *experiment.PhaseError
			Expect(errors.As(err, &perr)).To(BeTrue())
			Expect(perr.Phase).To(Equal(experiment.PhaseDiscovery))
		})

		It("reports a missing link as not found", func() {
			cfg.CubeLink = "wheel"
			_, err := run(ctx, openSandbox(ctx, reg), cfg)
			Expect(err).To(MatchError(world.ErrNotFound))
		})

		It("rejects invalid cube parameters before touching the world", func() {
			cfg.Mass = 0
			_, err := experiment.New(openSandbox(ctx, reg), cfg, nil)
			Expect(err).To(MatchError(experiment.ErrInvalidConfig))
		})
	})

	Describe("observers", func() {
		It("do not change the outcome", func() {
			plain, err := run(ctx, openSandbox(ctx, reg), cfg)
			Expect(err).NotTo(HaveOccurred())

			cfg.ChunkSize = 250
			rec := experiment.NewRecorder()
			observed, err := run(ctx, openSandbox(ctx, reg), cfg, rec)
			Expect(err).NotTo(HaveOccurred())

			Expect(observed.Samples).To(Equal(plain.Samples))
			Expect(observed.Steps).To(Equal(plain.Steps))

			snaps := rec.Snapshots()
			Expect(snaps).To(HaveLen(cfg.Steps/cfg.ChunkSize + 1))
			Expect(snaps[0].Step).To(Equal(0))
			Expect(snaps[len(snaps)-1].Step).To(Equal(cfg.Steps))
			Expect(snaps[len(snaps)-1].Positions[0].X()).To(Equal(observed.Samples[0].PositionX))

			Expect(rec.Phases()).To(Equal([]experiment.Phase{
				experiment.PhaseSetup,
				experiment.PhaseDiscovery,
				experiment.PhaseExcitation,
				experiment.PhaseAdvance,
				experiment.PhaseSampling,
				experiment.PhaseDone,
			}))
		})

		It("fills the trajectory when recording", func() {
			cfg.ChunkSize = 1000
			cfg.Steps = 3500
			d, err := experiment.New(openSandbox(ctx, reg), cfg, nil)
			Expect(err).NotTo(HaveOccurred())
			d.Record()

			res, err := d.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Steps).To(Equal(3500))

			steps := make([]int, len(res.Trajectory))
			for i, s := range res.Trajectory {
				steps[i] = s.Step
			}
			Expect(steps).To(Equal([]int{0, 1000, 2000, 3000, 3500}))
		})
	})

	It("gives the same samples through a remote world", func() {
		local, err := run(ctx, openSandbox(ctx, reg), cfg)
		Expect(err).NotTo(HaveOccurred())

		sandbox := world.NewSandbox(world.DefaultSandboxConfig(), nil)
		srv := transport.NewServer(sandbox, nil)
		ts := httptest.NewServer(srv)
		DeferCleanup(func() {
			srv.Close()
			ts.Close()
			sandbox.Close()
		})

		opts := experiment.DefaultWorldOptions()
		opts.Backend = "remote"
		opts.URL = "ws" + strings.TrimPrefix(ts.URL, "http")
		sess, err := reg.OpenSession(ctx, opts, nil)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(sess.Close)

		remote, err := run(ctx, sess, cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(remote.Samples).To(Equal(local.Samples))
	})

	It("keeps cubes at their configured height", func() {
		cfg.Steps = 10
		rec := experiment.NewRecorder()
		cfg.ChunkSize = 10
		_, err := run(ctx, openSandbox(ctx, reg), cfg, rec)
		Expect(err).NotTo(HaveOccurred())

		first := rec.Snapshots()[0]
		for i, p := range first.Positions {
			Expect(p).To(Equal(mgl64.Vec3{0, -2 + float64(i), 0.25}))
		}
	})
})

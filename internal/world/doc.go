// Package world defines the contract between the experiment driver and a
// simulated world, and ships the in-process [Sandbox] implementation.
//
// A world holds named entities. Each entity exposes named links, and a
// link accepts world-frame forces and reports its position and linear
// velocity:
//
//	sess, _ := world.Open(world.NewSandbox(world.DefaultSandboxConfig(), log), log)
//	defer sess.Close()
//	path, _ := sess.WriteDescriptor("cube_0", data)
//	_ = sess.World().RegisterEntity(ctx, path, world.NewPose(0, -2, 0.25), "cube_0")
//	e, _ := sess.World().Entity(ctx, "cube_0")
//	l, _ := e.Link(ctx, "cube")
//	_ = l.ApplyWorldForce(ctx, mgl64.Vec3{20, 0, 0}, 0.2)
//	_ = sess.World().Advance(ctx, 10000)
//
// # Errors
//
// Lookups of unknown entities or links fail with [ErrNotFound]; duplicate
// registrations fail with [ErrRegistrationConflict].
package world

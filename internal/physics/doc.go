// Package physics provides the rigid box bodies stepped by the sandbox world.
//
// The model is deliberately small:
//
//   - [Body]: a box with mass, principal inertia, Coulomb friction and a
//     schedule of world-frame forces held for a number of steps
//   - [Plane]: a horizontal ground resolving normal contact and friction
//     with velocity-level impulses
//   - [Integrator]: advances one body by one step, resolving contact
//     between the velocity and position updates
//
// Bodies do not collide with each other and carry no angular dynamics;
// forces act through the center of mass.
//
// # Friction
//
// The tangential impulse available to a body in contact is mu·jn, where jn
// is the normal impulse that cancels the approach velocity. A body whose
// tangential momentum is below that limit sticks; otherwise it slides and
// loses exactly the limit. The effective coefficient of a contact is the
// smaller of the body and plane coefficients.
package physics

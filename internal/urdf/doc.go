// Package urdf builds and parses the cube descriptors consumed by a world.
//
// A descriptor is a URDF document with a fixed layout:
//
//   - a top-level material carrying the cube color
//   - a gazebo block mirroring the color as a diffuse term and the friction
//   - a single link with inertial, visual and collision sections
//
// Documents are assembled as typed records and serialized with
// encoding/xml, never by string interpolation:
//
//	robot, err := urdf.NewCube(urdf.CubeParams{Mass: 0.5, Edge: 0.5, Color: urdf.Red, Friction: 1})
//	data, err := robot.Marshal()
//
// # Inertia
//
// A uniform cube of mass m and edge e has the same principal moment about
// every axis, I = m·e²/6. Off-diagonal products are always zero.
package urdf

// Package experiment drives the friction experiment against a world.
//
// A Driver runs five phases in a fixed order:
//
//	setup       generate one cube descriptor per configured cube and register it
//	discovery   list the world's entities and resolve the ground and cube links
//	excitation  push every cube along +X for a short duration
//	advance     step the world clock
//	sampling    read back each cube's X position and X velocity
//
// Phases cannot be repeated or skipped, and a failure in one phase aborts
// the rest of the run. Observers attached to the driver receive phase
// changes and, during advance, periodic snapshots of every cube; they only
// read world state and never change the outcome.
package experiment

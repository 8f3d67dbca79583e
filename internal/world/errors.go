package world

import "errors"

var (
	// ErrNotFound indicates an entity or link name unknown to the world.
	ErrNotFound = errors.New("world: not found")

	// ErrRegistrationConflict indicates an entity name already in use.
	ErrRegistrationConflict = errors.New("world: entity name already registered")

	// ErrInvalidArgument indicates a request with invalid parameters.
	ErrInvalidArgument = errors.New("world: invalid argument")

	// ErrMalformed indicates a descriptor the world cannot instantiate.
	ErrMalformed = errors.New("world: malformed descriptor")

	// ErrClosed indicates use of a world or session after Close.
	ErrClosed = errors.New("world: closed")
)

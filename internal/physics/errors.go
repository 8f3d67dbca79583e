package physics

import "errors"

var (
	// ErrInvalidBody indicates a body with non-positive mass or extent.
	ErrInvalidBody = errors.New("physics: invalid body (mass and size must be positive)")

	// ErrInvalidStep indicates a non-positive or non-finite step size.
	ErrInvalidStep = errors.New("physics: step size must be positive")
)

package experiment

import (
	"errors"
	"fmt"
)

var (
	ErrPhaseOrder    = errors.New("experiment: phase out of order")
	ErrAborted       = errors.New("experiment: run aborted by an earlier failure")
	ErrInvalidConfig = errors.New("experiment: invalid config")
	ErrUnknownWorld  = errors.New("experiment: unknown world backend")
)

// PhaseError reports the phase, and the entity when there is one, in which a
// run failed.
type PhaseError struct {
	Phase  Phase
	Entity string
	Err    error
}

func (e *PhaseError) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("%s %s: %v", e.Phase, e.Entity, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

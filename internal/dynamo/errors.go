package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrConfiguration indicates invalid or missing settings or parameters.
	ErrConfiguration = errors.New("dynamo: invalid configuration")

	// ErrDimension indicates a state vector whose length does not match the
	// (variant, N) layout.
	ErrDimension = errors.New("dynamo: dimension mismatch")

	// ErrSolverDivergence indicates the nonlinear solve failed to reach a root.
	ErrSolverDivergence = errors.New("dynamo: nonlinear solve did not converge")

	// ErrInvalidState indicates a state vector holding NaN or Inf.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")
)

// ConfigErrorf returns an error wrapping ErrConfiguration.
func ConfigErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// DimensionErrorf returns an error wrapping ErrDimension.
func DimensionErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDimension, fmt.Sprintf(format, args...))
}

// SimulationError wraps an error with the step it happened at.
type SimulationError struct {
	Step    int
	Time    float64
	Label   string
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%s): %v", e.Step, e.Label, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}

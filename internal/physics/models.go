package physics

import (
	"math"
	"sort"

	"github.com/san-kum/dvdm/internal/dynamo"
)

// Model names used in configuration files and on the command line.
const (
	ModelCahnHilliardDVDM         = "ch-dvdm"
	ModelCahnHilliardForwardEuler = "ch-fwd-euler"
	ModelHeatNeumann              = "heat-neumann"
	ModelHeatReaction             = "heat-reaction"
)

// Model is an equation that also exposes its run configuration.
type Model interface {
	dynamo.Equation
	Grid() dynamo.Grid
	Params() dynamo.Params
	Dt() float64
}

// Constructor builds a model for a grid, coefficients and time step.
type Constructor func(grid dynamo.Grid, params dynamo.Params, dt float64) (Model, error)

var constructors = map[string]Constructor{
	ModelCahnHilliardDVDM:         wrap(NewCahnHilliardDVDM),
	ModelCahnHilliardForwardEuler: wrap(NewCahnHilliardForwardEuler),
	ModelHeatNeumann:              wrap(NewHeatNeumannDVDM),
	ModelHeatReaction:             wrap(NewHeatReactionDVDM),
}

func wrap[M Model](fn func(dynamo.Grid, dynamo.Params, float64) (M, error)) Constructor {
	return func(g dynamo.Grid, p dynamo.Params, dt float64) (Model, error) {
		m, err := fn(g, p, dt)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}

// Lookup returns the constructor registered under name.
func Lookup(name string) (Constructor, error) {
	fn, ok := constructors[name]
	if !ok {
		return nil, dynamo.ConfigErrorf("unknown model: %s", name)
	}
	return fn, nil
}

func ModelNames() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsCahnHilliard reports whether a model uses the ghost-extended layout.
func IsCahnHilliard(name string) bool {
	return name == ModelCahnHilliardDVDM || name == ModelCahnHilliardForwardEuler
}

// StateLen is the state length of a model on an N-point grid.
func StateLen(name string, n int) int {
	if IsCahnHilliard(name) {
		return n + 2*chGhosts
	}
	return n
}

// Cosine returns a0·cos(wn·π·idx/(length+1)) over a state of the given
// length. For the Cahn-Hilliard layout length+1 is N+5.
func Cosine(a0, wn float64, length int) dynamo.InitialCondition {
	return func(idx int) float64 {
		return a0 * math.Cos(wn*math.Pi*float64(idx)/float64(length+1))
	}
}

func Constant(v float64) dynamo.InitialCondition {
	return func(int) float64 { return v }
}

// Tanh returns an interface profile a0·tanh((idx − center)/width).
func Tanh(a0, center, width float64) dynamo.InitialCondition {
	if width == 0 {
		width = 1
	}
	return func(idx int) float64 {
		return a0 * math.Tanh((float64(idx)-center)/width)
	}
}

// Rate is the finite-difference time derivative (u2 − u1)/dt.
func Rate(u2, u1 dynamo.State, dt float64) (dynamo.State, error) {
	if len(u2) != len(u1) {
		return nil, dynamo.DimensionErrorf("rate of states with lengths %d and %d", len(u2), len(u1))
	}
	if dt <= 0 {
		return nil, dynamo.ConfigErrorf("Dt must be positive, got %g", dt)
	}
	return u2.Sub(u1).Scale(1 / dt), nil
}

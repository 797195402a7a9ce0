// Package metrics computes the discrete invariants of the Cahn-Hilliard
// schemes and tracks them over a run.
package metrics

import (
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/dvdm/internal/dynamo"
)

// Invariants evaluates discrete mass and energy on the Cahn-Hilliard state
// layout (interior points at 2..N+1, two ghost points per side).
type Invariants struct {
	grid   dynamo.Grid
	params dynamo.Params
}

func NewInvariants(grid dynamo.Grid, params dynamo.Params) (*Invariants, error) {
	if err := grid.Validate(1); err != nil {
		return nil, err
	}
	if err := params.Require(dynamo.ParamGamma, dynamo.ParamConst); err != nil {
		return nil, err
	}
	return &Invariants{grid: grid, params: params}, nil
}

// Mass is the trapezoidal sum of the interior values times Dx, with half
// weight on the first and last interior point.
func (iv *Invariants) Mass(u dynamo.State) (float64, error) {
	n := iv.grid.N
	if len(u) != n+4 {
		return 0, dynamo.DimensionErrorf("state length %d, want %d", len(u), n+4)
	}
	return trapezoid(u[2:n+2]) * iv.grid.Dx, nil
}

// LocalEnergy returns the energy density at each interior point:
//
//	c(U⁴ − 2U² + 1) + Γ/(4Dx²)·((U[k+1]−U[k])² + (U[k]−U[k-1])²)
func (iv *Invariants) LocalEnergy(u dynamo.State) ([]float64, error) {
	n, dx := iv.grid.N, iv.grid.Dx
	if len(u) != n+4 {
		return nil, dynamo.DimensionErrorf("state length %d, want %d", len(u), n+4)
	}
	gamma, c := iv.params.Gamma, iv.params.Const

	g := make([]float64, n)
	for i := range g {
		k := i + 2
		v := u[k]
		fwd, bwd := u[k+1]-v, v-u[k-1]
		g[i] = c*(v*v*v*v-2*v*v+1) + gamma/4/(dx*dx)*(fwd*fwd+bwd*bwd)
	}
	return g, nil
}

// Energy is the trapezoidal sum of a local energy vector times Dx.
func (iv *Invariants) Energy(g []float64) (float64, error) {
	if len(g) != iv.grid.N {
		return 0, dynamo.DimensionErrorf("local energy length %d, want %d", len(g), iv.grid.N)
	}
	return trapezoid(g) * iv.grid.Dx, nil
}

// TotalEnergy is Energy(LocalEnergy(u)).
func (iv *Invariants) TotalEnergy(u dynamo.State) (float64, error) {
	g, err := iv.LocalEnergy(u)
	if err != nil {
		return 0, err
	}
	return iv.Energy(g)
}

func trapezoid(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return floats.Sum(v) - v[0]/2 - v[len(v)-1]/2
}

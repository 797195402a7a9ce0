package physics

import (
	"github.com/san-kum/dvdm/internal/dynamo"
	"github.com/san-kum/dvdm/internal/stencil"
)

// Cahn-Hilliard state layout: N interior points at indices 2..N+1 with two
// mirrored ghost points on each side.
const chGhosts = 2

// chBase holds what both Cahn-Hilliard schemes share: the grid, the
// coefficients, the stencils and the mirrored boundary rows.
type chBase struct {
	grid   dynamo.Grid
	params dynamo.Params
	dt     float64
	lap    *stencil.Operator // N×(N+2)
	lapExt *stencil.Operator // (N+2)×(N+4)
}

func newCHBase(grid dynamo.Grid, params dynamo.Params, dt float64) (chBase, error) {
	if err := grid.Validate(2); err != nil {
		return chBase{}, err
	}
	if dt <= 0 {
		return chBase{}, dynamo.ConfigErrorf("Dt must be positive, got %g", dt)
	}
	if err := params.Require(dynamo.ParamGamma, dynamo.ParamConst); err != nil {
		return chBase{}, err
	}
	lap, err := stencil.Rectangular(grid.N)
	if err != nil {
		return chBase{}, err
	}
	lapExt, err := stencil.Rectangular(grid.N + 2)
	if err != nil {
		return chBase{}, err
	}
	return chBase{grid: grid, params: params, dt: dt, lap: lap, lapExt: lapExt}, nil
}

func (c *chBase) Len() int             { return c.grid.N + 2*chGhosts }
func (c *chBase) Grid() dynamo.Grid     { return c.grid }
func (c *chBase) Params() dynamo.Params { return c.params }
func (c *chBase) Dt() float64           { return c.dt }

// CloseGhosts sets the ghost slots to the mirror images of the interior
// points next to each boundary, the same relation the residual enforces.
func (c *chBase) CloseGhosts(u dynamo.State) {
	n := c.grid.N
	if len(u) != n+4 {
		return
	}
	u[0], u[1] = u[4], u[3]
	u[n+2], u[n+3] = u[n], u[n-1]
}

// boundary fills the four mirrored Neumann rows of the residual.
func (c *chBase) boundary(r, u2 dynamo.State) {
	n := c.grid.N
	r[0] = u2[0] - u2[4]
	r[1] = u2[1] - u2[3]
	r[n+2] = u2[n+2] - u2[n]
	r[n+3] = u2[n+3] - u2[n-1]
}

func (c *chBase) checkLen(vs ...dynamo.State) error {
	want := c.Len()
	for _, v := range vs {
		if len(v) != want {
			return dynamo.DimensionErrorf("state length %d, want %d (N=%d)", len(v), want, c.grid.N)
		}
	}
	return nil
}

// CahnHilliardDVDM is the discrete variational derivative scheme for the
// Cahn-Hilliard equation with homogeneous Neumann conditions. It conserves
// discrete mass and does not increase discrete energy.
type CahnHilliardDVDM struct {
	chBase
}

func NewCahnHilliardDVDM(grid dynamo.Grid, params dynamo.Params, dt float64) (*CahnHilliardDVDM, error) {
	base, err := newCHBase(grid, params, dt)
	if err != nil {
		return nil, err
	}
	return &CahnHilliardDVDM{chBase: base}, nil
}

func (c *CahnHilliardDVDM) Name() string { return ModelCahnHilliardDVDM }

// ChemicalPotential returns the averaged discrete variational derivative at
// the N+2 points 1..N+2:
//
//	Γ/(2Dx²)·Δ(U1+U2) − c(U2³+U2²U1+U2U1²+U1³) + 2c(U2+U1)
func (c *CahnHilliardDVDM) ChemicalPotential(u1, u2 dynamo.State) (dynamo.State, error) {
	if err := c.checkLen(u1, u2); err != nil {
		return nil, err
	}
	n, dx := c.grid.N, c.grid.Dx
	gamma, k := c.params.Gamma, c.params.Const

	lapSum, err := c.lapExt.Apply(u1.Add(u2))
	if err != nil {
		return nil, err
	}

	mu := make(dynamo.State, n+2)
	for j := range mu {
		a, b := u1[j+1], u2[j+1]
		quartic := b*b*b + b*b*a + b*a*a + a*a*a
		mu[j] = gamma/2/(dx*dx)*lapSum[j] - k*quartic + 2*k*(b+a)
	}
	return mu, nil
}

// Residual: interior rows U2 − U1 + Dt/Dx²·Δ(μ(U1, U2)), mirrored ghost rows.
func (c *CahnHilliardDVDM) Residual(u2, u1 dynamo.State) (dynamo.State, error) {
	mu, err := c.ChemicalPotential(u1, u2)
	if err != nil {
		return nil, err
	}
	flux, err := c.lap.Apply(mu)
	if err != nil {
		return nil, err
	}
	return c.assemble(u2, u1, flux), nil
}

func (c *chBase) assemble(u2, u1 dynamo.State, flux []float64) dynamo.State {
	n, dx := c.grid.N, c.grid.Dx
	coef := c.dt / (dx * dx)

	r := make(dynamo.State, n+4)
	c.boundary(r, u2)
	for i := 0; i < n; i++ {
		k := i + chGhosts
		r[k] = u2[k] - u1[k] + coef*flux[i]
	}
	return r
}

// CahnHilliardForwardEuler evaluates the chemical potential at U1 only.
// The interior rows are linear in U2; it goes through the same residual
// interface so both schemes share the stepper. Its ghost rows are the
// DVDM ones.
type CahnHilliardForwardEuler struct {
	chBase
	biLap *stencil.Operator // N×(N+4)
}

func NewCahnHilliardForwardEuler(grid dynamo.Grid, params dynamo.Params, dt float64) (*CahnHilliardForwardEuler, error) {
	base, err := newCHBase(grid, params, dt)
	if err != nil {
		return nil, err
	}
	biLap, err := stencil.BiLaplacian(grid.N)
	if err != nil {
		return nil, err
	}
	return &CahnHilliardForwardEuler{chBase: base, biLap: biLap}, nil
}

func (c *CahnHilliardForwardEuler) Name() string { return ModelCahnHilliardForwardEuler }

// ChemicalPotential returns Γ/Dx²·ΔU1 − 4c(U1³ − U1) at the points 1..N+2.
func (c *CahnHilliardForwardEuler) ChemicalPotential(u1 dynamo.State) (dynamo.State, error) {
	if err := c.checkLen(u1); err != nil {
		return nil, err
	}
	n, dx := c.grid.N, c.grid.Dx
	lapU, err := c.lapExt.Apply(u1)
	if err != nil {
		return nil, err
	}
	mu := make(dynamo.State, n+2)
	for j := range mu {
		a := u1[j+1]
		mu[j] = c.params.Gamma/(dx*dx)*lapU[j] - 4*c.params.Const*(a*a*a-a)
	}
	return mu, nil
}

// Residual splits Δμ(U1) into the bi-Laplacian of U1 and the Laplacian of
// the cubic term.
func (c *CahnHilliardForwardEuler) Residual(u2, u1 dynamo.State) (dynamo.State, error) {
	if err := c.checkLen(u2, u1); err != nil {
		return nil, err
	}
	n, dx := c.grid.N, c.grid.Dx

	quad, err := c.biLap.Apply(u1)
	if err != nil {
		return nil, err
	}
	cubic := make([]float64, n+2)
	for j := range cubic {
		a := u1[j+1]
		cubic[j] = a*a*a - a
	}
	lapCubic, err := c.lap.Apply(cubic)
	if err != nil {
		return nil, err
	}

	flux := make([]float64, n)
	for i := range flux {
		flux[i] = c.params.Gamma/(dx*dx)*quad[i] - 4*c.params.Const*lapCubic[i]
	}
	return c.assemble(u2, u1, flux), nil
}

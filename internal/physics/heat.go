package physics

import (
	"github.com/san-kum/dvdm/internal/dynamo"
	"github.com/san-kum/dvdm/internal/stencil"
)

// heatMinN is the smallest grid the heat schemes accept: both boundary
// rows need a distinct interior neighbour and at least one interior row.
const heatMinN = 3

// heatBase holds the Crank-Nicolson interior shared by the heat variants.
// The state has N entries; indices 0 and N-1 are the boundary points.
type heatBase struct {
	grid   dynamo.Grid
	params dynamo.Params
	dt     float64
	lap    *stencil.Operator // N×N
}

func newHeatBase(grid dynamo.Grid, params dynamo.Params, dt float64, required ...string) (heatBase, error) {
	if err := grid.Validate(heatMinN); err != nil {
		return heatBase{}, err
	}
	if dt <= 0 {
		return heatBase{}, dynamo.ConfigErrorf("Dt must be positive, got %g", dt)
	}
	if err := params.Require(required...); err != nil {
		return heatBase{}, err
	}
	lap, err := stencil.Square(grid.N)
	if err != nil {
		return heatBase{}, err
	}
	return heatBase{grid: grid, params: params, dt: dt, lap: lap}, nil
}

func (h *heatBase) Len() int             { return h.grid.N }
func (h *heatBase) Grid() dynamo.Grid     { return h.grid }
func (h *heatBase) Params() dynamo.Params { return h.params }
func (h *heatBase) Dt() float64           { return h.dt }

func (h *heatBase) checkLen(vs ...dynamo.State) error {
	for _, v := range vs {
		if len(v) != h.grid.N {
			return dynamo.DimensionErrorf("state length %d, want %d", len(v), h.grid.N)
		}
	}
	return nil
}

// interior fills rows 1..N-2 with (U2−U1)·Dx² − Γ/2·Δ(U1+U2)·Dt and
// returns U1+U2 for the boundary rows.
func (h *heatBase) interior(r, u2, u1 dynamo.State) (dynamo.State, error) {
	n, dx := h.grid.N, h.grid.Dx
	sum := u1.Add(u2)
	lapSum, err := h.lap.Apply(sum)
	if err != nil {
		return nil, err
	}
	for k := 1; k < n-1; k++ {
		r[k] = (u2[k]-u1[k])*dx*dx - h.params.Gamma*0.5*lapSum[k]*h.dt
	}
	return sum, nil
}

// HeatNeumannDVDM is the heat equation with zero-flux boundaries: each
// boundary point equals its interior neighbour.
type HeatNeumannDVDM struct {
	heatBase
}

func NewHeatNeumannDVDM(grid dynamo.Grid, params dynamo.Params, dt float64) (*HeatNeumannDVDM, error) {
	base, err := newHeatBase(grid, params, dt, dynamo.ParamGamma)
	if err != nil {
		return nil, err
	}
	return &HeatNeumannDVDM{heatBase: base}, nil
}

func (h *HeatNeumannDVDM) Name() string { return ModelHeatNeumann }

func (h *HeatNeumannDVDM) Residual(u2, u1 dynamo.State) (dynamo.State, error) {
	if err := h.checkLen(u2, u1); err != nil {
		return nil, err
	}
	n := h.grid.N
	r := make(dynamo.State, n)
	if _, err := h.interior(r, u2, u1); err != nil {
		return nil, err
	}
	r[0] = u2[1] - u2[0]
	r[n-1] = u2[n-1] - u2[n-2]
	return r, nil
}

// HeatReactionDVDM replaces the Neumann rows with a nonlinear boundary
// reaction: each boundary point exchanges flux with its one interior
// neighbour and reacts with
//
//	R(U2, U1) = c·((U2³+U2²U1+U2U1²+U1³) − (U2+U1))
type HeatReactionDVDM struct {
	heatBase
}

func NewHeatReactionDVDM(grid dynamo.Grid, params dynamo.Params, dt float64) (*HeatReactionDVDM, error) {
	base, err := newHeatBase(grid, params, dt, dynamo.ParamGamma, dynamo.ParamConst)
	if err != nil {
		return nil, err
	}
	return &HeatReactionDVDM{heatBase: base}, nil
}

func (h *HeatReactionDVDM) Name() string { return ModelHeatReaction }

// Reaction is the averaged boundary reaction term.
func (h *HeatReactionDVDM) Reaction(u2, u1 float64) float64 {
	return h.params.Const * ((u2*u2*u2 + u2*u2*u1 + u2*u1*u1 + u1*u1*u1) - (u2 + u1))
}

func (h *HeatReactionDVDM) Residual(u2, u1 dynamo.State) (dynamo.State, error) {
	if err := h.checkLen(u2, u1); err != nil {
		return nil, err
	}
	n := h.grid.N
	r := make(dynamo.State, n)
	sum, err := h.interior(r, u2, u1)
	if err != nil {
		return nil, err
	}
	r[0] = h.boundaryRow(u2[0], u1[0], sum[0], sum[1])
	r[n-1] = h.boundaryRow(u2[n-1], u1[n-1], sum[n-1], sum[n-2])
	return r, nil
}

// boundaryRow: (U2−U1)·Dx − R·Dt·Dx + Γ/2·(S_in − S_bd)·Dt, S = U1+U2.
func (h *HeatReactionDVDM) boundaryRow(u2, u1, sumBd, sumIn float64) float64 {
	dx, dt := h.grid.Dx, h.dt
	return (u2-u1)*dx - h.Reaction(u2, u1)*dt*dx + h.params.Gamma*0.5*(sumIn-sumBd)*dt
}

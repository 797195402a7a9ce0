// Package physics provides the equation models stepped by the simulator.
//
// Each model implements [dynamo.Equation]: Residual(U2, U1) is zero exactly
// when U2 is the state one time step after U1.
//
//   - [CahnHilliardDVDM]: Cahn-Hilliard, discrete variational derivative
//   - [CahnHilliardForwardEuler]: Cahn-Hilliard, explicit comparison scheme
//   - [HeatNeumannDVDM]: heat equation, zero-flux boundaries
//   - [HeatReactionDVDM]: heat equation, nonlinear boundary reaction
//
// # State Layout
//
// Cahn-Hilliard states have N+4 entries: interior points at 2..N+1 and two
// ghost points on each side mirrored about the first and last interior
// point. Heat states have N entries with the boundary points at 0 and N-1.
//
// The Cahn-Hilliard models implement [dynamo.GhostCloser], so an initial
// state can be made consistent with the mirrored boundary rows:
//
//	eq, _ := physics.NewCahnHilliardDVDM(grid, params, dt)
//	eq.CloseGhosts(u0)
package physics

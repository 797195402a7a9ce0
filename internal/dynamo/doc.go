// Package dynamo provides the core primitives for time-stepping 1-D PDEs
// with structure-preserving schemes.
//
// The package defines the fundamental types and interfaces shared by the
// rest of the module:
//
//   - [State]: discretized unknown at one instant, ghost slots included
//   - [Grid], [Params], [Timeset]: immutable run configuration
//   - [Equation]: residual F(U2, U1) whose root is the next state
//   - [Store]: snapshot persistence keyed by time label
//   - [Metric], [Observer]: diagnostics attached to a run
//
// # Example
//
//	eq, _ := physics.NewCahnHilliardDVDM(grid, params, dt)
//	stepper := sim.New(store, solver.NewHybrid(solver.DefaultConfig()))
//	result, _ := stepper.Run(ctx, eq, ts)
//
// # Errors
//
// Failures are reported with the sentinels [ErrConfiguration],
// [ErrDimension] and [ErrSolverDivergence]; use errors.Is to classify them.
// Step failures are wrapped in a [SimulationError].
package dynamo

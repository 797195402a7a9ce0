package sim

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/dvdm/internal/dynamo"
	"github.com/san-kum/dvdm/internal/physics"
)

// Stepper advances an equation in time, one implicit solve per step.
//
// It owns the two time levels U1 and U2 and is not safe for concurrent
// use; run independent simulations on independent steppers.
type Stepper struct {
	store     dynamo.Store
	solver    RootSolver
	logger    *slog.Logger
	metrics   []dynamo.Metric
	observers []dynamo.Observer
	phase     Phase
}

func New(store dynamo.Store, solver RootSolver) *Stepper {
	return &Stepper{
		store:     store,
		solver:    solver,
		logger:    slog.Default(),
		metrics:   make([]dynamo.Metric, 0),
		observers: make([]dynamo.Observer, 0),
	}
}

func (s *Stepper) SetLogger(l *slog.Logger) {
	if l != nil {
		s.logger = l
	}
}

func (s *Stepper) AddMetric(m dynamo.Metric)     { s.metrics = append(s.metrics, m) }
func (s *Stepper) AddObserver(o dynamo.Observer) { s.observers = append(s.observers, o) }

func (s *Stepper) Phase() Phase { return s.phase }

// Prepare evaluates init over the state layout of eq and persists it as
// the snapshot at ts.InitTime. Ghost slots are closed from the interior
// when eq has any.
func (s *Stepper) Prepare(eq dynamo.Equation, ts dynamo.Timeset, init dynamo.InitialCondition) (dynamo.State, error) {
	if err := ts.Validate(); err != nil {
		return nil, err
	}
	if init == nil {
		return nil, dynamo.ConfigErrorf("initial condition is required")
	}

	u := make(dynamo.State, eq.Len())
	for i := range u {
		u[i] = init(i)
	}
	if closer, ok := eq.(dynamo.GhostCloser); ok {
		closer.CloseGhosts(u)
	}
	if !u.IsValid() {
		return nil, dynamo.ConfigErrorf("initial condition: %v", dynamo.ErrInvalidState)
	}

	label := ts.Label(ts.InitTime)
	if err := s.store.Save(dynamo.FieldU, label, u); err != nil {
		return nil, fmt.Errorf("save initial snapshot %s: %w", label, err)
	}
	s.logger.Info("prepared initial state", "model", eq.Name(), "t", label, "len", len(u))
	return u, nil
}

// Run loads the snapshot at ts.InitTime and takes ts.TimeSpan steps.
//
// A step that fails to converge aborts the run with a *dynamo.SimulationError
// wrapping dynamo.ErrSolverDivergence. Snapshots written before the failure
// stay in the store, so a later run can resume from the last one.
func (s *Stepper) Run(ctx context.Context, eq dynamo.Equation, ts dynamo.Timeset) (*Result, error) {
	s.phase = Idle
	if err := ts.Validate(); err != nil {
		return nil, err
	}

	label0 := ts.Label(ts.InitTime)
	u1, err := s.store.Load(dynamo.FieldU, label0)
	if err != nil {
		return nil, fmt.Errorf("load initial snapshot %s: %w", label0, err)
	}
	if len(u1) != eq.Len() {
		return nil, dynamo.DimensionErrorf("snapshot %s has length %d, %s expects %d",
			label0, len(u1), eq.Name(), eq.Len())
	}

	result := &Result{
		Labels:  make([]string, 0, ts.TimeSpan/ts.Brank+1),
		Metrics: make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
		m.Observe(u1, ts.Time(ts.InitTime))
	}

	s.phase = Stepping
	first := ts.InitTime + 1
	for t := first; t <= ts.LastStep(); t++ {
		select {
		case <-ctx.Done():
			s.phase = Failed
			return result, ctx.Err()
		default:
		}

		prev := u1
		residual := func(x []float64) ([]float64, error) {
			return eq.Residual(x, prev)
		}

		sol, err := s.solver.Solve(residual, prev.Clone())
		if err == nil && !dynamo.State(sol.X).IsValid() {
			err = fmt.Errorf("%w: %w", dynamo.ErrSolverDivergence, dynamo.ErrInvalidState)
		}
		if err != nil {
			s.phase = Failed
			return result, &dynamo.SimulationError{
				Step:    t,
				Time:    ts.Time(t),
				Label:   ts.Label(t),
				Wrapped: err,
			}
		}

		u2 := dynamo.State(sol.X)
		result.StepsTaken++
		result.Iterations += sol.Iterations
		s.logger.Debug("solved step", "step", t, "iterations", sol.Iterations,
			"evals", sol.Evals, "residual", sol.Residual)

		if ts.Saves(t) {
			label := ts.Label(t)
			if err := s.persist(label, u2, prev, ts.Dt); err != nil {
				s.phase = Failed
				return result, &dynamo.SimulationError{Step: t, Time: ts.Time(t), Label: label, Wrapped: err}
			}
			result.Labels = append(result.Labels, label)

			for _, m := range s.metrics {
				m.Observe(u2, ts.Time(t))
			}
			for _, obs := range s.observers {
				obs.OnSnapshot(t, label, u2)
			}
			if t%(ts.Brank*100) == 0 || t == first {
				s.logger.Info("step", s.progressAttrs(t, label)...)
			}
		}

		u1 = u2
	}

	result.Final = u1
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	s.phase = Converged
	return result, nil
}

// persist writes U2 and the finite-difference rate (U2−U1)/Dt.
func (s *Stepper) persist(label string, u2, u1 dynamo.State, dt float64) error {
	if err := s.store.Save(dynamo.FieldU, label, u2); err != nil {
		return fmt.Errorf("save %s snapshot: %w", dynamo.FieldU, err)
	}
	rate, err := physics.Rate(u2, u1, dt)
	if err != nil {
		return err
	}
	if err := s.store.Save(dynamo.FieldRate, label, rate); err != nil {
		return fmt.Errorf("save %s snapshot: %w", dynamo.FieldRate, err)
	}
	return nil
}

func (s *Stepper) progressAttrs(step int, label string) []any {
	attrs := []any{"t", label, "step", step}
	for _, m := range s.metrics {
		attrs = append(attrs, m.Name(), m.Value())
	}
	return attrs
}

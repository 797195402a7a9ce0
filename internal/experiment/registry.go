package experiment

import (
	"sort"

	"github.com/san-kum/dvdm/internal/dynamo"
	"github.com/san-kum/dvdm/internal/metrics"
	"github.com/san-kum/dvdm/internal/physics"
	"github.com/san-kum/dvdm/internal/sim"
	"github.com/san-kum/dvdm/internal/solver"
)

type Registry struct {
	models  map[string]physics.Constructor
	solvers map[string]func(solver.Config) sim.RootSolver
}

func NewRegistry() *Registry {
	r := &Registry{
		models:  make(map[string]physics.Constructor),
		solvers: make(map[string]func(solver.Config) sim.RootSolver),
	}

	for _, name := range physics.ModelNames() {
		build, _ := physics.Lookup(name)
		r.models[name] = build
	}

	r.solvers["hybrid"] = func(cfg solver.Config) sim.RootSolver { return solver.NewHybrid(cfg) }

	return r
}

func (r *Registry) GetModel(name string, grid dynamo.Grid, params dynamo.Params, dt float64) (physics.Model, error) {
	fn, ok := r.models[name]
	if !ok {
		return nil, dynamo.ConfigErrorf("unknown model: %s", name)
	}
	return fn(grid, params, dt)
}

func (r *Registry) GetSolver(name string, cfg solver.Config) (sim.RootSolver, error) {
	fn, ok := r.solvers[name]
	if !ok {
		return nil, dynamo.ConfigErrorf("unknown solver: %s", name)
	}
	return fn(cfg), nil
}

func (r *Registry) ListModels() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StabilityThreshold bounds |U| for the stability metric.
const StabilityThreshold = 1e3

// DefaultMetrics returns the metrics tracked for a model. Cahn-Hilliard
// models add their discrete invariants.
func (r *Registry) DefaultMetrics(model physics.Model) ([]dynamo.Metric, error) {
	ms := []dynamo.Metric{
		metrics.NewStability(StabilityThreshold),
		metrics.NewMeanRate(),
	}
	if !physics.IsCahnHilliard(model.Name()) {
		return ms, nil
	}
	iv, err := metrics.NewInvariants(model.Grid(), model.Params())
	if err != nil {
		return nil, err
	}
	return append(ms, metrics.Defaults(iv)...), nil
}

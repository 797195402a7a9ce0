package sim

import (
	"github.com/san-kum/dvdm/internal/dynamo"
	"github.com/san-kum/dvdm/internal/solver"
)

// Phase is the state of a Stepper.
type Phase int

const (
	Idle Phase = iota
	Stepping
	Converged
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Stepping:
		return "stepping"
	case Converged:
		return "converged"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// RootSolver finds the root of a residual starting from a guess.
type RootSolver interface {
	Solve(f solver.Func, x0 []float64) (*solver.Result, error)
}

type Result struct {
	// Labels lists the persisted snapshot labels in step order.
	Labels     []string
	Final      dynamo.State
	StepsTaken int
	Iterations int
	Metrics    map[string]float64
}

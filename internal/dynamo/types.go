package dynamo

import (
	"math"
)

// Snapshot field names.
const (
	FieldU    = "U"
	FieldRate = "dUdt"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Add(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] + other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// Equation is the residual F(U2, U1) of one implicit time step. Residual
// must be pure: the root solver calls it many times per step.
type Equation interface {
	Name() string
	Len() int
	Residual(u2, u1 State) (State, error)
}

// GhostCloser is implemented by equations whose state carries ghost slots
// tied to interior values. CloseGhosts overwrites the ghost slots in place.
type GhostCloser interface {
	CloseGhosts(u State)
}

// InitialCondition maps a state index to its initial value.
type InitialCondition func(idx int) float64

// Store persists snapshots keyed by field name and time label.
type Store interface {
	Load(field, label string) (State, error)
	Save(field, label string, u State) error
}

type Metric interface {
	Name() string
	Observe(u State, t float64)
	Value() float64
	Reset()
}

// Observer is notified each time a snapshot is persisted.
type Observer interface {
	OnSnapshot(step int, label string, u State)
}

package metrics

import (
	"math"

	"github.com/san-kum/dvdm/internal/dynamo"
)

// Metrics built on Invariants report NaN from the first state whose layout
// does not match the grid until Reset.

// Mass reports the discrete mass of the last observed state.
type Mass struct {
	iv      *Invariants
	value   float64
	invalid bool
}

func NewMass(iv *Invariants) *Mass { return &Mass{iv: iv} }

func (m *Mass) Name() string { return "mass" }

func (m *Mass) Observe(u dynamo.State, t float64) {
	v, err := m.iv.Mass(u)
	if err != nil {
		m.invalid = true
		return
	}
	m.value = v
}

func (m *Mass) Value() float64 {
	if m.invalid {
		return math.NaN()
	}
	return m.value
}

func (m *Mass) Reset() {
	m.value = 0
	m.invalid = false
}

// Energy reports the discrete energy of the last observed state.
type Energy struct {
	iv      *Invariants
	value   float64
	invalid bool
}

func NewEnergy(iv *Invariants) *Energy { return &Energy{iv: iv} }

func (e *Energy) Name() string { return "energy" }

func (e *Energy) Observe(u dynamo.State, t float64) {
	v, err := e.iv.TotalEnergy(u)
	if err != nil {
		e.invalid = true
		return
	}
	e.value = v
}

func (e *Energy) Value() float64 {
	if e.invalid {
		return math.NaN()
	}
	return e.value
}

func (e *Energy) Reset() {
	e.value = 0
	e.invalid = false
}

// MassDrift is the largest |mass − mass₀| seen since the first observation.
type MassDrift struct {
	iv       *Invariants
	initial  float64
	maxDrift float64
	samples  int
	invalid  bool
}

func NewMassDrift(iv *Invariants) *MassDrift { return &MassDrift{iv: iv} }

func (d *MassDrift) Name() string { return "mass_drift" }

func (d *MassDrift) Observe(u dynamo.State, t float64) {
	m, err := d.iv.Mass(u)
	if err != nil {
		d.invalid = true
		return
	}
	if d.samples == 0 {
		d.initial = m
	}
	d.samples++
	d.maxDrift = math.Max(d.maxDrift, math.Abs(m-d.initial))
}

func (d *MassDrift) Value() float64 {
	if d.invalid {
		return math.NaN()
	}
	return d.maxDrift
}

func (d *MassDrift) Reset() {
	d.initial = 0
	d.maxDrift = 0
	d.samples = 0
	d.invalid = false
}

// EnergyIncrease is the largest step-over-step rise in energy between
// consecutive observations. Zero means the energy never increased.
type EnergyIncrease struct {
	iv          *Invariants
	last        float64
	maxIncrease float64
	samples     int
	invalid     bool
}

func NewEnergyIncrease(iv *Invariants) *EnergyIncrease { return &EnergyIncrease{iv: iv} }

func (e *EnergyIncrease) Name() string { return "energy_increase" }

func (e *EnergyIncrease) Observe(u dynamo.State, t float64) {
	energy, err := e.iv.TotalEnergy(u)
	if err != nil {
		e.invalid = true
		return
	}
	if e.samples > 0 {
		e.maxIncrease = math.Max(e.maxIncrease, energy-e.last)
	}
	e.last = energy
	e.samples++
}

func (e *EnergyIncrease) Value() float64 {
	if e.invalid {
		return math.NaN()
	}
	return e.maxIncrease
}

func (e *EnergyIncrease) Reset() {
	e.last = 0
	e.maxIncrease = 0
	e.samples = 0
	e.invalid = false
}

// Defaults returns the invariant metrics for a Cahn-Hilliard run.
func Defaults(iv *Invariants) []dynamo.Metric {
	return []dynamo.Metric{
		NewMass(iv),
		NewEnergy(iv),
		NewMassDrift(iv),
		NewEnergyIncrease(iv),
	}
}

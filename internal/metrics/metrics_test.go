package metrics

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/dvdm/internal/dynamo"
)

func newTestInvariants(t *testing.T) *Invariants {
	t.Helper()
	params, err := dynamo.NewParams(map[string]float64{dynamo.ParamGamma: 2, dynamo.ParamConst: 0.25})
	if err != nil {
		t.Fatal(err)
	}
	iv, err := NewInvariants(dynamo.Grid{N: 10, Dx: 0.5}, params)
	if err != nil {
		t.Fatal(err)
	}
	return iv
}

func constant(n int, v float64) dynamo.State {
	u := make(dynamo.State, n)
	for i := range u {
		u[i] = v
	}
	return u
}

func TestMassConstantState(t *testing.T) {
	iv := newTestInvariants(t)
	m, err := iv.Mass(constant(14, 0.2))
	if err != nil {
		t.Fatal(err)
	}
	// Ten interior points with half weight at both ends.
	if want := 9 * 0.2 * 0.5; math.Abs(m-want) > 1e-14 {
		t.Errorf("expected mass %v, got %v", want, m)
	}
}

func TestMassIgnoresGhosts(t *testing.T) {
	iv := newTestInvariants(t)
	u := constant(14, 1)
	u[0], u[1], u[12], u[13] = 50, -50, 7, 7
	m, _ := iv.Mass(u)
	if math.Abs(m-4.5) > 1e-14 {
		t.Errorf("ghost slots leaked into mass: %v", m)
	}
}

func TestEnergyConstantState(t *testing.T) {
	iv := newTestInvariants(t)
	v := 0.5
	g, err := iv.LocalEnergy(constant(14, v))
	if err != nil {
		t.Fatal(err)
	}
	local := 0.25 * (v*v*v*v - 2*v*v + 1)
	for i, gi := range g {
		if math.Abs(gi-local) > 1e-14 {
			t.Errorf("g[%d] = %v, want %v", i, gi, local)
		}
	}

	e, err := iv.Energy(g)
	if err != nil {
		t.Fatal(err)
	}
	if want := 9 * local * 0.5; math.Abs(e-want) > 1e-14 {
		t.Errorf("expected energy %v, got %v", want, e)
	}

	// Wells at ±1 have zero bulk energy.
	if e, _ := iv.TotalEnergy(constant(14, -1)); math.Abs(e) > 1e-14 {
		t.Errorf("expected zero energy at the well, got %v", e)
	}
}

func TestEnergyGradientTerm(t *testing.T) {
	iv := newTestInvariants(t)
	u := constant(14, 1)
	u[6] = 1.1
	g, _ := iv.LocalEnergy(u)
	// Point 6 is interior index 4; both differences are 0.1.
	bulk := 0.25 * (math.Pow(1.1, 4) - 2*1.21 + 1)
	grad := 2.0 / 4 / 0.25 * (0.01 + 0.01)
	if math.Abs(g[4]-(bulk+grad)) > 1e-12 {
		t.Errorf("g[4] = %v, want %v", g[4], bulk+grad)
	}
	if math.Abs(g[3]-2.0/4/0.25*0.01) > 1e-12 {
		t.Errorf("g[3] = %v, want neighbor gradient only", g[3])
	}
}

func TestInvariantsErrors(t *testing.T) {
	iv := newTestInvariants(t)
	if _, err := iv.Mass(constant(10, 1)); !errors.Is(err, dynamo.ErrDimension) {
		t.Errorf("expected ErrDimension, got %v", err)
	}
	if _, err := iv.LocalEnergy(constant(13, 1)); !errors.Is(err, dynamo.ErrDimension) {
		t.Errorf("expected ErrDimension, got %v", err)
	}
	if _, err := iv.Energy(make([]float64, 9)); !errors.Is(err, dynamo.ErrDimension) {
		t.Errorf("expected ErrDimension, got %v", err)
	}

	onlyGamma, _ := dynamo.NewParams(map[string]float64{dynamo.ParamGamma: 1})
	if _, err := NewInvariants(dynamo.Grid{N: 10, Dx: 0.5}, onlyGamma); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestDriftMetrics(t *testing.T) {
	iv := newTestInvariants(t)
	drift := NewMassDrift(iv)
	rise := NewEnergyIncrease(iv)

	for i, v := range []float64{0.5, 0.5, 0.6} {
		u := constant(14, v)
		drift.Observe(u, float64(i))
		rise.Observe(u, float64(i))
	}
	if want := 9 * 0.1 * 0.5; math.Abs(drift.Value()-want) > 1e-12 {
		t.Errorf("expected drift %v, got %v", want, drift.Value())
	}
	// Bulk energy falls from 0.5 to 0.6, so no increase.
	if rise.Value() != 0 {
		t.Errorf("expected no energy increase, got %v", rise.Value())
	}

	rise.Observe(constant(14, 0.2), 3)
	if rise.Value() <= 0 {
		t.Error("expected a recorded energy increase")
	}

	drift.Reset()
	rise.Reset()
	if drift.Value() != 0 || rise.Value() != 0 {
		t.Error("reset did not clear metrics")
	}
}

func TestMetricsReportNaNOnLayoutMismatch(t *testing.T) {
	ms := Defaults(newTestInvariants(t))
	for _, m := range ms {
		m.Observe(constant(14, 0.5), 0)
		m.Observe(constant(10, 0.5), 1)
		if !math.IsNaN(m.Value()) {
			t.Errorf("%s: expected NaN after a mismatched state, got %v", m.Name(), m.Value())
		}
		// Later valid states do not hide the failure.
		m.Observe(constant(14, 0.5), 2)
		if !math.IsNaN(m.Value()) {
			t.Errorf("%s: NaN was cleared by a valid state", m.Name())
		}
		m.Reset()
		m.Observe(constant(14, 0.5), 0)
		if math.IsNaN(m.Value()) {
			t.Errorf("%s: reset did not clear the failure", m.Name())
		}
	}
}

func TestDefaults(t *testing.T) {
	ms := Defaults(newTestInvariants(t))
	names := map[string]bool{}
	for _, m := range ms {
		names[m.Name()] = true
	}
	for _, want := range []string{"mass", "energy", "mass_drift", "energy_increase"} {
		if !names[want] {
			t.Errorf("missing metric %s", want)
		}
	}
}

func TestStability(t *testing.T) {
	s := NewStability(1)
	if s.Value() != 1 {
		t.Errorf("expected 1 with no samples, got %v", s.Value())
	}
	s.Observe(dynamo.State{0.5, -0.5}, 0)
	s.Observe(dynamo.State{0.5, 2}, 1)
	if s.Value() != 0.5 {
		t.Errorf("expected 0.5, got %v", s.Value())
	}
	s.Observe(dynamo.State{math.NaN()}, 2)
	if math.Abs(s.Value()-1.0/3) > 1e-12 {
		t.Errorf("NaN should count as a violation, got %v", s.Value())
	}
}

func TestMeanRate(t *testing.T) {
	r := NewMeanRate()
	r.Observe(dynamo.State{0, 0}, 0)
	r.Observe(dynamo.State{1, 0.5}, 0.5)
	r.Observe(dynamo.State{1, 0.5}, 1.0)
	// Rates 2 then 0.
	if math.Abs(r.Value()-1) > 1e-12 {
		t.Errorf("expected mean rate 1, got %v", r.Value())
	}
	r.Reset()
	if r.Value() != 0 {
		t.Errorf("expected 0 after reset, got %v", r.Value())
	}
}

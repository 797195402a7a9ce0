package analysis

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/dvdm/internal/dynamo"
	"github.com/san-kum/dvdm/internal/physics"
)

func cosineProfile(n, k int, amp float64) []float64 {
	p := make([]float64, n)
	for i := range p {
		p[i] = amp * math.Cos(float64(k)*math.Pi*(float64(i)+0.5)/float64(n))
	}
	return p
}

func TestPowerSpectrumConstant(t *testing.T) {
	ps := PowerSpectrum([]float64{2, 2, 2, 2, 2})
	if len(ps) != 3 {
		t.Fatalf("expected 3 bins, got %d", len(ps))
	}
	if math.Abs(ps[0]-20) > 1e-9 {
		t.Errorf("expected DC power 20, got %v", ps[0])
	}
	for k := 1; k < len(ps); k++ {
		if ps[k] > 1e-12 {
			t.Errorf("bin %d: expected no power, got %v", k, ps[k])
		}
	}
	if PowerSpectrum(nil) != nil {
		t.Error("expected nil spectrum for empty input")
	}
}

func TestNeumannSpectrumFindsMode(t *testing.T) {
	for _, k := range []int{1, 2, 3, 5} {
		mode, power := DominantMode(NeumannSpectrum(cosineProfile(12, k, 0.5)))
		if mode != k {
			t.Errorf("expected mode %d, got %d", k, mode)
		}
		if power <= 0 {
			t.Errorf("mode %d: expected positive power", k)
		}
	}

	mode, power := DominantMode([]float64{3})
	if mode != 0 || power != 0 {
		t.Errorf("expected (0, 0) without non-constant bins, got (%d, %v)", mode, power)
	}
}

func TestInterfaces(t *testing.T) {
	p := []float64{-1, -1, 1, 1, 0, -1, 1}
	if got := Interfaces(p, 0); got != 3 {
		t.Errorf("expected 3 interfaces, got %d", got)
	}
	if got := Interfaces([]float64{1, 1, 1}, 0); got != 0 {
		t.Errorf("expected no interfaces, got %d", got)
	}
}

func TestDescribe(t *testing.T) {
	s := Describe(cosineProfile(20, 2, 1))
	if s.Mode != 2 {
		t.Errorf("expected mode 2, got %d", s.Mode)
	}
	if s.Interfaces != 2 {
		t.Errorf("expected 2 interfaces, got %d", s.Interfaces)
	}
	if math.Abs(s.Mean) > 1e-12 {
		t.Errorf("expected zero mean, got %v", s.Mean)
	}
	if s.Max > 1 || s.Min < -1 {
		t.Errorf("extrema out of range: %+v", s)
	}

	if (Describe(nil) != ProfileStats{}) {
		t.Error("expected zero stats for empty profile")
	}
}

func TestInterior(t *testing.T) {
	u := make(dynamo.State, 14)
	for i := range u {
		u[i] = float64(i)
	}
	p, err := Interior(physics.ModelCahnHilliardDVDM, 10, u)
	if err != nil {
		t.Fatal(err)
	}
	if len(p) != 10 || p[0] != 2 || p[9] != 11 {
		t.Errorf("unexpected interior %v", p)
	}

	if _, err := Interior(physics.ModelHeatNeumann, 10, u); !errors.Is(err, dynamo.ErrDimension) {
		t.Errorf("expected ErrDimension, got %v", err)
	}
}

func TestModeHistory(t *testing.T) {
	labels := []string{"0.0", "1.0"}
	profiles := [][]float64{cosineProfile(16, 4, 1), cosineProfile(16, 2, 1)}
	history, err := ModeHistory(labels, profiles)
	if err != nil {
		t.Fatal(err)
	}
	if history[0].Mode != 4 || history[1].Mode != 2 {
		t.Errorf("unexpected history %+v", history)
	}

	if _, err := ModeHistory(labels[:1], profiles); !errors.Is(err, dynamo.ErrDimension) {
		t.Errorf("expected ErrDimension, got %v", err)
	}
}

package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/dvdm/internal/dynamo"
	"github.com/san-kum/dvdm/internal/physics"
)

// Interior returns the physical grid values of a state, dropping the ghost
// slots of the Cahn-Hilliard layout.
func Interior(model string, n int, u dynamo.State) ([]float64, error) {
	if want := physics.StateLen(model, n); len(u) != want {
		return nil, dynamo.DimensionErrorf("state length %d, %s with N=%d expects %d", len(u), model, n, want)
	}
	if physics.IsCahnHilliard(model) {
		return u[2 : n+2], nil
	}
	return u, nil
}

// ProfileStats summarizes one snapshot.
type ProfileStats struct {
	Min, Max   float64
	Mean       float64
	StdDev     float64
	Interfaces int
	Mode       int
}

func Describe(profile []float64) ProfileStats {
	if len(profile) == 0 {
		return ProfileStats{}
	}
	mean, std := stat.MeanStdDev(profile, nil)
	if math.IsNaN(std) {
		std = 0
	}
	mode, _ := DominantMode(NeumannSpectrum(profile))
	return ProfileStats{
		Min:        floats.Min(profile),
		Max:        floats.Max(profile),
		Mean:       mean,
		StdDev:     std,
		Interfaces: Interfaces(profile, mean),
		Mode:       mode,
	}
}

// Interfaces counts sign changes of profile − level. For a Cahn-Hilliard
// profile this is the number of phase boundaries.
func Interfaces(profile []float64, level float64) int {
	count := 0
	prev := 0.0
	for _, v := range profile {
		d := v - level
		if d == 0 {
			continue
		}
		if prev != 0 && (d > 0) != (prev > 0) {
			count++
		}
		prev = d
	}
	return count
}

// ModePoint is the dominant mode of one snapshot.
type ModePoint struct {
	Label string
	Mode  int
	Power float64
}

// ModeHistory follows the dominant Neumann mode across a series of
// profiles, one per label.
func ModeHistory(labels []string, profiles [][]float64) ([]ModePoint, error) {
	if len(labels) != len(profiles) {
		return nil, dynamo.DimensionErrorf("%d labels for %d profiles", len(labels), len(profiles))
	}
	history := make([]ModePoint, len(labels))
	for i, p := range profiles {
		mode, power := DominantMode(NeumannSpectrum(p))
		history[i] = ModePoint{Label: labels[i], Mode: mode, Power: power}
	}
	return history, nil
}

package dynamo

import (
	"math"
	"strconv"
	"strings"
)

// maxPrecision bounds label digits to what a float64 time can carry.
const maxPrecision = 12

// Timeset controls the stepping loop and snapshot cadence.
//
// Steps run from InitTime+1 through InitTime+TimeSpan. A snapshot is
// persisted on the first step and on every step divisible by Brank.
// Precision is the number of decimals used in time labels.
type Timeset struct {
	InitTime  int
	TimeSpan  int
	Brank     int
	Dt        float64
	Precision int
}

func (ts Timeset) Validate() error {
	if ts.InitTime < 0 {
		return ConfigErrorf("inittime must be >= 0, got %d", ts.InitTime)
	}
	if ts.TimeSpan < 1 {
		return ConfigErrorf("timespan must be >= 1, got %d", ts.TimeSpan)
	}
	if ts.Brank < 1 {
		return ConfigErrorf("brank must be >= 1, got %d", ts.Brank)
	}
	if ts.Dt <= 0 || math.IsNaN(ts.Dt) || math.IsInf(ts.Dt, 0) {
		return ConfigErrorf("Dt must be positive, got %g", ts.Dt)
	}
	if ts.Precision < 0 || ts.Precision > maxPrecision {
		return ConfigErrorf("precision must be in [0, %d], got %d", maxPrecision, ts.Precision)
	}
	scaled := ts.Dt * math.Pow10(ts.Precision)
	if math.Abs(scaled-math.Round(scaled)) > 1e-9*math.Max(1, scaled) || math.Round(scaled) == 0 {
		return ConfigErrorf("precision %d cannot represent Dt=%g in time labels", ts.Precision, ts.Dt)
	}
	return nil
}

// Time returns the physical time of a step.
func (ts Timeset) Time(step int) float64 {
	return float64(step) * ts.Dt
}

// Label returns the snapshot label of a step.
func (ts Timeset) Label(step int) string {
	return Label(step, ts.Dt, ts.Precision)
}

// LastStep is the final step index of the run.
func (ts Timeset) LastStep() int {
	return ts.InitTime + ts.TimeSpan
}

// Saves reports whether step t is persisted.
func (ts Timeset) Saves(t int) bool {
	return t%ts.Brank == 0 || t == ts.InitTime+1
}

// Label formats step*dt with a fixed number of decimals. The same inputs
// always give the same string, so labels written by one run are found by
// the next.
func Label(step int, dt float64, precision int) string {
	return strconv.FormatFloat(float64(step)*dt, 'f', precision, 64)
}

// StepOf inverts Label: it returns the step whose label is label.
func StepOf(label string, dt float64) (int, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(label), 64)
	if err != nil {
		return 0, ConfigErrorf("bad time label %q", label)
	}
	if dt <= 0 {
		return 0, ConfigErrorf("Dt must be positive, got %g", dt)
	}
	return int(math.Round(v / dt)), nil
}

package dynamo

import (
	"errors"
	"testing"
)

func TestLabel(t *testing.T) {
	tests := []struct {
		step      int
		dt        float64
		precision int
		want      string
	}{
		{0, 0.5, 1, "0.0"},
		{1, 0.5, 1, "0.5"},
		{4, 0.5, 1, "2.0"},
		{3, 0.1, 1, "0.3"},
		{7, 0.01, 2, "0.07"},
		{10, 1, 0, "10"},
		{1000000, 0.001, 3, "1000.000"},
	}

	for _, tt := range tests {
		if got := Label(tt.step, tt.dt, tt.precision); got != tt.want {
			t.Errorf("Label(%d, %g, %d) = %q, want %q", tt.step, tt.dt, tt.precision, got, tt.want)
		}
	}
}

func TestStepOf(t *testing.T) {
	for _, step := range []int{0, 1, 7, 123} {
		label := Label(step, 0.1, 1)
		got, err := StepOf(label, 0.1)
		if err != nil {
			t.Fatal(err)
		}
		if got != step {
			t.Errorf("StepOf(%q) = %d, want %d", label, got, step)
		}
	}

	if _, err := StepOf("abc", 0.1); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestTimesetValidate(t *testing.T) {
	valid := Timeset{InitTime: 0, TimeSpan: 4, Brank: 1, Dt: 0.5, Precision: 1}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid timeset, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Timeset)
	}{
		{"negative inittime", func(ts *Timeset) { ts.InitTime = -1 }},
		{"zero timespan", func(ts *Timeset) { ts.TimeSpan = 0 }},
		{"zero brank", func(ts *Timeset) { ts.Brank = 0 }},
		{"zero dt", func(ts *Timeset) { ts.Dt = 0 }},
		{"precision too small", func(ts *Timeset) { ts.Dt = 0.25 }},
		{"negative precision", func(ts *Timeset) { ts.Precision = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := valid
			tt.mutate(&ts)
			if err := ts.Validate(); !errors.Is(err, ErrConfiguration) {
				t.Errorf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestTimesetSaves(t *testing.T) {
	ts := Timeset{InitTime: 0, TimeSpan: 10, Brank: 4, Dt: 1, Precision: 0}
	var saved []int
	for step := ts.InitTime + 1; step <= ts.LastStep(); step++ {
		if ts.Saves(step) {
			saved = append(saved, step)
		}
	}
	want := []int{1, 4, 8}
	if len(saved) != len(want) {
		t.Fatalf("saved steps %v, want %v", saved, want)
	}
	for i := range want {
		if saved[i] != want[i] {
			t.Errorf("saved steps %v, want %v", saved, want)
		}
	}
	if ts.Time(3) != 3 || ts.Label(3) != "3" {
		t.Errorf("unexpected time/label for step 3: %v %s", ts.Time(3), ts.Label(3))
	}
}

package viz

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/san-kum/dvdm/internal/dynamo"
)

func TestInvariantTable(t *testing.T) {
	rows := []InvariantRow{
		{Label: "0.0", Mass: 1, Energy: 2},
		{Label: "0.5", Mass: 1, Energy: 1.5},
	}
	out := InvariantTable(rows)
	if !strings.Contains(out, "0.5") || !strings.Contains(out, "non-increasing") {
		t.Errorf("unexpected table:\n%s", out)
	}

	rows = append(rows, InvariantRow{Label: "1.0", Mass: 1, Energy: 1.7})
	if !strings.Contains(InvariantTable(rows), "energy increased") {
		t.Error("expected energy increase warning")
	}

	if !strings.Contains(InvariantTable(nil), "no snapshots") {
		t.Error("expected placeholder for empty table")
	}
}

func TestSummary(t *testing.T) {
	out := Summary("ch-dvdm", 4, 5, map[string]float64{"mass": 0.1, "energy": 2})
	for _, want := range []string{"ch-dvdm", "energy", "mass", "4", "5"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(Failure(errors.New("boom")), "boom") {
		t.Error("failure message lost")
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline([]float64{0, 1}, 2); got != "▁█" {
		t.Errorf("expected ▁█, got %q", got)
	}
	if got := Sparkline(nil, 3); got != "───" {
		t.Errorf("expected empty line, got %q", got)
	}
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, dynamo.Timeset{InitTime: 0, TimeSpan: 4, Brank: 1, Dt: 0.5, Precision: 1})
	p.OnSnapshot(2, "1.0", nil)
	p.OnSnapshot(4, "2.0", nil)

	out := buf.String()
	if !strings.Contains(out, "t=1.0") || !strings.HasSuffix(out, "\n") {
		t.Errorf("unexpected progress output %q", out)
	}
}

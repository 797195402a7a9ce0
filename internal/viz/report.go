package viz

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/dvdm/internal/dynamo"
)

// InvariantRow is the mass and energy of one snapshot.
type InvariantRow struct {
	Label  string
	Mass   float64
	Energy float64
}

// InvariantTable renders one row per snapshot with the change from the
// first row, and a sparkline of the energy.
func InvariantTable(rows []InvariantRow) string {
	if len(rows) == 0 {
		return Subtle.Render("no snapshots")
	}

	var sb strings.Builder
	sb.WriteString(HeaderStyle.Render(fmt.Sprintf("%-10s %22s %12s %22s %12s", "t", "mass", "Δmass", "energy", "Δenergy")))
	sb.WriteString("\n")

	m0, e0 := rows[0].Mass, rows[0].Energy
	energies := make([]float64, len(rows))
	increased := false
	for i, r := range rows {
		energies[i] = r.Energy
		style := MetricValue
		if i > 0 && r.Energy > rows[i-1].Energy {
			style = StatusWarn
			increased = true
		}
		sb.WriteString(fmt.Sprintf("%-10s %22.15e %12.3e %s %12.3e\n",
			r.Label, r.Mass, r.Mass-m0, style.Render(fmt.Sprintf("%22.15e", r.Energy)), r.Energy-e0))
	}

	sb.WriteString("\n")
	sb.WriteString(MetricLabel.Render("energy ") + Sparkline(energies, 40) + "\n")
	if increased {
		sb.WriteString(StatusWarn.Render("energy increased between snapshots"))
	} else {
		sb.WriteString(StatusOK.Render("energy non-increasing"))
	}
	return sb.String()
}

// Summary renders the metrics of a finished run in a bordered panel.
func Summary(title string, steps, snapshots int, metrics map[string]float64) string {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := []string{
		Title.Render(title),
		MetricLabel.Render("steps      ") + MetricValue.Render(fmt.Sprint(steps)),
		MetricLabel.Render("snapshots  ") + MetricValue.Render(fmt.Sprint(snapshots)),
	}
	for _, name := range names {
		lines = append(lines, MetricLabel.Render(fmt.Sprintf("%-11s", name))+MetricValue.Render(fmt.Sprintf("%.6e", metrics[name])))
	}
	return Panel.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// Failure renders a run error.
func Failure(err error) string {
	return StatusFailed.Render("failed: ") + err.Error()
}

// Progress prints a progress bar each time a snapshot is persisted.
type Progress struct {
	w     io.Writer
	first int
	last  int
	width int
}

func NewProgress(w io.Writer, ts dynamo.Timeset) *Progress {
	return &Progress{w: w, first: ts.InitTime, last: ts.LastStep(), width: 30}
}

func (p *Progress) OnSnapshot(step int, label string, u dynamo.State) {
	total := p.last - p.first
	if total <= 0 {
		return
	}
	percent := float64(step-p.first) / float64(total)
	fmt.Fprintf(p.w, "\r%s t=%s", ProgressBar(percent, p.width), label)
	if step >= p.last {
		fmt.Fprintln(p.w)
	}
}

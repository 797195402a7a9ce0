package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/dvdm/internal/analysis"
	"github.com/san-kum/dvdm/internal/dynamo"
	"github.com/san-kum/dvdm/internal/export"
	"github.com/san-kum/dvdm/internal/metrics"
	"github.com/san-kum/dvdm/internal/physics"
	"github.com/san-kum/dvdm/internal/storage"
	"github.com/san-kum/dvdm/internal/viz"
)

// storedRun is a finished or partial run read back from its output
// directory.
type storedRun struct {
	store  *storage.Store
	meta   *storage.RunMetadata
	labels []string
}

func openRun() (*storedRun, error) {
	st := storage.New(outputDir)
	meta, err := st.LoadMetadata()
	if err != nil {
		return nil, err
	}
	labels, err := st.Labels(dynamo.FieldU)
	if err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: no snapshots in %s", storage.ErrNotFound, outputDir)
	}
	return &storedRun{store: st, meta: meta, labels: labels}, nil
}

// profile loads the interior values of the snapshot at label.
func (r *storedRun) profile(label string) ([]float64, error) {
	u, err := r.store.Load(dynamo.FieldU, label)
	if err != nil {
		return nil, err
	}
	return analysis.Interior(r.meta.Model, r.meta.N, u)
}

func (r *storedRun) invariants() (*metrics.Invariants, error) {
	if !physics.IsCahnHilliard(r.meta.Model) {
		return nil, dynamo.ConfigErrorf("mass and energy are tracked for Cahn-Hilliard models, run is %s", r.meta.Model)
	}
	params, err := dynamo.NewParams(r.meta.Params)
	if err != nil {
		return nil, err
	}
	return metrics.NewInvariants(dynamo.Grid{N: r.meta.N, Dx: r.meta.Dx}, params)
}

func (r *storedRun) invariantRows() ([]viz.InvariantRow, error) {
	iv, err := r.invariants()
	if err != nil {
		return nil, err
	}
	rows := make([]viz.InvariantRow, 0, len(r.labels))
	for _, l := range r.labels {
		u, err := r.store.Load(dynamo.FieldU, l)
		if err != nil {
			return nil, err
		}
		mass, err := iv.Mass(u)
		if err != nil {
			return nil, err
		}
		energy, err := iv.TotalEnergy(u)
		if err != nil {
			return nil, err
		}
		rows = append(rows, viz.InvariantRow{Label: l, Mass: mass, Energy: energy})
	}
	return rows, nil
}

func listSnapshots(cmd *cobra.Command, args []string) error {
	run, err := openRun()
	if err != nil {
		return err
	}

	fmt.Printf("model: %s  N=%d  Dx=%g  Dt=%g  params=%v\n",
		run.meta.Model, run.meta.N, run.meta.Dx, run.meta.Dt, run.meta.Params)

	rates, err := run.store.Labels(dynamo.FieldRate)
	if err != nil {
		return err
	}
	hasRate := make(map[string]bool, len(rates))
	for _, l := range rates {
		hasRate[l] = true
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "T\tU\tDUDT")
	for _, l := range run.labels {
		rate := "-"
		if hasRate[l] {
			rate = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", l, run.store.Path(dynamo.FieldU, l), rate)
	}
	return w.Flush()
}

func plotSnapshot(cmd *cobra.Command, args []string) error {
	run, err := openRun()
	if err != nil {
		return err
	}
	l := label
	if l == "" {
		l = run.labels[len(run.labels)-1]
	}
	p, err := run.profile(l)
	if err != nil {
		return err
	}

	graph := asciigraph.Plot(p,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("%s U at t=%s", run.meta.Model, l)),
	)
	fmt.Println(graph)
	return nil
}

func exportPNG(cmd *cobra.Command, args []string) error {
	run, err := openRun()
	if err != nil {
		return err
	}
	prefix := run.meta.Model
	if len(args) > 0 {
		prefix = args[0]
	}

	picked := sample(run.labels, maxCurves)
	profiles := make([]export.Profile, 0, len(picked))
	for _, l := range picked {
		p, err := run.profile(l)
		if err != nil {
			return err
		}
		profiles = append(profiles, export.Profile{Label: l, Values: p})
	}
	profilePath := prefix + "_profiles.png"
	if err := export.ProfilesPNG(profilePath, run.meta.Model, run.meta.Dx, profiles); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", profilePath)

	if !physics.IsCahnHilliard(run.meta.Model) {
		return nil
	}
	rows, err := run.invariantRows()
	if err != nil {
		return err
	}
	mass := export.Series{Name: "mass"}
	energy := export.Series{Name: "energy"}
	for _, r := range rows {
		t, err := strconv.ParseFloat(r.Label, 64)
		if err != nil {
			return err
		}
		mass.Times = append(mass.Times, t)
		mass.Values = append(mass.Values, r.Mass)
		energy.Times = append(energy.Times, t)
		energy.Values = append(energy.Values, r.Energy)
	}
	invPath := prefix + "_invariants.png"
	if err := export.SeriesPNG(invPath, "discrete invariants", mass, energy); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", invPath)
	return nil
}

// sample picks at most n labels spread evenly, always keeping the first
// and the last.
func sample(labels []string, n int) []string {
	if n < 2 || len(labels) <= n {
		return labels
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, labels[i*(len(labels)-1)/(n-1)])
	}
	return out
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(outputDir)
	if jsonOut == "" {
		return st.WriteJSON(os.Stdout)
	}
	if err := st.ExportJSON(jsonOut); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", jsonOut)
	return nil
}

func showInvariants(cmd *cobra.Command, args []string) error {
	run, err := openRun()
	if err != nil {
		return err
	}
	rows, err := run.invariantRows()
	if err != nil {
		return err
	}
	fmt.Println(viz.InvariantTable(rows))
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	run, err := openRun()
	if err != nil {
		return err
	}

	profiles := make([][]float64, len(run.labels))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "T\tMIN\tMAX\tMEAN\tSTDDEV\tINTERFACES\tMODE")
	for i, l := range run.labels {
		p, err := run.profile(l)
		if err != nil {
			return err
		}
		profiles[i] = p
		s := analysis.Describe(p)
		fmt.Fprintf(w, "%s\t%.6f\t%.6f\t%.6e\t%.6e\t%d\t%d\n",
			l, s.Min, s.Max, s.Mean, s.StdDev, s.Interfaces, s.Mode)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	history, err := analysis.ModeHistory(run.labels, profiles)
	if err != nil {
		return err
	}
	power := make([]float64, len(history))
	for i, h := range history {
		power[i] = h.Power
	}
	first, last := history[0], history[len(history)-1]
	fmt.Printf("\ndominant mode %d → %d  power %s\n", first.Mode, last.Mode, viz.Sparkline(power, 40))
	return nil
}

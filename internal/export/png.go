// Package export renders snapshot series to image files.
package export

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/san-kum/dvdm/internal/dynamo"
)

// Size of saved figures.
var (
	Width  = 8 * vg.Inch
	Height = 4 * vg.Inch
)

// Profile is one curve: values on a uniform grid with spacing Dx.
type Profile struct {
	Label  string
	Values []float64
}

// ProfilesPNG plots each profile against x = i·dx and saves the figure.
// The file format follows the extension of path.
func ProfilesPNG(path, title string, dx float64, profiles []Profile) error {
	if len(profiles) == 0 {
		return dynamo.ConfigErrorf("no profiles to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "U"

	lines := make([]any, 0, 2*len(profiles))
	for _, prof := range profiles {
		points := make(plotter.XYs, len(prof.Values))
		for i, v := range prof.Values {
			points[i].X = float64(i) * dx
			points[i].Y = v
		}
		lines = append(lines, "t="+prof.Label, points)
	}
	if err := plotutil.AddLinePoints(p, lines...); err != nil {
		return fmt.Errorf("add profiles: %w", err)
	}
	return p.Save(Width, Height, path)
}

// Series is a named scalar history against time.
type Series struct {
	Name   string
	Times  []float64
	Values []float64
}

// SeriesPNG plots scalar histories such as mass and energy.
func SeriesPNG(path, title string, series ...Series) error {
	if len(series) == 0 {
		return dynamo.ConfigErrorf("no series to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "t"

	lines := make([]any, 0, 2*len(series))
	for _, s := range series {
		if len(s.Times) != len(s.Values) {
			return dynamo.DimensionErrorf("series %s: %d times for %d values", s.Name, len(s.Times), len(s.Values))
		}
		points := make(plotter.XYs, len(s.Values))
		for i := range points {
			points[i].X = s.Times[i]
			points[i].Y = s.Values[i]
		}
		lines = append(lines, s.Name, points)
	}
	if err := plotutil.AddLinePoints(p, lines...); err != nil {
		return fmt.Errorf("add series: %w", err)
	}
	return p.Save(Width, Height, path)
}

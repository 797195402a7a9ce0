// Package viz renders run summaries for the terminal with lipgloss.
//
//   - [Summary]: bordered panel with the final metrics of a run
//   - [InvariantTable]: mass and energy per snapshot with drift columns
//   - [Progress]: observer printing a progress bar as snapshots are written
package viz

// Package analysis provides diagnostics for snapshot profiles.
//
//   - [PowerSpectrum]: periodogram of a profile via FFT
//   - [NeumannSpectrum]: spectrum of the even extension, for reflecting ends
//   - [Describe]: extrema, mean, interface count and dominant mode
//   - [ModeHistory]: dominant mode across a snapshot series
//
// # Coarsening
//
// Under Cahn-Hilliard dynamics the dominant mode of a spinodal profile
// drops over time as interfaces merge:
//
//	history, _ := analysis.ModeHistory(series.Labels, profiles)
//	for _, p := range history {
//	    fmt.Println(p.Label, p.Mode)
//	}
package analysis

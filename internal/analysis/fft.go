package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// PowerSpectrum returns |X_k|²/n for k = 0..n/2, where X is the discrete
// Fourier transform of data. Any length is accepted.
func PowerSpectrum(data []float64) []float64 {
	n := len(data)
	if n == 0 {
		return nil
	}
	spectrum := fft.FFTReal(data)
	ps := make([]float64, n/2+1)
	for i := range ps {
		a := cmplx.Abs(spectrum[i])
		ps[i] = a * a / float64(n)
	}
	return ps
}

// NeumannSpectrum is the power spectrum of the even extension of a profile
// with reflecting ends. A profile cos(kπ(i+½)/n) puts all its power in bin k.
func NeumannSpectrum(profile []float64) []float64 {
	n := len(profile)
	ext := make([]float64, 2*n)
	copy(ext, profile)
	for i, v := range profile {
		ext[2*n-1-i] = v
	}
	return PowerSpectrum(ext)
}

// DominantMode returns the non-constant bin with the most power. It returns
// (0, 0) when there is none.
func DominantMode(ps []float64) (mode int, power float64) {
	for k := 1; k < len(ps); k++ {
		if ps[k] > power {
			mode, power = k, ps[k]
		}
	}
	return mode, power
}

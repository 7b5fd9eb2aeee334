package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// PowerSpectrum returns |X[k]| for k < n/2 of data with its mean removed.
func PowerSpectrum(data []float64) []float64 {
	if len(data) == 0 {
		return nil
	}
	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(len(data))

	centered := make([]float64, len(data))
	for i, v := range data {
		centered[i] = v - mean
	}

	spectrum := fft.FFTReal(centered)
	ps := make([]float64, len(spectrum)/2)
	for i := range ps {
		ps[i] = cmplx.Abs(spectrum[i])
	}
	return ps
}

// DominantFrequency returns the frequency in Hz of the largest non-DC
// spectral peak of data sampled every period seconds, and its magnitude.
func DominantFrequency(data []float64, period float64) (float64, float64) {
	if len(data) < 4 || period <= 0 {
		return 0, 0
	}
	ps := PowerSpectrum(data)

	peak, idx := 0.0, 0
	for i := 1; i < len(ps); i++ {
		if ps[i] > peak {
			peak, idx = ps[i], i
		}
	}
	return float64(idx) / (float64(len(data)) * period), peak
}

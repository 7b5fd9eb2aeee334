package analysis

import (
	"errors"
	"math"
	"testing"
)

func sampled(n int, period float64, f func(t float64) float64) ([]float64, []float64) {
	times := make([]float64, n)
	data := make([]float64, n)
	for i := range times {
		times[i] = float64(i) * period
		data[i] = f(times[i])
	}
	return times, data
}

func TestDominantFrequency(t *testing.T) {
	_, data := sampled(250, 0.04, func(t float64) float64 { return math.Sin(2 * math.Pi * 2.0 * t) })

	freq, mag := DominantFrequency(data, 0.04)
	// Bin width is 1/(250*0.04) = 0.1 Hz.
	if math.Abs(freq-2.0) > 1e-9 {
		t.Errorf("expected ~2 Hz, got %.3f", freq)
	}
	if mag <= 0 {
		t.Error("expected a nonzero peak")
	}

	if f, _ := DominantFrequency([]float64{1, 2}, 0.04); f != 0 {
		t.Errorf("expected 0 for short input, got %v", f)
	}
}

func TestPowerSpectrumRemovesMean(t *testing.T) {
	data := make([]float64, 100)
	for i := range data {
		data[i] = 5
	}
	ps := PowerSpectrum(data)
	if len(ps) != 50 {
		t.Fatalf("expected 50 bins, got %d", len(ps))
	}
	if ps[0] > 1e-9 {
		t.Errorf("expected no DC component, got %v", ps[0])
	}
	if PowerSpectrum(nil) != nil {
		t.Error("expected nil spectrum for empty input")
	}
}

func TestAnalyzeFirstOrder(t *testing.T) {
	// Exponential approach from 0.3 to 0 with a 0.5s time constant.
	times, pitch := sampled(200, 0.04, func(t float64) float64 { return 0.3 * math.Exp(-t/0.5) })

	r, err := Analyze(times, pitch, 0, 0.006)
	if err != nil {
		t.Fatal(err)
	}
	if r.Overshoot != 0 {
		t.Errorf("expected no overshoot, got %v", r.Overshoot)
	}
	// 10-90% rise of a first-order response is tau*ln(9).
	if math.Abs(r.RiseTime-0.5*math.Log(9)) > 0.08 {
		t.Errorf("unexpected rise time %v", r.RiseTime)
	}
	// 2% of 0.3 is reached at tau*ln(50).
	if math.Abs(r.SettlingTime-0.5*math.Log(50)) > 0.08 {
		t.Errorf("unexpected settling time %v", r.SettlingTime)
	}
}

func TestAnalyzeOvershootAndOffset(t *testing.T) {
	target := 0.2
	times, pitch := sampled(300, 0.04, func(t float64) float64 {
		return 0.18 - 0.18*math.Exp(-2*t)*math.Cos(4*t)
	})

	r, err := Analyze(times, pitch, target, 0.005)
	if err != nil {
		t.Fatal(err)
	}
	if r.Overshoot <= 0 {
		t.Errorf("expected overshoot past the target, got %v", r.Overshoot)
	}
	if math.Abs(r.SteadyStateError-0.02) > 1e-3 {
		t.Errorf("expected 0.02 steady-state error, got %v", r.SteadyStateError)
	}
	if !math.IsNaN(r.SettlingTime) {
		t.Errorf("never within tolerance of target, got settling %v", r.SettlingTime)
	}
}

func TestAnalyzeWrapsAcrossPi(t *testing.T) {
	times := []float64{0, 0.04, 0.08}
	pitch := []float64{-3.1, 3.13, 3.14}

	r, err := Analyze(times, pitch, math.Pi, 0.05)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(r.SteadyStateError) > 0.01 {
		t.Errorf("expected small wrapped error, got %v", r.SteadyStateError)
	}
	if r.SettlingTime != 0 {
		t.Errorf("expected settled from the start, got %v", r.SettlingTime)
	}
}

func TestAnalyzeTooShort(t *testing.T) {
	if _, err := Analyze([]float64{0}, []float64{0}, 0, 0.01); !errors.Is(err, ErrTooShort) {
		t.Errorf("expected ErrTooShort, got %v", err)
	}
}

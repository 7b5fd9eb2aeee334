package analysis

import (
	"errors"
	"math"

	"github.com/san-kum/pitchctl/internal/control"
)

var ErrTooShort = errors.New("analysis: need at least two samples")

// Response summarizes how pitch approached a constant target.
type Response struct {
	Target           float64
	Initial          float64
	Final            float64
	Overshoot        float64 // fraction of the initial error carried past the target
	RiseTime         float64 // 10% to 90% of the initial error removed; NaN if never
	SettlingTime     float64 // last entry into the tolerance band; NaN if never
	SteadyStateError float64 // wrapped target - final
	Frequency        float64 // dominant oscillation, Hz
}

// Analyze evaluates pitch samples taken at times against target. Errors
// are wrapped onto (-pi, pi] so targets near ±180 degrees behave.
func Analyze(times, pitch []float64, target, tolerance float64) (*Response, error) {
	if len(times) < 2 || len(times) != len(pitch) {
		return nil, ErrTooShort
	}

	errs := make([]float64, len(pitch))
	for i, p := range pitch {
		errs[i] = control.Wrap(p - target)
	}
	e0 := errs[0]
	last := len(pitch) - 1

	r := &Response{
		Target:           target,
		Initial:          pitch[0],
		Final:            pitch[last],
		SteadyStateError: -errs[last],
		RiseTime:         math.NaN(),
		SettlingTime:     math.NaN(),
	}

	if e0 != 0 {
		// Progress toward the target as a fraction of the initial error.
		t10, t90 := math.NaN(), math.NaN()
		worst := 0.0
		for i, e := range errs {
			progress := 1 - e/e0
			if math.IsNaN(t10) && progress >= 0.1 {
				t10 = times[i]
			}
			if math.IsNaN(t90) && progress >= 0.9 {
				t90 = times[i]
			}
			if progress-1 > worst {
				worst = progress - 1
			}
		}
		r.RiseTime = t90 - t10
		r.Overshoot = worst
	}

	settled := -1
	for i := last; i >= 0; i-- {
		if math.Abs(errs[i]) > tolerance {
			break
		}
		settled = i
	}
	if settled >= 0 {
		r.SettlingTime = times[settled] - times[0]
	}

	period := (times[last] - times[0]) / float64(last)
	r.Frequency, _ = DominantFrequency(errs, period)
	return r, nil
}

package control

import "math"

// CommandWindow is the actuator range. The minimum is mirrored about
// Neutral: Min = Neutral - (Max - Neutral).
type CommandWindow struct {
	Neutral int
	Max     int
}

func (w CommandWindow) Min() int {
	return w.Neutral - (w.Max - w.Neutral)
}

// Contains reports whether pwm lies in [Min, Max].
func (w CommandWindow) Contains(pwm int) bool {
	return pwm >= w.Min() && pwm <= w.Max
}

// AtLimit reports whether pwm sits on either edge of the window.
func (w CommandWindow) AtLimit(pwm int) bool {
	return pwm == w.Min() || pwm == w.Max
}

// Saturate clamps pwm into [Min, Max] and truncates toward zero. For a
// window with non-negative Min this is floor. NaN maps to Neutral.
func (w CommandWindow) Saturate(pwm float64) int {
	if math.IsNaN(pwm) {
		return w.Neutral
	}
	if pwm > float64(w.Max) {
		pwm = float64(w.Max)
	}
	if lo := float64(w.Min()); pwm < lo {
		pwm = lo
	}
	return int(pwm)
}

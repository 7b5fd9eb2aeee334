package control

// Gains are the PD coefficients applied by PDLaw.
type Gains struct {
	Kp float64
	Kd float64
}

// PDLaw returns the unsaturated control effort for the given pitch, pitch
// rate and desired pitch. The rate term uses the measured rate directly; no
// error history is kept.
func PDLaw(g Gains, pitch, pitchRate, desired float64) float64 {
	return g.Kp*Wrap(pitch-desired) + g.Kd*pitchRate
}

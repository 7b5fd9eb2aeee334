package control

// AttitudeSample is the latest attitude estimate. Angles in radians, rates
// in radians per second.
type AttitudeSample struct {
	Roll      float64
	Pitch     float64
	Yaw       float64
	RollRate  float64
	PitchRate float64
	YawRate   float64
}

// GainConfig is replaced as a unit by a configuration update.
type GainConfig struct {
	CommandMax int
	Kp         float64
	Kd         float64
	Enabled    bool
}

func (g GainConfig) Gains() Gains {
	return Gains{Kp: g.Kp, Kd: g.Kd}
}

type Setpoint struct {
	DesiredPitch float64
}

// State is one consistent view of everything a tick reads.
type State struct {
	Attitude AttitudeSample
	Gains    GainConfig
	Setpoint Setpoint
	Neutral  int
}

func (s State) Window() CommandWindow {
	return CommandWindow{Neutral: s.Neutral, Max: s.Gains.CommandMax}
}

// Evaluate computes the command for s. Disabled state emits Neutral.
func Evaluate(s State) int {
	if !s.Gains.Enabled {
		return s.Neutral
	}
	u := PDLaw(s.Gains.Gains(), s.Attitude.Pitch, s.Attitude.PitchRate, s.Setpoint.DesiredPitch)
	return s.Window().Saturate(float64(s.Neutral) - u)
}

// clampCommandMax keeps the window non-inverted.
func clampCommandMax(max, neutral int) int {
	if max < neutral {
		return neutral
	}
	return max
}

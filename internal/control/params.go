package control

const (
	DefaultDesiredPitchDeg = 0
	DefaultPWMMax          = 1900
	DefaultPWMNeutral      = 1500
	DefaultKp              = 600.0
	DefaultKd              = 50.0
	DefaultEnable          = true
)

// Params are the startup parameters. They are read once; afterwards only
// configuration updates change behavior.
type Params struct {
	DesiredPitchDeg int     `yaml:"desired_pitch" json:"desired_pitch"`
	PWMMax          int     `yaml:"pwm_max" json:"pwm_max"`
	PWMNeutral      int     `yaml:"pwm_neutral" json:"pwm_neutral"`
	Kp              float64 `yaml:"kp" json:"kp"`
	Kd              float64 `yaml:"kd" json:"kd"`
	Enable          bool    `yaml:"enable" json:"enable"`
}

func DefaultParams() Params {
	return Params{
		DesiredPitchDeg: DefaultDesiredPitchDeg,
		PWMMax:          DefaultPWMMax,
		PWMNeutral:      DefaultPWMNeutral,
		Kp:              DefaultKp,
		Kd:              DefaultKd,
		Enable:          DefaultEnable,
	}
}

// InitialState builds the startup State. The max clamp applies here too.
func (p Params) InitialState() State {
	return State{
		Gains: GainConfig{
			CommandMax: clampCommandMax(p.PWMMax, p.PWMNeutral),
			Kp:         p.Kp,
			Kd:         p.Kd,
			Enabled:    p.Enable,
		},
		Setpoint: Setpoint{DesiredPitch: DegreesToRadiansSigned(p.DesiredPitchDeg)},
		Neutral:  p.PWMNeutral,
	}
}

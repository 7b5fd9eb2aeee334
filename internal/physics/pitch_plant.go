package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/pitchctl/internal/dynamo"
)

type PitchPlant struct {
	Inertia    float64 `yaml:"inertia"`     // kg·m², added mass included
	ThrustGain float64 `yaml:"thrust_gain"` // N·m per PWM unit off neutral
	Righting   float64 `yaml:"righting"`    // N·m, m·g·GM
	Damping    float64 `yaml:"damping"`     // N·m·s/rad
	Trim       float64 `yaml:"trim"`        // N·m, constant payload moment
	Neutral    float64 `yaml:"-"`
}

func NewPitchPlant() *PitchPlant {
	return &PitchPlant{
		Inertia:    0.5,
		ThrustGain: 0.02,
		Righting:   2.2,
		Damping:    3.0,
		Neutral:    1500,
	}
}

func (p *PitchPlant) StateDim() int {
	return 2
}

func (p *PitchPlant) ControlDim() int {
	return 1
}

func (p *PitchPlant) Torque(pwm float64) float64 {
	return p.ThrustGain * (pwm - p.Neutral)
}

func (p *PitchPlant) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	theta := x[0]
	q := x[1]

	pwm := p.Neutral
	if len(u) > 0 {
		pwm = u[0]
	}
	moment := p.Torque(pwm) - p.Righting*math.Sin(theta) - p.Damping*q + p.Trim

	return dynamo.State{q, moment / p.Inertia}
}

// Energy is rotational kinetic energy plus the righting potential.
func (p *PitchPlant) Energy(x dynamo.State) float64 {
	ke := 0.5 * p.Inertia * x[1] * x[1]
	pe := p.Righting * (1 - math.Cos(x[0]))
	return ke + pe
}

func (p *PitchPlant) GetParams() map[string]float64 {
	return map[string]float64{
		"inertia":     p.Inertia,
		"thrust_gain": p.ThrustGain,
		"righting":    p.Righting,
		"damping":     p.Damping,
		"trim":        p.Trim,
	}
}

func (p *PitchPlant) SetParam(name string, value float64) error {
	switch name {
	case "inertia":
		if value <= 0 {
			return fmt.Errorf("%w: inertia must be positive, got %f", dynamo.ErrParameterBounds, value)
		}
		p.Inertia = value
	case "thrust_gain":
		p.ThrustGain = value
	case "righting":
		p.Righting = value
	case "damping":
		p.Damping = value
	case "trim":
		p.Trim = value
	default:
		return fmt.Errorf("%w: %s", dynamo.ErrUnknownParam, name)
	}
	return nil
}

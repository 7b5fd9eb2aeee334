package control

import (
	"fmt"
	"math"
	"sync"

	"github.com/san-kum/pitchctl/internal/dynamo"
)

// Pitch is the single owner of the controller State. Attitude updates,
// configuration updates and ticks may run on different goroutines.
type Pitch struct {
	mu    sync.Mutex
	state State
}

func NewPitch(p Params) *Pitch {
	return &Pitch{state: p.InitialState()}
}

func (c *Pitch) UpdateAttitude(a AttitudeSample) {
	c.mu.Lock()
	c.state.Attitude = a
	c.mu.Unlock()
}

// UpdateGains replaces the gain configuration and returns what was stored.
// A CommandMax below neutral is stored as neutral.
func (c *Pitch) UpdateGains(g GainConfig) GainConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	g.CommandMax = clampCommandMax(g.CommandMax, c.state.Neutral)
	c.state.Gains = g
	return g
}

// SetTarget stores a degree setpoint and returns it in radians.
func (c *Pitch) SetTarget(deg int) float64 {
	rad := DegreesToRadiansSigned(deg)
	c.SetDesiredPitch(rad)
	return rad
}

func (c *Pitch) SetDesiredPitch(rad float64) {
	c.mu.Lock()
	c.state.Setpoint.DesiredPitch = rad
	c.mu.Unlock()
}

func (c *Pitch) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Pitch) Window() CommandWindow {
	return c.Snapshot().Window()
}

// Tick evaluates one command from a consistent snapshot.
func (c *Pitch) Tick() int {
	return Evaluate(c.Snapshot())
}

// Compute feeds plant state [theta, q] in as the attitude sample and ticks.
// It lets a simulated plant drive the same path as a live attitude source.
func (c *Pitch) Compute(x dynamo.State, t float64) dynamo.Control {
	if len(x) < 2 {
		return dynamo.Control{float64(c.Snapshot().Neutral)}
	}
	c.UpdateAttitude(AttitudeSample{Pitch: x[0], PitchRate: x[1]})
	return dynamo.Control{float64(c.Tick())}
}

// GetParams returns tunable parameters for live adjustment
func (c *Pitch) GetParams() map[string]float64 {
	s := c.Snapshot()
	enabled := 0.0
	if s.Gains.Enabled {
		enabled = 1
	}
	return map[string]float64{
		"Kp":      s.Gains.Kp,
		"Kd":      s.Gains.Kd,
		"Max":     float64(s.Gains.CommandMax),
		"Target":  RadiansToDegrees(s.Setpoint.DesiredPitch),
		"Enabled": enabled,
	}
}

// SetParam adjusts one parameter through the same paths as external
// updates, so the CommandMax clamp still applies. Target is in degrees.
func (c *Pitch) SetParam(name string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%w: %s is %v", dynamo.ErrParameterBounds, name, value)
	}
	if (name == "Max" || name == "Target") && !fitsInt(value) {
		return fmt.Errorf("%w: %s %g overflows int", dynamo.ErrParameterBounds, name, value)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	g := c.state.Gains
	switch name {
	case "Kp":
		g.Kp = value
	case "Kd":
		g.Kd = value
	case "Max":
		g.CommandMax = int(value)
	case "Enabled":
		g.Enabled = value != 0
	case "Target":
		c.state.Setpoint.DesiredPitch = DegreesToRadiansSigned(int(math.Round(value)))
		return nil
	default:
		return fmt.Errorf("%w: %s", dynamo.ErrUnknownParam, name)
	}
	g.CommandMax = clampCommandMax(g.CommandMax, c.state.Neutral)
	c.state.Gains = g
	return nil
}

// fitsInt reports whether value converts to int without overflow.
func fitsInt(value float64) bool {
	return value >= math.MinInt && value < math.MaxInt
}

// Neutral holds the actuator at a fixed command. It is the open-loop
// baseline for simulations.
type Neutral struct {
	PWM int
}

func NewNeutral(pwm int) *Neutral {
	return &Neutral{PWM: pwm}
}

func (n *Neutral) Compute(x dynamo.State, t float64) dynamo.Control {
	return dynamo.Control{float64(n.PWM)}
}

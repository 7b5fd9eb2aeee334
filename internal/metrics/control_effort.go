package metrics

import (
	"math"

	"github.com/san-kum/pitchctl/internal/dynamo"
)

// ControlEffort is the mean absolute command offset from neutral, in PWM
// units.
type ControlEffort struct {
	name    string
	neutral float64
	sum     float64
	samples int
}

func NewControlEffort(neutral int) *ControlEffort {
	return &ControlEffort{
		name:    "control_effort",
		neutral: float64(neutral),
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if len(u) == 0 {
		return
	}
	c.sum += math.Abs(u[0] - c.neutral)
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}

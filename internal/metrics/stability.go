package metrics

import (
	"math"

	"github.com/san-kum/pitchctl/internal/control"
	"github.com/san-kum/pitchctl/internal/dynamo"
)

// Stability is the fraction of samples whose wrapped pitch error stays
// inside a band around the current target.
type Stability struct {
	source Source
	band   float64
	inside int
	total  int
}

func NewStability(source Source, band float64) *Stability {
	return &Stability{source: source, band: band}
}

func (s *Stability) Name() string { return "stability" }

func (s *Stability) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if len(x) == 0 {
		return
	}
	s.total++
	if math.Abs(control.Wrap(x[0]-s.source().Setpoint.DesiredPitch)) <= s.band {
		s.inside++
	}
}

// Value is 1 before any sample.
func (s *Stability) Value() float64 {
	if s.total == 0 {
		return 1
	}
	return float64(s.inside) / float64(s.total)
}

func (s *Stability) Reset() {
	s.inside, s.total = 0, 0
}

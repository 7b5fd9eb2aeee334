package metrics

import (
	"math"

	"github.com/san-kum/pitchctl/internal/control"
	"github.com/san-kum/pitchctl/internal/dynamo"
)

// TrackingError is the RMS of the wrapped pitch error against the current
// target, in radians.
type TrackingError struct {
	source  Source
	sumSq   float64
	samples int
}

func NewTrackingError(source Source) *TrackingError {
	return &TrackingError{source: source}
}

func (e *TrackingError) Name() string {
	return "tracking_rms"
}

func (e *TrackingError) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if len(x) == 0 {
		return
	}
	err := control.Wrap(x[0] - e.source().Setpoint.DesiredPitch)
	e.sumSq += err * err
	e.samples++
}

func (e *TrackingError) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return math.Sqrt(e.sumSq / float64(e.samples))
}

func (e *TrackingError) Reset() {
	e.sumSq = 0
	e.samples = 0
}

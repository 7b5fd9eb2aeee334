package metrics

import "github.com/san-kum/pitchctl/internal/dynamo"

// Saturation is the fraction of ticks whose command sat on a window edge.
type Saturation struct {
	source  Source
	hits    int
	samples int
}

func NewSaturation(source Source) *Saturation {
	return &Saturation{source: source}
}

func (s *Saturation) Name() string {
	return "saturation"
}

func (s *Saturation) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if len(u) == 0 {
		return
	}
	s.samples++
	w := s.source().Window()
	// A degenerate window (Max == Neutral) is always at its limit.
	if w.Max > w.Neutral && w.AtLimit(int(u[0])) {
		s.hits++
	}
}

func (s *Saturation) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.hits) / float64(s.samples)
}

func (s *Saturation) Reset() {
	s.hits = 0
	s.samples = 0
}

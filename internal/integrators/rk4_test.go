package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/pitchctl/internal/dynamo"
)

type harmonic struct{}

func (h *harmonic) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

func (h *harmonic) StateDim() int   { return 2 }
func (h *harmonic) ControlDim() int { return 0 }

func run(integ dynamo.Integrator, steps int, dt float64) dynamo.State {
	x := dynamo.State{1.0, 0.0}
	for i := 0; i < steps; i++ {
		x = integ.Step(&harmonic{}, x, dynamo.Control{}, float64(i)*dt, dt)
	}
	return x
}

func TestRK4Accuracy(t *testing.T) {
	dt := 0.01
	steps := 100
	x := run(NewRK4(), steps, dt)

	expectedX := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)

	if math.Abs(x[0]-expectedX) > 1e-4 {
		t.Errorf("position error too large: got %.6f, expected %.6f", x[0], expectedX)
	}
	if math.Abs(x[1]-expectedV) > 1e-4 {
		t.Errorf("velocity error too large: got %.6f, expected %.6f", x[1], expectedV)
	}
}

func TestRK4BeatsEuler(t *testing.T) {
	dt := 0.05
	steps := 40
	exact := math.Cos(float64(steps) * dt)

	rk := math.Abs(run(NewRK4(), steps, dt)[0] - exact)
	eu := math.Abs(run(NewEuler(), steps, dt)[0] - exact)
	if rk >= eu {
		t.Errorf("expected rk4 error (%g) below euler error (%g)", rk, eu)
	}
}

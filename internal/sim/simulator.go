package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/pitchctl/internal/dynamo"
)

// Simulator closes the loop between a sampled controller and a continuous
// plant. The controller runs once per Period; its command is held while the
// plant is integrated in Dt sub-steps.
type Simulator struct {
	dyn        dynamo.System
	integrator dynamo.Integrator
	controller dynamo.Controller
	metrics    []dynamo.Metric
	observers  []dynamo.Observer
}

func New(dyn dynamo.System, integrator dynamo.Integrator, controller dynamo.Controller) *Simulator {
	return &Simulator{
		dyn:        dyn,
		integrator: integrator,
		controller: controller,
		metrics:    make([]dynamo.Metric, 0),
		observers:  make([]dynamo.Observer, 0),
	}
}

func (s *Simulator) AddMetric(m dynamo.Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o dynamo.Observer) { s.observers = append(s.observers, o) }

// SubSteps is the number of plant steps per controller tick.
func SubSteps(cfg dynamo.Config) int {
	n := int(math.Round(cfg.Period / cfg.Dt))
	if n < 1 {
		n = 1
	}
	return n
}

// Ticks is the number of whole controller periods in the run. A duration
// that is a multiple of the period within rounding keeps its last tick.
func Ticks(cfg dynamo.Config) int {
	return int(math.Floor(cfg.Duration/(float64(SubSteps(cfg))*cfg.Dt) + 1e-9))
}

func (s *Simulator) Run(ctx context.Context, x0 dynamo.State, cfg dynamo.Config) (*dynamo.Result, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	if len(x0) != s.dyn.StateDim() {
		return nil, fmt.Errorf("%w: initial state has %d entries, plant expects %d",
			dynamo.ErrDimensionMismatch, len(x0), s.dyn.StateDim())
	}

	sub := SubSteps(cfg)
	ticks := Ticks(cfg)
	result := &dynamo.Result{
		States:   make([]dynamo.State, 0, ticks+1),
		Controls: make([]dynamo.Control, 0, ticks),
		Times:    make([]float64, 0, ticks+1),
		Metrics:  make(map[string]float64),
		Errors:   make([]error, 0),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	x := x0.Clone()
	t := 0.0

	result.States = append(result.States, x.Clone())
	result.Times = append(result.Times, t)

	for i := 0; i < ticks; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		newX, u, err := s.Tick(x, t, cfg)
		result.Controls = append(result.Controls, u)
		result.Ticks++
		if err != nil {
			result.Errors = append(result.Errors, &dynamo.SimulationError{
				Step:    i,
				Time:    t,
				State:   x.Clone(),
				Wrapped: err,
			})
			break
		}

		x = newX
		t += float64(sub) * cfg.Dt
		result.StepsTaken += sub

		result.States = append(result.States, x.Clone())
		result.Times = append(result.Times, t)
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, nil
}

// Tick samples the controller once at (x, t), notifies metrics and
// observers, and integrates the plant over one control period.
func (s *Simulator) Tick(x dynamo.State, t float64, cfg dynamo.Config) (dynamo.State, dynamo.Control, error) {
	u := s.controller.Compute(x, t)

	for _, m := range s.metrics {
		m.Observe(x, u, t)
	}
	for _, obs := range s.observers {
		obs.OnStep(x, u, t)
	}

	sub := SubSteps(cfg)
	for j := 0; j < sub; j++ {
		x = s.integrator.Step(s.dyn, x, u, t, cfg.Dt)
		t += cfg.Dt
		if cfg.ValidateState && !x.IsValid() {
			return x, u, dynamo.ErrInvalidState
		}
	}
	return x, u, nil
}

func Validate(cfg dynamo.Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", cfg.Duration)
	}
	if cfg.Period < cfg.Dt {
		return fmt.Errorf("control period %f shorter than dt %f", cfg.Period, cfg.Dt)
	}
	return nil
}

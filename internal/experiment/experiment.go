package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/pitchctl/internal/dynamo"
	"github.com/san-kum/pitchctl/internal/sim"
)

type Config struct {
	Integrator string
	Controller string
	InitState  []float64
	Dt         float64
	Duration   float64
	Period     float64
}

type Experiment struct {
	cfg       Config
	simulator *sim.Simulator
}

func New(cfg Config) *Experiment {
	return &Experiment{cfg: cfg}
}

func (e *Experiment) Setup(dyn dynamo.System, integrator dynamo.Integrator, controller dynamo.Controller, metrics []dynamo.Metric) error {
	e.simulator = sim.New(dyn, integrator, controller)
	for _, m := range metrics {
		e.simulator.AddMetric(m)
	}
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}

	x0 := make(dynamo.State, len(e.cfg.InitState))
	copy(x0, e.cfg.InitState)

	simCfg := dynamo.Config{
		Dt:            e.cfg.Dt,
		Duration:      e.cfg.Duration,
		Period:        e.cfg.Period,
		ValidateState: true,
	}

	return e.simulator.Run(ctx, x0, simCfg)
}

// Simulator returns the underlying simulator for adding observers
func (e *Experiment) Simulator() *sim.Simulator {
	return e.simulator
}

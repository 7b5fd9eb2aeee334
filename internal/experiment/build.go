package experiment

import (
	"github.com/san-kum/pitchctl/internal/config"
	"github.com/san-kum/pitchctl/internal/dynamo"
)

// Build assembles a closed-loop experiment from a configuration. The
// controller is returned so callers can retune it between runs.
func (r *Registry) Build(cfg *config.Config) (*Experiment, dynamo.Controller, error) {
	ctrl, err := r.GetController(cfg.Sim.Controller, cfg.Params)
	if err != nil {
		return nil, nil, err
	}
	exp, err := r.BuildWith(cfg, ctrl)
	if err != nil {
		return nil, nil, err
	}
	return exp, ctrl, nil
}

// BuildWith is Build around a caller-supplied controller.
func (r *Registry) BuildWith(cfg *config.Config, ctrl dynamo.Controller) (*Experiment, error) {
	integ, err := r.GetIntegrator(cfg.Sim.Integrator)
	if err != nil {
		return nil, err
	}

	exp := New(Config{
		Integrator: cfg.Sim.Integrator,
		Controller: cfg.Sim.Controller,
		InitState:  cfg.InitState(),
		Dt:         cfg.Sim.Dt,
		Duration:   cfg.Sim.Duration,
		Period:     cfg.Loop.Period().Seconds(),
	})
	if err := exp.Setup(cfg.PlantModel(), integ, ctrl, r.DefaultMetrics(cfg.Params, ctrl)); err != nil {
		return nil, err
	}
	return exp, nil
}

// Cfg returns the experiment's run configuration.
func (e *Experiment) Cfg() Config {
	return e.cfg
}

package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/pitchctl/internal/control"
	"github.com/san-kum/pitchctl/internal/dynamo"
	"github.com/san-kum/pitchctl/internal/integrators"
	"github.com/san-kum/pitchctl/internal/metrics"
)

// StabilityThreshold is the band, in radians of wrapped pitch error, that
// the default stability metric counts as held.
const StabilityThreshold = 0.5

type Registry struct {
	integrators map[string]func() dynamo.Integrator
	controllers map[string]func(control.Params) dynamo.Controller
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]func() dynamo.Integrator),
		controllers: make(map[string]func(control.Params) dynamo.Controller),
	}

	r.integrators["euler"] = func() dynamo.Integrator { return integrators.NewEuler() }
	r.integrators["rk4"] = func() dynamo.Integrator { return integrators.NewRK4() }

	r.controllers["none"] = func(p control.Params) dynamo.Controller {
		return control.NewNeutral(p.PWMNeutral)
	}
	r.controllers["pd"] = func(p control.Params) dynamo.Controller {
		return control.NewPitch(p)
	}

	return r
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func (r *Registry) GetController(name string, params control.Params) (dynamo.Controller, error) {
	fn, ok := r.controllers[name]
	if !ok {
		return nil, fmt.Errorf("unknown controller: %s", name)
	}
	return fn(params), nil
}

func (r *Registry) ListControllers() []string {
	names := make([]string, 0, len(r.controllers))
	for name := range r.controllers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// snapshotter is a controller whose live state metrics can follow.
type snapshotter interface {
	Snapshot() control.State
}

// DefaultMetrics measure against ctrl's live state when it exposes a
// Snapshot, so target and window changes during a run are tracked.
// Otherwise they use the startup state built from params.
func (r *Registry) DefaultMetrics(params control.Params, ctrl dynamo.Controller) []dynamo.Metric {
	source := metrics.Fixed(params.InitialState())
	if s, ok := ctrl.(snapshotter); ok {
		source = s.Snapshot
	}
	return []dynamo.Metric{
		metrics.NewControlEffort(params.PWMNeutral),
		metrics.NewSaturation(source),
		metrics.NewTrackingError(source),
		metrics.NewStability(source, StabilityThreshold),
	}
}

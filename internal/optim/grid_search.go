// Package optim tunes controller parameters against simulation metrics.
package optim

import (
	"context"
	"fmt"
	"math"

	"github.com/golang/glog"

	"github.com/san-kum/pitchctl/internal/config"
	"github.com/san-kum/pitchctl/internal/dynamo"
	"github.com/san-kum/pitchctl/internal/experiment"
)

// GridSearch evaluates every combination of the given parameter values and
// keeps the one with the lowest metric.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

type Outcome struct {
	Params    map[string]float64
	Value     float64
	Evaluated int
	Failed    int
}

// Search runs build for each grid point. A point whose build or run fails,
// or whose run records an error, counts as failed and is skipped.
func (g *GridSearch) Search(
	ctx context.Context,
	build func(params map[string]float64) (*experiment.Experiment, error),
	metricName string,
) (*Outcome, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, fmt.Errorf("grid has %d names and %d ranges", len(g.paramNames), len(g.ranges))
	}
	out := &Outcome{Value: math.Inf(1)}
	if err := g.searchRecursive(ctx, 0, make(map[string]float64), build, metricName, out); err != nil {
		return nil, err
	}
	if out.Params == nil {
		return out, fmt.Errorf("no grid point produced %s (%d failed)", metricName, out.Failed)
	}
	return out, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	build func(map[string]float64) (*experiment.Experiment, error),
	metricName string,
	out *Outcome,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.paramNames) {
		out.Evaluated++
		exp, err := build(current)
		if err != nil {
			out.Failed++
			glog.V(1).Infof("grid %v: %v", current, err)
			return nil
		}

		result, err := exp.Run(ctx)
		if err != nil || len(result.Errors) > 0 {
			out.Failed++
			return nil
		}

		val, ok := result.Metrics[metricName]
		if !ok {
			return fmt.Errorf("unknown metric: %s", metricName)
		}
		glog.V(2).Infof("grid %v: %s=%.6f", current, metricName, val)
		if val < out.Value {
			out.Value = val
			out.Params = make(map[string]float64, len(current))
			for k, v := range current {
				out.Params[k] = v
			}
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, build, metricName, out); err != nil {
			return err
		}
	}
	return nil
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

// TuneGains searches Kp and Kd on the configured plant.
func TuneGains(ctx context.Context, base *config.Config, kp, kd []float64, metricName string) (*Outcome, error) {
	registry := experiment.NewRegistry()
	g := NewGridSearch([]string{"Kp", "Kd"}, [][]float64{kp, kd})

	return g.Search(ctx, func(params map[string]float64) (*experiment.Experiment, error) {
		exp, ctrl, err := registry.Build(base)
		if err != nil {
			return nil, err
		}
		tunable, ok := ctrl.(dynamo.Configurable)
		if !ok {
			return nil, fmt.Errorf("controller %s is not tunable", base.Sim.Controller)
		}
		for name, v := range params {
			if err := tunable.SetParam(name, v); err != nil {
				return nil, err
			}
		}
		return exp, nil
	}, metricName)
}

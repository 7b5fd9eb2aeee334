// Package automation scripts closed-loop simulations: timed configuration
// events replayed against the controller, parameter sweeps and Monte Carlo
// trials over the initial attitude.
package automation

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"time"

	"github.com/golang/glog"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/pitchctl/internal/config"
	"github.com/san-kum/pitchctl/internal/control"
	"github.com/san-kum/pitchctl/internal/dynamo"
	"github.com/san-kum/pitchctl/internal/experiment"
	"github.com/san-kum/pitchctl/internal/loop"
	"github.com/san-kum/pitchctl/internal/transport"
)

// Scenario is a simulated mission: the base configuration plus the
// settings messages an operator sends during the run.
type Scenario struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Preset      string  `yaml:"preset"`
	Duration    float64 `yaml:"duration"`
	InitPitch   float64 `yaml:"init_pitch"`
	Events      []Event `yaml:"events"`
}

// Event is applied at the first controller tick at or after At seconds.
// Exactly one of TargetDeg and Gains should be set.
type Event struct {
	At        float64     `yaml:"at"`
	TargetDeg *int        `yaml:"target_deg"`
	Gains     *GainsEvent `yaml:"gains"`
}

type GainsEvent struct {
	PWMMax int     `yaml:"pwm_max"`
	Kp     float64 `yaml:"kp"`
	Kd     float64 `yaml:"kd"`
	Enable bool    `yaml:"enable"`
}

func (e Event) Message() (transport.Message, error) {
	switch {
	case e.TargetDeg != nil && e.Gains != nil:
		return nil, fmt.Errorf("event at %.3fs sets both target and gains", e.At)
	case e.TargetDeg != nil:
		return transport.TargetMsg{Degrees: *e.TargetDeg}, nil
	case e.Gains != nil:
		return transport.GainsMsg{GainConfig: control.GainConfig{
			CommandMax: e.Gains.PWMMax,
			Kp:         e.Gains.Kp,
			Kd:         e.Gains.Kd,
			Enabled:    e.Gains.Enable,
		}}, nil
	default:
		return nil, fmt.Errorf("event at %.3fs is empty", e.At)
	}
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	return &scenario, nil
}

func (s *Scenario) Validate() error {
	for i, e := range s.Events {
		if e.At < 0 {
			return fmt.Errorf("event %d: negative time %.3f", i, e.At)
		}
		if _, err := e.Message(); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
	}
	return nil
}

// Config resolves the scenario's preset and overrides over base.
func (s *Scenario) Config(base *config.Config) (*config.Config, error) {
	cfg := *base
	if s.Preset != "" {
		p := config.GetPreset(s.Preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", s.Preset, config.ListPresets())
		}
		cfg.Params = p.Params
	}
	if s.Duration > 0 {
		cfg.Sim.Duration = s.Duration
	}
	cfg.Sim.InitPitch = s.InitPitch
	cfg.Sim.Controller = "pd"
	return &cfg, cfg.Validate()
}

// scripted replays events into the controller through the same ingestion
// path a live bus uses, then computes the command.
type scripted struct {
	pitch  *control.Pitch
	runner *loop.Runner
	queue  []scheduled
	next   int
}

type scheduled struct {
	at  float64
	msg transport.Message
}

// schedule converts events to messages ordered by time.
func schedule(events []Event) ([]scheduled, error) {
	queue := make([]scheduled, 0, len(events))
	for i, e := range events {
		msg, err := e.Message()
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		queue = append(queue, scheduled{at: e.At, msg: msg})
	}
	sort.SliceStable(queue, func(i, j int) bool { return queue[i].at < queue[j].at })
	return queue, nil
}

func (s *scripted) Compute(x dynamo.State, t float64) dynamo.Control {
	for s.next < len(s.queue) && s.queue[s.next].at <= t+1e-9 {
		msg := s.queue[s.next].msg
		glog.V(1).Infof("t=%.3f %s", t, msg.Topic())
		s.runner.Apply(msg)
		s.next++
	}
	return s.pitch.Compute(x, t)
}

// Snapshot exposes the scripted controller's live state to the run's
// metrics.
func (s *scripted) Snapshot() control.State {
	return s.pitch.Snapshot()
}

// RunScenario simulates the scenario on top of base.
func RunScenario(ctx context.Context, scenario *Scenario, base *config.Config, registry *experiment.Registry) (*dynamo.Result, *config.Config, error) {
	if err := scenario.Validate(); err != nil {
		return nil, nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	cfg, err := scenario.Config(base)
	if err != nil {
		return nil, nil, err
	}
	queue, err := schedule(scenario.Events)
	if err != nil {
		return nil, nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	pitch := control.NewPitch(cfg.Params)
	script := &scripted{
		pitch:  pitch,
		runner: loop.New(pitch, transport.NewLogSink(), loop.Config{Period: cfg.Loop.Period()}),
		queue:  queue,
	}
	exp, err := registry.BuildWith(cfg, script)
	if err != nil {
		return nil, nil, err
	}

	glog.Infof("scenario %q: %d events over %.1fs", scenario.Name, len(queue), cfg.Sim.Duration)
	result, err := exp.Run(ctx)
	if err != nil {
		return result, cfg, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	return result, cfg, nil
}

// ParameterSweep runs one simulation per value of a controller parameter.
type ParameterSweep struct {
	Param    string
	Min, Max float64
	NumSteps int
}

type SweepResult struct {
	Value      float64
	FinalPitch float64
	Metrics    map[string]float64
}

func RunSweep(ctx context.Context, sweep *ParameterSweep, base *config.Config, registry *experiment.Registry) ([]SweepResult, error) {
	if sweep.NumSteps < 2 {
		return nil, fmt.Errorf("sweep needs at least 2 steps, got %d", sweep.NumSteps)
	}
	results := make([]SweepResult, 0, sweep.NumSteps)
	step := (sweep.Max - sweep.Min) / float64(sweep.NumSteps-1)

	for i := 0; i < sweep.NumSteps; i++ {
		value := sweep.Min + float64(i)*step

		exp, ctrl, err := registry.Build(base)
		if err != nil {
			return nil, err
		}
		tunable, ok := ctrl.(dynamo.Configurable)
		if !ok {
			return nil, fmt.Errorf("controller %s is not tunable", base.Sim.Controller)
		}
		if err := tunable.SetParam(sweep.Param, value); err != nil {
			return nil, err
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return results, err
		}

		r := SweepResult{Value: value, Metrics: result.Metrics}
		if n := len(result.States); n > 0 {
			r.FinalPitch = result.States[n-1][0]
		}
		results = append(results, r)
		glog.V(1).Infof("sweep %d/%d: %s=%.4f", i+1, sweep.NumSteps, sweep.Param, value)
	}

	return results, nil
}

type MonteCarloConfig struct {
	// Perturbation bounds the uniform offset, in radians, added to the
	// configured initial pitch.
	Perturbation float64
	// RatePerturbation does the same for the initial pitch rate.
	RatePerturbation float64
	NumTrials        int
	// Tolerance is the final pitch error counted as settled.
	Tolerance float64
	Seed      int64
}

type MonteCarloResult struct {
	TrialID    int
	InitState  dynamo.State
	FinalState dynamo.State
	Settled    bool
}

func RunMonteCarlo(ctx context.Context, mc *MonteCarloConfig, base *config.Config, registry *experiment.Registry) ([]MonteCarloResult, error) {
	results := make([]MonteCarloResult, 0, mc.NumTrials)

	seed := mc.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	target := control.DegreesToRadiansSigned(base.Params.DesiredPitchDeg)

	for trial := 0; trial < mc.NumTrials; trial++ {
		cfg := *base
		cfg.Sim.InitPitch += (rng.Float64() - 0.5) * 2 * mc.Perturbation
		cfg.Sim.InitRate += (rng.Float64() - 0.5) * 2 * mc.RatePerturbation

		exp, _, err := registry.Build(&cfg)
		if err != nil {
			return nil, err
		}
		result, err := exp.Run(ctx)
		if err != nil {
			return results, err
		}

		r := MonteCarloResult{TrialID: trial, InitState: cfg.InitState()}
		if n := len(result.States); n > 0 && len(result.Errors) == 0 {
			r.FinalState = result.States[n-1]
			r.Settled = math.Abs(control.Wrap(r.FinalState[0]-target)) < mc.Tolerance
		}
		results = append(results, r)

		if (trial+1)%10 == 0 {
			glog.V(1).Infof("monte carlo: %d/%d trials complete", trial+1, mc.NumTrials)
		}
	}

	return results, nil
}

func MonteCarloStats(results []MonteCarloResult) (settled int, unsettled int) {
	for _, r := range results {
		if r.Settled {
			settled++
		} else {
			unsettled++
		}
	}
	return
}

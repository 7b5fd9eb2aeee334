package automation

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/pitchctl/internal/config"
	"github.com/san-kum/pitchctl/internal/experiment"
)

const scenarioYAML = `
name: dive
preset: default
duration: 4
init_pitch: 0
events:
  - at: 2.0
    gains: {pwm_max: 1900, kp: 600, kd: 50, enable: false}
  - at: 0.5
    target_deg: 10
`

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadScenario(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, scenarioYAML))
	if err != nil {
		t.Fatal(err)
	}
	if sc.Name != "dive" || len(sc.Events) != 2 {
		t.Fatalf("unexpected scenario %+v", sc)
	}
	if sc.Events[1].TargetDeg == nil || *sc.Events[1].TargetDeg != 10 {
		t.Error("expected target event")
	}

	if _, err := LoadScenario(writeScenario(t, "events:\n  - at: 1\n")); err == nil {
		t.Error("expected error for empty event")
	}
	if _, err := LoadScenario(writeScenario(t, "events:\n  - at: -1\n    target_deg: 5\n")); err == nil {
		t.Error("expected error for negative time")
	}
}

func TestRunScenario(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, scenarioYAML))
	if err != nil {
		t.Fatal(err)
	}

	result, cfg, err := RunScenario(context.Background(), sc, config.DefaultConfig(), experiment.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Sim.Duration != 4 {
		t.Errorf("expected scenario duration, got %v", cfg.Sim.Duration)
	}

	for i, u := range result.Controls {
		tm := result.Times[i]
		if tm < 0.5-1e-9 && u[0] != 1500 {
			t.Fatalf("expected neutral before the first event, got %v at %.2fs", u[0], tm)
		}
		if tm > 2.0+1e-9 && u[0] != 1500 {
			t.Fatalf("expected neutral once disabled, got %v at %.2fs", u[0], tm)
		}
	}

	// Nose-up setpoint: pitch just before the disable event is near 10°.
	target := 10 * math.Pi / 180
	idx := int(1.96 / 0.04)
	if got := result.States[idx][0]; got > target || target-got > 0.05 {
		t.Errorf("expected pitch near %.3f before disable, got %.3f", target, got)
	}
}

func TestRunScenarioUnknownPreset(t *testing.T) {
	sc := &Scenario{Name: "x", Preset: "missing"}
	if _, _, err := RunScenario(context.Background(), sc, config.DefaultConfig(), experiment.NewRegistry()); err == nil {
		t.Error("expected unknown preset error")
	}
}

func TestRunScenarioRejectsBadEvents(t *testing.T) {
	target := 5
	for name, sc := range map[string]*Scenario{
		"empty": {Name: "empty", Duration: 0.2, Events: []Event{{At: 0.04}}},
		"both": {Name: "both", Duration: 0.2, Events: []Event{{
			At:        0.04,
			TargetDeg: &target,
			Gains:     &GainsEvent{PWMMax: 1900, Kp: 600, Kd: 50, Enable: true},
		}}},
	} {
		if _, _, err := RunScenario(context.Background(), sc, config.DefaultConfig(), experiment.NewRegistry()); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestRunScenarioMetricsFollowTarget(t *testing.T) {
	target := 20
	sc := &Scenario{
		Name:      "hold",
		Duration:  2,
		InitPitch: 20 * math.Pi / 180,
		Events:    []Event{{At: 0, TargetDeg: &target}},
	}
	result, _, err := RunScenario(context.Background(), sc, config.DefaultConfig(), experiment.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	// Measured against 0 rad this would be about 0.3.
	if rms := result.Metrics["tracking_rms"]; rms > 0.1 {
		t.Errorf("expected tracking against the 20° target, got rms %.3f", rms)
	}
}

func TestRunSweep(t *testing.T) {
	base := config.DefaultConfig()
	base.Sim.Duration = 2

	results, err := RunSweep(context.Background(), &ParameterSweep{Param: "Kp", Min: 100, Max: 600, NumSteps: 3}, base, experiment.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, want := range []float64{100, 350, 600} {
		if results[i].Value != want {
			t.Errorf("step %d: expected %v, got %v", i, want, results[i].Value)
		}
		if _, ok := results[i].Metrics["tracking_rms"]; !ok {
			t.Errorf("step %d: missing tracking metric", i)
		}
	}

	if _, err := RunSweep(context.Background(), &ParameterSweep{Param: "Ki", Min: 0, Max: 1, NumSteps: 2}, base, experiment.NewRegistry()); err == nil {
		t.Error("expected unknown parameter error")
	}
}

func TestRunMonteCarlo(t *testing.T) {
	base := config.DefaultConfig()
	base.Sim.Duration = 4

	results, err := RunMonteCarlo(context.Background(), &MonteCarloConfig{
		Perturbation:     0.2,
		RatePerturbation: 0.5,
		NumTrials:        5,
		Tolerance:        0.02,
		Seed:             7,
	}, base, experiment.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}

	settled, unsettled := MonteCarloStats(results)
	if settled != 5 || unsettled != 0 {
		t.Errorf("expected all trials to settle, got %d/%d", settled, unsettled)
	}
}

func TestRunSweepMetricsUseSweptValue(t *testing.T) {
	base := config.DefaultConfig()
	base.Sim.Duration = 2
	base.Sim.InitPitch = 1.0
	registry := experiment.NewRegistry()

	byMax, err := RunSweep(context.Background(), &ParameterSweep{Param: "Max", Min: 1600, Max: 1900, NumSteps: 2}, base, registry)
	if err != nil {
		t.Fatal(err)
	}
	// A 1400..1600 window pins the first corrections at 1400.
	if sat := byMax[0].Metrics["saturation"]; sat <= 0.2 {
		t.Errorf("Max=1600: expected saturation above 0.2, got %.3f", sat)
	}
	if byMax[0].Metrics["saturation"] <= byMax[1].Metrics["saturation"] {
		t.Errorf("expected the narrow window to saturate more: %v vs %v", byMax[0].Metrics, byMax[1].Metrics)
	}

	base.Sim.InitPitch = 0.3
	byTarget, err := RunSweep(context.Background(), &ParameterSweep{Param: "Target", Min: 0, Max: 20, NumSteps: 2}, base, registry)
	if err != nil {
		t.Fatal(err)
	}
	last := byTarget[1]
	if math.Abs(last.FinalPitch-20*math.Pi/180) > 0.1 {
		t.Fatalf("expected pitch near 20°, got %.3f rad", last.FinalPitch)
	}
	if rms := last.Metrics["tracking_rms"]; rms > 0.1 {
		t.Errorf("Target=20: expected tracking against 20°, got rms %.3f", rms)
	}
}

package optim

import (
	"context"
	"errors"
	"testing"

	"github.com/san-kum/pitchctl/internal/config"
	"github.com/san-kum/pitchctl/internal/experiment"
)

func TestLinspace(t *testing.T) {
	got := Linspace(0, 1, 5)
	want := []float64{0, 0.25, 0.5, 0.75, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %v, got %v", i, want[i], got[i])
		}
	}
	if len(Linspace(3, 9, 1)) != 1 {
		t.Error("expected a single point")
	}
}

func TestTuneGainsPrefersFeedback(t *testing.T) {
	base := config.DefaultConfig()
	base.Sim.Duration = 3

	out, err := TuneGains(context.Background(), base, []float64{0, 600}, []float64{50}, "tracking_rms")
	if err != nil {
		t.Fatal(err)
	}
	if out.Evaluated != 2 || out.Failed != 0 {
		t.Errorf("unexpected counts %+v", out)
	}
	if out.Params["Kp"] != 600 {
		t.Errorf("expected Kp=600 to track better, got %v", out.Params)
	}
}

func TestSearchUnknownMetric(t *testing.T) {
	base := config.DefaultConfig()
	base.Sim.Duration = 0.5
	if _, err := TuneGains(context.Background(), base, []float64{600}, []float64{50}, "energy_drift"); err == nil {
		t.Error("expected unknown metric error")
	}
}

func TestSearchFailedBuilds(t *testing.T) {
	g := NewGridSearch([]string{"Kp"}, [][]float64{{1, 2}})
	out, err := g.Search(context.Background(), func(map[string]float64) (*experiment.Experiment, error) {
		return nil, errors.New("no plant")
	}, "tracking_rms")
	if err == nil {
		t.Fatal("expected error when every point fails")
	}
	if out.Failed != 2 {
		t.Errorf("expected 2 failures, got %d", out.Failed)
	}
}

func TestSearchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := TuneGains(ctx, config.DefaultConfig(), []float64{600}, []float64{50}, "tracking_rms"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

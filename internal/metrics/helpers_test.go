package metrics

import (
	"testing"

	"github.com/msdbook/msdsim/internal/fishery"
	"github.com/msdbook/msdsim/pkg/utils"
)

func TestTrajectoryObserverRecordsSimulation(t *testing.T) {
	c := NewCollector()
	opts := fishery.DefaultOptions()
	opts.Realizations = 3
	opts.Steps = 5
	opts.RecordRealizations = 2
	opts.Observer = NewTrajectoryObserver(c)

	sim, err := fishery.Simulate([]float64{0.2, 0.5, 1.0, 0.8, 0.3, 1.0}, fishery.DefaultParams(), opts, utils.NewRandSource(10))
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}

	// 4 metrics x 2 realizations x 6 steps
	if c.Len() != 48 {
		t.Fatalf("expected 48 points, got %d", c.Len())
	}

	prey := c.GetSeries(MetricPrey, RealizationLabels(1))
	if len(prey) != 6 {
		t.Fatalf("expected 6 prey points, got %d", len(prey))
	}
	for step, p := range prey {
		if p.Step != step || p.Value != sim.Prey[1][step] {
			t.Fatalf("step %d: got (%d, %f), want (%d, %f)", step, p.Step, p.Value, step, sim.Prey[1][step])
		}
	}

	if c.GetSeries(MetricHarvest, RealizationLabels(2)) != nil {
		t.Fatal("realization beyond RecordRealizations should not be recorded")
	}
}

func TestIsTrajectoryMetric(t *testing.T) {
	for _, name := range TrajectoryMetrics {
		if !IsTrajectoryMetric(name) {
			t.Errorf("expected %s to be a trajectory metric", name)
		}
	}
	if IsTrajectoryMetric("latency") {
		t.Error("latency is not a trajectory metric")
	}
}

package metrics

import (
	"strconv"

	"github.com/msdbook/msdsim/internal/fishery"
)

// Trajectory metric names
const (
	MetricPrey     = "prey"
	MetricPredator = "predator"
	MetricEffort   = "effort"
	MetricHarvest  = "harvest"
)

// TrajectoryMetrics lists the metrics a TrajectoryObserver records
var TrajectoryMetrics = []string{MetricPrey, MetricPredator, MetricEffort, MetricHarvest}

// LabelRealization is the label key identifying a realization
const LabelRealization = "realization"

// RealizationLabels creates a labels map for one realization
func RealizationLabels(realization int) map[string]string {
	return map[string]string{
		LabelRealization: strconv.Itoa(realization),
	}
}

// IsTrajectoryMetric reports whether name is one of TrajectoryMetrics
func IsTrajectoryMetric(name string) bool {
	for _, m := range TrajectoryMetrics {
		if m == name {
			return true
		}
	}
	return false
}

// TrajectoryObserver records simulation steps into a Collector
type TrajectoryObserver struct {
	collector *Collector
}

// NewTrajectoryObserver creates an observer writing to collector
func NewTrajectoryObserver(collector *Collector) *TrajectoryObserver {
	return &TrajectoryObserver{collector: collector}
}

// ObserveStep implements fishery.Observer
func (o *TrajectoryObserver) ObserveStep(s fishery.Step) {
	labels := RealizationLabels(s.Realization)
	o.collector.Record(MetricPrey, s.Step, s.Prey, labels)
	o.collector.Record(MetricPredator, s.Step, s.Predator, labels)
	o.collector.Record(MetricEffort, s.Step, s.Effort, labels)
	o.collector.Record(MetricHarvest, s.Step, s.Harvest, labels)
}

var _ fishery.Observer = (*TrajectoryObserver)(nil)

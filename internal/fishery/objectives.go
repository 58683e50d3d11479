package fishery

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/msdbook/msdsim/pkg/utils"
)

// ErrNonFiniteObjectives is returned when a state of the world drives the
// trajectories outside the float64 range.
var ErrNonFiniteObjectives = errors.New("objectives are not finite")

// Objectives are the five minimisation objectives and the single
// constraint of one evaluation.
type Objectives struct {
	NegNPV             float64 `json:"neg_npv"`
	PreyDeficit        float64 `json:"prey_deficit"`
	LowHarvestDuration float64 `json:"low_harvest_duration"`
	NegWorstHarvest    float64 `json:"neg_worst_harvest"`
	HarvestVariance    float64 `json:"harvest_variance"`
	ExtinctionDays     float64 `json:"extinction_days"`
}

// Objs returns the objective vector in optimiser order.
func (o Objectives) Objs() []float64 {
	return []float64{o.NegNPV, o.PreyDeficit, o.LowHarvestDuration, o.NegWorstHarvest, o.HarvestVariance}
}

// Cnstr returns the constraint vector.
func (o Objectives) Cnstr() []float64 {
	return []float64{o.ExtinctionDays}
}

// CheckFinite returns ErrNonFiniteObjectives, naming the offending fields,
// when any objective or the constraint is NaN or infinite.
func (o Objectives) CheckFinite() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"neg_npv", o.NegNPV},
		{"prey_deficit", o.PreyDeficit},
		{"low_harvest_duration", o.LowHarvestDuration},
		{"neg_worst_harvest", o.NegWorstHarvest},
		{"harvest_variance", o.HarvestVariance},
		{"extinction_days", o.ExtinctionDays},
	}
	var bad []string
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			bad = append(bad, f.name)
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("%w: %s", ErrNonFiniteObjectives, strings.Join(bad, ", "))
	}
	return nil
}

// Aggregate reduces per-realization statistics to objectives by taking
// means over realizations. The prey deficit averages (K-prey)/K over every
// recorded step of every realization.
func Aggregate(sim *Simulation) Objectives {
	n := len(sim.Summaries)
	if n == 0 {
		return Objectives{}
	}

	npv := make([]float64, n)
	p01 := make([]float64, n)
	variance := make([]float64, n)
	runs := make([]int, n)
	extinct := make([]int, n)
	for i, s := range sim.Summaries {
		npv[i] = s.NPV
		p01[i] = s.HarvestPercentile1
		variance[i] = s.HarvestVariance
		runs[i] = s.LowHarvestRun
		extinct[i] = s.PredatorExtinctSteps
	}

	var deficit float64
	var count int
	for _, row := range sim.Prey {
		for _, x := range row {
			deficit += (sim.K - x) / sim.K
			count++
		}
	}

	return Objectives{
		NegNPV:             -utils.Mean(npv),
		PreyDeficit:        deficit / float64(count),
		LowHarvestDuration: utils.MeanInts(runs),
		NegWorstHarvest:    -utils.Mean(p01),
		HarvestVariance:    utils.Mean(variance),
		ExtinctionDays:     utils.MeanInts(extinct),
	}
}

// Evaluation is the result of one fitness call.
type Evaluation struct {
	Objectives
	Simulation *Simulation `json:"-"`
}

// Evaluate simulates the fishery and aggregates the objectives. Objectives
// that overflow are reported as ErrNonFiniteObjectives. It is safe for
// concurrent use as long as each caller passes its own rng.
func Evaluate(vars []float64, p Params, opts Options, rng *utils.RandSource) (*Evaluation, error) {
	sim, err := Simulate(vars, p, opts, rng)
	if err != nil {
		return nil, err
	}
	objs := Aggregate(sim)
	if err := objs.CheckFinite(); err != nil {
		return nil, err
	}
	return &Evaluation{
		Objectives: objs,
		Simulation: sim,
	}, nil
}

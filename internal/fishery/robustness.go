package fishery

import (
	"context"
	"fmt"
	"sync"

	"github.com/msdbook/msdsim/pkg/utils"
)

// StateResult is the evaluation of one policy in one state of the world.
type StateResult struct {
	Index            int        `json:"index"`
	Params           Params     `json:"params"`
	Objectives       Objectives `json:"objectives"`
	PredatorDominant bool       `json:"predator_dominant"`
}

// EvaluateStates evaluates vars in every state using at most workers
// goroutines. State i draws its noise from a source derived from seed and
// i, so results do not depend on scheduling. Cancellation is checked before
// each state starts; on cancellation the partial results are discarded.
func EvaluateStates(ctx context.Context, vars []float64, states []Params, opts Options, seed int64, workers int) ([]StateResult, error) {
	if len(states) == 0 {
		return nil, fmt.Errorf("no states provided")
	}
	opts = opts.WithDefaults()
	opts.Observer = nil
	if err := opts.Validate(vars); err != nil {
		return nil, err
	}
	for i, p := range states {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("state %d: %w", i, err)
		}
	}
	if workers <= 0 {
		workers = 1
	}

	base := utils.NewRandSource(seed)
	semaphore := make(chan struct{}, workers)
	var wg sync.WaitGroup
	results := make([]StateResult, len(states))
	errs := make([]error, len(states))

	for i, p := range states {
		wg.Add(1)
		go func(idx int, state Params) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if err := ctx.Err(); err != nil {
				errs[idx] = err
				return
			}

			ev, err := Evaluate(vars, state, opts, base.Derive(int64(idx)))
			if err != nil {
				errs[idx] = fmt.Errorf("state %d: %w", idx, err)
				return
			}
			results[idx] = StateResult{
				Index:            idx,
				Params:           state,
				Objectives:       ev.Objectives,
				PredatorDominant: state.PredatorDominant(),
			}
		}(i, p)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// Criterion bounds one objective. A nil bound is open.
type Criterion struct {
	Objective string   `json:"objective" validate:"required,oneof=neg_npv prey_deficit low_harvest_duration neg_worst_harvest harvest_variance extinction_days"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
}

// Criteria are satisficing thresholds; a result satisfies them when every
// criterion holds.
type Criteria []Criterion

// ObjectiveValue looks up an objective or the constraint by its JSON name.
func (o Objectives) ObjectiveValue(name string) (float64, error) {
	switch name {
	case "neg_npv":
		return o.NegNPV, nil
	case "prey_deficit":
		return o.PreyDeficit, nil
	case "low_harvest_duration":
		return o.LowHarvestDuration, nil
	case "neg_worst_harvest":
		return o.NegWorstHarvest, nil
	case "harvest_variance":
		return o.HarvestVariance, nil
	case "extinction_days":
		return o.ExtinctionDays, nil
	}
	return 0, fmt.Errorf("unknown objective %q", name)
}

// Validate checks objective names and bound ordering.
func (c Criteria) Validate() error {
	for i, cr := range c {
		if _, err := (Objectives{}).ObjectiveValue(cr.Objective); err != nil {
			return fmt.Errorf("criterion %d: %w", i, err)
		}
		if cr.Min != nil && cr.Max != nil && *cr.Min > *cr.Max {
			return fmt.Errorf("criterion %d: min exceeds max", i)
		}
	}
	return nil
}

// Satisfies reports whether o meets both bounds of every criterion.
// Unknown objective names never satisfy.
func (c Criteria) Satisfies(o Objectives) bool {
	for _, cr := range c {
		v, err := o.ObjectiveValue(cr.Objective)
		if err != nil {
			return false
		}
		if cr.Min != nil && v < *cr.Min {
			return false
		}
		if cr.Max != nil && v > *cr.Max {
			return false
		}
	}
	return true
}

// SatisficingFraction returns the share of results that satisfy c.
func (c Criteria) SatisficingFraction(results []StateResult) float64 {
	if len(results) == 0 {
		return 0
	}
	met := 0
	for _, r := range results {
		if c.Satisfies(r.Objectives) {
			met++
		}
	}
	return float64(met) / float64(len(results))
}

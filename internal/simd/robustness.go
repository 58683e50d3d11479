package simd

import (
	"context"
	"fmt"

	"github.com/msdbook/msdsim/internal/fishery"
	"github.com/msdbook/msdsim/pkg/logger"
	"github.com/msdbook/msdsim/pkg/utils"
)

// RobustnessInput evaluates one policy across many states of the world.
// States are taken as given; otherwise Samples states are drawn by Latin
// hypercube around the base params within Bounds.
type RobustnessInput struct {
	EvaluationInput
	States   []fishery.Params `json:"states,omitempty" validate:"omitempty,max=10000"`
	Samples  int              `json:"samples,omitempty" validate:"gte=0,lte=10000"`
	Bounds   *fishery.Bounds  `json:"bounds,omitempty"`
	Criteria fishery.Criteria `json:"criteria,omitempty" validate:"omitempty,dive"`
}

// RobustnessReport summarises a multi-state evaluation.
type RobustnessReport struct {
	Seed                int64                 `json:"seed"`
	Results             []fishery.StateResult `json:"results"`
	SatisficingFraction float64               `json:"satisficing_fraction"`
	PredatorDominant    int                   `json:"predator_dominant"`
}

// Robustness evaluates in across its states using the configured workers.
func (e *Evaluator) Robustness(ctx context.Context, in RobustnessInput) (*RobustnessReport, error) {
	if len(in.States) == 0 && in.Samples <= 0 {
		return nil, fmt.Errorf("either states or samples is required")
	}
	if err := in.Criteria.Validate(); err != nil {
		return nil, err
	}

	sampler := utils.NewRandSource(e.Seed(in.EvaluationInput))
	seed := sampler.Seed()

	states := append([]fishery.Params(nil), in.States...)
	if len(states) == 0 {
		bounds := fishery.DefaultBounds()
		if in.Bounds != nil {
			bounds = *in.Bounds
		}
		var err error
		states, err = fishery.SampleStates(e.Params(in.EvaluationInput), bounds, in.Samples, sampler)
		if err != nil {
			return nil, err
		}
	}
	for i := range states {
		if states[i].Strategy == "" {
			states[i].Strategy = fishery.StrategyPreviousPrey
		}
	}

	results, err := fishery.EvaluateStates(ctx, in.Vars, states, e.Options(in.EvaluationInput), seed, e.Workers())
	if err != nil {
		return nil, err
	}

	report := &RobustnessReport{
		Seed:                seed,
		Results:             results,
		SatisficingFraction: in.Criteria.SatisficingFraction(results),
	}
	for _, r := range results {
		if r.PredatorDominant {
			report.PredatorDominant++
		}
	}
	logger.Info("robustness evaluated",
		"states", len(results),
		"satisficing_fraction", report.SatisficingFraction,
		"predator_dominant", report.PredatorDominant)
	return report, nil
}

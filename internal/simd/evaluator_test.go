package simd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/msdbook/msdsim/internal/fishery"
	"github.com/msdbook/msdsim/internal/rbf"
	"github.com/msdbook/msdsim/internal/storage"
)

func TestEvaluatorOptionsDefaults(t *testing.T) {
	e := NewEvaluator(testDefaults(), nil)

	opts := e.Options(EvaluationInput{Vars: moderateVars})
	if opts.Realizations != 5 || opts.Steps != 10 {
		t.Fatalf("expected configured defaults, got %d realizations %d steps", opts.Realizations, opts.Steps)
	}
	if opts.Shape != (rbf.Shape{NRBF: 2, NIn: 1, NOut: 1}) {
		t.Fatalf("unexpected shape %+v", opts.Shape)
	}

	opts = e.Options(EvaluationInput{Vars: moderateVars, Realizations: 3, Steps: 7})
	if opts.Realizations != 3 || opts.Steps != 7 {
		t.Fatalf("expected request overrides, got %d realizations %d steps", opts.Realizations, opts.Steps)
	}
}

func TestEvaluatorOptionsShapeInference(t *testing.T) {
	e := NewEvaluator(testDefaults(), nil)

	tests := []struct {
		name string
		in   EvaluationInput
		want int
	}{
		{name: "explicit", in: EvaluationInput{Vars: make([]float64, 9), NRBF: 3}, want: 3},
		{name: "inferred", in: EvaluationInput{Vars: make([]float64, 12)}, want: 4},
		{name: "fallback", in: EvaluationInput{Vars: make([]float64, 7)}, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.Options(tt.in).Shape.NRBF; got != tt.want {
				t.Fatalf("expected n_rbf %d, got %d", tt.want, got)
			}
		})
	}
}

func TestEvaluatorValidate(t *testing.T) {
	e := NewEvaluator(testDefaults(), nil)

	if err := e.Validate(moderateInput()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := e.Validate(EvaluationInput{Vars: make([]float64, 7)})
	var dvErr *rbf.InvalidDecisionVectorError
	if !errors.As(err, &dvErr) {
		t.Fatalf("expected InvalidDecisionVectorError, got %v", err)
	}

	bad := moderateInput()
	bad.Params.K = 0
	if err := e.Validate(bad); err == nil {
		t.Fatalf("expected error for zero carrying capacity")
	}
}

func TestEvaluatorParamsDefaults(t *testing.T) {
	e := NewEvaluator(testDefaults(), nil)

	if got := e.Params(EvaluationInput{}); got != fishery.DefaultParams() {
		t.Fatalf("expected default params, got %+v", got)
	}

	p := *noiselessParams()
	p.Strategy = ""
	if got := e.Params(EvaluationInput{Params: &p}); got.Strategy != fishery.StrategyPreviousPrey {
		t.Fatalf("expected previous_prey, got %q", got.Strategy)
	}
}

func TestEvaluatorEvaluateArchives(t *testing.T) {
	archive := newMemoryArchive(t)
	e := NewEvaluator(testDefaults(), archive)

	ev, rec, err := e.Evaluate(context.Background(), "run-1", moderateInput(), nil, 0)
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if !almostEqual(ev.NegNPV, moderateNegNPV) {
		t.Fatalf("expected neg_npv %v, got %v", moderateNegNPV, ev.NegNPV)
	}
	if !almostEqual(ev.PreyDeficit, moderatePreyDeficit) {
		t.Fatalf("expected prey_deficit %v, got %v", moderatePreyDeficit, ev.PreyDeficit)
	}
	if rec == nil {
		t.Fatalf("expected archived record")
	}

	stored, ok, err := archive.GetEvaluation(context.Background(), rec.ID)
	if err != nil || !ok {
		t.Fatalf("expected stored record, ok=%v err=%v", ok, err)
	}
	if stored.RunID != "run-1" || stored.Seed != 42 || stored.NRBF != 2 || stored.Steps != 3 || stored.Realizations != 1 {
		t.Fatalf("unexpected stored record %+v", stored)
	}
	if stored.SchemaVersion != storage.CurrentSchemaVersion {
		t.Fatalf("expected stamped record, got schema %d", stored.SchemaVersion)
	}
	if stored.Objectives != ev.Objectives {
		t.Fatalf("stored objectives differ: %+v vs %+v", stored.Objectives, ev.Objectives)
	}
}

func TestEvaluatorEvaluateWithoutArchive(t *testing.T) {
	e := NewEvaluator(testDefaults(), nil)
	ev, rec, err := e.Evaluate(context.Background(), "", moderateInput(), nil, 0)
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if ev == nil || rec != nil {
		t.Fatalf("expected evaluation without record, got ev=%v rec=%v", ev, rec)
	}
}

func TestEvaluatorEvaluateCancelledSkipsArchive(t *testing.T) {
	archive := newMemoryArchive(t)
	e := NewEvaluator(testDefaults(), archive)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ev, rec, err := e.Evaluate(ctx, "", moderateInput(), nil, 0)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if ev == nil || rec != nil {
		t.Fatalf("expected evaluation without record")
	}
	records, _ := archive.ListEvaluations(context.Background(), 0)
	if len(records) != 0 {
		t.Fatalf("expected nothing archived, got %d", len(records))
	}
}

func TestEvaluatorListArchivePareto(t *testing.T) {
	archive := newMemoryArchive(t)
	e := NewEvaluator(testDefaults(), archive)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	save := func(id string, offset time.Duration, o fishery.Objectives) {
		rec := storage.Stamp(storage.EvaluationRecord{ID: id, CreatedAt: base.Add(offset), Objectives: o})
		if err := archive.SaveEvaluation(ctx, rec); err != nil {
			t.Fatalf("SaveEvaluation error: %v", err)
		}
	}
	save("eval-profit", 0, fishery.Objectives{NegNPV: -2000, PreyDeficit: 0.6})
	save("eval-dominated", time.Second, fishery.Objectives{NegNPV: -1000, PreyDeficit: 0.7})
	save("eval-robust", 2*time.Second, fishery.Objectives{NegNPV: -500, PreyDeficit: 0.1})

	all, err := e.ListArchive(ctx, 0, false)
	if err != nil {
		t.Fatalf("ListArchive error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
	if !all[0].NonDominated || all[1].NonDominated || !all[2].NonDominated {
		t.Fatalf("unexpected non-dominated flags: %v %v %v", all[0].NonDominated, all[1].NonDominated, all[2].NonDominated)
	}

	front, err := e.ListArchive(ctx, 0, true)
	if err != nil {
		t.Fatalf("ListArchive error: %v", err)
	}
	if len(front) != 2 || front[0].ID != "eval-profit" || front[1].ID != "eval-robust" {
		t.Fatalf("unexpected front: %+v", front)
	}
}

func TestEvaluatorRobustnessGivenStates(t *testing.T) {
	e := NewEvaluator(testDefaults(), nil)
	predatorHeavy := *noiselessParams()
	predatorHeavy.M = 0.1

	in := RobustnessInput{
		EvaluationInput: moderateInput(),
		States:          []fishery.Params{*noiselessParams(), predatorHeavy},
		Criteria:        fishery.Criteria{{Objective: "extinction_days", Max: floatPtr(0)}},
	}
	report, err := e.Robustness(context.Background(), in)
	if err != nil {
		t.Fatalf("Robustness error: %v", err)
	}
	if len(report.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(report.Results))
	}
	if !almostEqual(report.Results[0].Objectives.NegNPV, moderateNegNPV) {
		t.Fatalf("expected baseline neg_npv %v, got %v", moderateNegNPV, report.Results[0].Objectives.NegNPV)
	}
	if report.Seed != 42 {
		t.Fatalf("expected configured seed, got %d", report.Seed)
	}
	if report.SatisficingFraction < 0 || report.SatisficingFraction > 1 {
		t.Fatalf("fraction out of range: %v", report.SatisficingFraction)
	}
}

func TestEvaluatorRobustnessSampledIsReproducible(t *testing.T) {
	e := NewEvaluator(testDefaults(), nil)
	in := RobustnessInput{
		EvaluationInput: EvaluationInput{Vars: moderateVars, Realizations: 2, Steps: 5, Seed: 7},
		Samples:         6,
	}

	first, err := e.Robustness(context.Background(), in)
	if err != nil {
		t.Fatalf("Robustness error: %v", err)
	}
	second, err := e.Robustness(context.Background(), in)
	if err != nil {
		t.Fatalf("Robustness error: %v", err)
	}
	if len(first.Results) != 6 {
		t.Fatalf("expected 6 results, got %d", len(first.Results))
	}
	for i := range first.Results {
		if first.Results[i].Params != second.Results[i].Params || first.Results[i].Objectives != second.Results[i].Objectives {
			t.Fatalf("result %d differs between identical requests", i)
		}
	}
	if first.SatisficingFraction != 1 {
		t.Fatalf("expected no criteria to satisfy every state, got %v", first.SatisficingFraction)
	}
}

func TestEvaluatorRobustnessErrors(t *testing.T) {
	e := NewEvaluator(testDefaults(), nil)

	tests := []struct {
		name string
		in   RobustnessInput
	}{
		{name: "no states", in: RobustnessInput{EvaluationInput: moderateInput()}},
		{name: "bad criterion", in: RobustnessInput{
			EvaluationInput: moderateInput(),
			Samples:         2,
			Criteria:        fishery.Criteria{{Objective: "profit"}},
		}},
		{name: "invalid state", in: RobustnessInput{
			EvaluationInput: moderateInput(),
			States:          []fishery.Params{{K: -1}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.Robustness(context.Background(), tt.in); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func floatPtr(v float64) *float64 {
	return &v
}

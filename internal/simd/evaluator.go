package simd

import (
	"context"
	"fmt"
	"time"

	"github.com/msdbook/msdsim/internal/fishery"
	"github.com/msdbook/msdsim/internal/rbf"
	"github.com/msdbook/msdsim/internal/storage"
	"github.com/msdbook/msdsim/pkg/config"
	"github.com/msdbook/msdsim/pkg/logger"
	"github.com/msdbook/msdsim/pkg/utils"
)

// EvaluationInput describes one policy evaluation. Zero-valued settings fall
// back to the service defaults.
type EvaluationInput struct {
	Label        string          `json:"label,omitempty" validate:"max=128"`
	Vars         []float64       `json:"vars" validate:"required,min=3"`
	Params       *fishery.Params `json:"params,omitempty"`
	NRBF         int             `json:"n_rbf,omitempty" validate:"gte=0,lte=64"`
	Realizations int             `json:"realizations,omitempty" validate:"gte=0,lte=100000"`
	Steps        int             `json:"steps,omitempty" validate:"gte=0,lte=100000"`
	Seed         int64           `json:"seed,omitempty"`
}

// RunInput is an asynchronous evaluation plus an optional completion callback.
type RunInput struct {
	EvaluationInput
	// RecordRealizations is how many leading realizations keep their
	// trajectories; zero means one.
	RecordRealizations int    `json:"record_realizations,omitempty" validate:"gte=0,lte=1000"`
	CallbackURL        string `json:"callback_url,omitempty" validate:"omitempty,url"`
	CallbackSecret     string `json:"callback_secret,omitempty"`
}

// Evaluator resolves evaluation inputs against the configured defaults and
// archives the results.
type Evaluator struct {
	defaults config.EvaluationConfig
	archive  storage.Store
}

// NewEvaluator creates an evaluator. archive may be nil, in which case
// nothing is persisted.
func NewEvaluator(defaults config.EvaluationConfig, archive storage.Store) *Evaluator {
	return &Evaluator{defaults: defaults, archive: archive}
}

// Archive returns the backing store, or nil.
func (e *Evaluator) Archive() storage.Store {
	return e.archive
}

// Workers returns the configured worker count for multi-state evaluation.
func (e *Evaluator) Workers() int {
	if e.defaults.Workers <= 0 {
		return 1
	}
	return e.defaults.Workers
}

// Options resolves the simulation options for an input. When n_rbf is unset
// it is inferred from the vector length, falling back to the configured
// default when the length is not a multiple of the stride.
func (e *Evaluator) Options(in EvaluationInput) fishery.Options {
	shape := rbf.DefaultShape()
	switch {
	case in.NRBF > 0:
		shape.NRBF = in.NRBF
	case len(in.Vars) > 0 && len(in.Vars)%shape.Stride() == 0:
		shape.NRBF = len(in.Vars) / shape.Stride()
	case e.defaults.NRBF > 0:
		shape.NRBF = e.defaults.NRBF
	}

	opts := fishery.DefaultOptions()
	opts.Shape = shape
	if e.defaults.Realizations > 0 {
		opts.Realizations = e.defaults.Realizations
	}
	if e.defaults.Steps > 0 {
		opts.Steps = e.defaults.Steps
	}
	if in.Realizations > 0 {
		opts.Realizations = in.Realizations
	}
	if in.Steps > 0 {
		opts.Steps = in.Steps
	}
	return opts
}

// Params returns the state of the world for an input.
func (e *Evaluator) Params(in EvaluationInput) fishery.Params {
	if in.Params == nil {
		return fishery.DefaultParams()
	}
	p := *in.Params
	if p.Strategy == "" {
		p.Strategy = fishery.StrategyPreviousPrey
	}
	return p
}

// Seed returns the seed an input should use. Zero means the configured
// seed, and a zero configured seed means a time-based one.
func (e *Evaluator) Seed(in EvaluationInput) int64 {
	if in.Seed != 0 {
		return in.Seed
	}
	return e.defaults.Seed
}

// Validate checks an input without evaluating it.
func (e *Evaluator) Validate(in EvaluationInput) error {
	if err := e.Options(in).Validate(in.Vars); err != nil {
		return err
	}
	return e.Params(in).Validate()
}

// Evaluate runs one fitness evaluation and archives it, returning the
// archived record when there is an archive. observer, when not
// nil, receives every step of the first record realizations. A context
// cancelled during the evaluation skips archiving.
func (e *Evaluator) Evaluate(ctx context.Context, runID string, in EvaluationInput, observer fishery.Observer, record int) (*fishery.Evaluation, *storage.EvaluationRecord, error) {
	opts := e.Options(in)
	p := e.Params(in)
	if observer != nil {
		opts.Observer = observer
		opts.RecordRealizations = record
	}

	rng := utils.NewRandSource(e.Seed(in))
	ev, err := fishery.Evaluate(in.Vars, p, opts, rng)
	if err != nil {
		return nil, nil, err
	}

	rec := storage.Stamp(storage.EvaluationRecord{
		ID:           utils.GenerateEvaluationID(),
		RunID:        runID,
		Label:        in.Label,
		Vars:         append([]float64(nil), in.Vars...),
		Params:       p,
		NRBF:         opts.Shape.NRBF,
		Realizations: opts.Realizations,
		Steps:        opts.Steps,
		Seed:         rng.Seed(),
		Objectives:   ev.Objectives,
		CreatedAt:    time.Now().UTC(),
	})

	if err := ctx.Err(); err != nil {
		return ev, nil, err
	}
	if e.archive == nil {
		return ev, nil, nil
	}
	if err := e.archive.SaveEvaluation(ctx, rec); err != nil {
		return ev, nil, fmt.Errorf("archive evaluation: %w", err)
	}
	logger.Debug("evaluation archived", "evaluation_id", rec.ID, "run_id", runID)
	return ev, &rec, nil
}

// ArchiveEntry is a stored evaluation together with its Pareto flag.
type ArchiveEntry struct {
	storage.EvaluationRecord
	NonDominated bool `json:"non_dominated"`
}

// ListArchive returns archived evaluations oldest first. With paretoOnly
// set, only the non-dominated set under the five objectives is returned.
func (e *Evaluator) ListArchive(ctx context.Context, limit int, paretoOnly bool) ([]ArchiveEntry, error) {
	if e.archive == nil {
		return []ArchiveEntry{}, nil
	}
	records, err := e.archive.ListEvaluations(ctx, limit)
	if err != nil {
		return nil, err
	}

	points := make([][]float64, len(records))
	for i, rec := range records {
		points[i] = rec.Objectives.Objs()
	}
	front := make(map[int]bool)
	for _, idx := range fishery.NonDominated(points) {
		front[idx] = true
	}

	out := make([]ArchiveEntry, 0, len(records))
	for i, rec := range records {
		if paretoOnly && !front[i] {
			continue
		}
		out = append(out, ArchiveEntry{EvaluationRecord: rec, NonDominated: front[i]})
	}
	return out, nil
}

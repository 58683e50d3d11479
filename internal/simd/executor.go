package simd

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/msdbook/msdsim/internal/metrics"
	"github.com/msdbook/msdsim/pkg/logger"
	"github.com/msdbook/msdsim/pkg/models"
)

// RunExecutor manages asynchronous run execution and per-run cancellation.
type RunExecutor struct {
	store     *RunStore
	evaluator *Evaluator
	notifier  *Notifier

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

var (
	ErrRunNotFound  = errors.New("run not found")
	ErrRunTerminal  = errors.New("run is terminal")
	ErrRunIDMissing = errors.New("run_id is required")
)

func NewRunExecutor(store *RunStore, evaluator *Evaluator) *RunExecutor {
	return &RunExecutor{
		store:     store,
		evaluator: evaluator,
		notifier:  NewNotifier(),
		cancels:   make(map[string]context.CancelFunc),
	}
}

// Start begins evaluating a run asynchronously.
// Returns the updated run state (running) or an error.
func (e *RunExecutor) Start(runID string) (*RunRecord, error) {
	if runID == "" {
		return nil, ErrRunIDMissing
	}

	rec, ok := e.store.Get(runID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	switch {
	case rec.Run.Status == models.RunStatusRunning:
		return rec, nil
	case rec.Run.Status.Terminal():
		return nil, fmt.Errorf("%w: %s", ErrRunTerminal, runID)
	}

	updated, err := e.store.SetStatus(runID, models.RunStatusRunning, "")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	if old, exists := e.cancels[runID]; exists {
		old()
	}
	e.cancels[runID] = cancel
	e.mu.Unlock()

	e.wg.Add(1)
	go e.runEvaluation(ctx, runID)
	return updated, nil
}

// Stop cancels a run and marks it cancelled. An evaluation already in
// flight finishes but its result is discarded.
func (e *RunExecutor) Stop(runID string) (*RunRecord, error) {
	if runID == "" {
		return nil, ErrRunIDMissing
	}

	updated, err := e.store.SetStatus(runID, models.RunStatusCancelled, "")
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	cancel, ok := e.cancels[runID]
	e.mu.Unlock()
	if ok {
		cancel()
	}
	e.notify(updated)
	return updated, nil
}

// Wait blocks until every started evaluation goroutine has returned.
func (e *RunExecutor) Wait() {
	e.wg.Wait()
}

// Shutdown cancels every run still in flight and waits for their
// goroutines to return.
func (e *RunExecutor) Shutdown() {
	e.mu.Lock()
	ids := make([]string, 0, len(e.cancels))
	for id := range e.cancels {
		ids = append(ids, id)
	}
	e.mu.Unlock()

	for _, id := range ids {
		if _, err := e.Stop(id); err != nil && !errors.Is(err, ErrRunTerminal) {
			logger.Warn("failed to stop run", "run_id", id, "error", err)
		}
	}
	e.Wait()
}

func (e *RunExecutor) cleanup(runID string) {
	e.mu.Lock()
	if cancel, ok := e.cancels[runID]; ok {
		cancel()
		delete(e.cancels, runID)
	}
	e.mu.Unlock()
}

func (e *RunExecutor) runEvaluation(ctx context.Context, runID string) {
	defer e.wg.Done()
	defer e.cleanup(runID)

	rec, ok := e.store.Get(runID)
	if !ok {
		logger.Error("run not found", "run_id", runID)
		return
	}
	if rec.Input == nil {
		e.fail(runID, "run has no input")
		return
	}

	collector := metrics.NewCollector()
	if err := e.store.SetCollector(runID, collector); err != nil {
		logger.Error("failed to store collector", "run_id", runID, "error", err)
	}
	record := rec.Input.RecordRealizations
	if record <= 0 {
		record = 1
	}

	logger.Info("starting evaluation", "run_id", runID,
		"realizations", e.evaluator.Options(rec.Input.EvaluationInput).Realizations)
	ev, archived, err := e.evaluator.Evaluate(ctx, runID, rec.Input.EvaluationInput, metrics.NewTrajectoryObserver(collector), record)
	if ctx.Err() != nil {
		logger.Info("evaluation cancelled", "run_id", runID)
		return
	}
	if err != nil && ev == nil {
		logger.Error("evaluation failed", "run_id", runID, "error", err)
		e.fail(runID, err.Error())
		return
	}
	if err != nil {
		// The objectives are still valid when only archiving failed.
		logger.Warn("evaluation not archived", "run_id", runID, "error", err)
	}

	evaluationID := ""
	if archived != nil {
		evaluationID = archived.ID
	}
	updated, completed, err := e.store.Complete(runID, ev, evaluationID)
	if err != nil {
		logger.Error("failed to set completed status", "run_id", runID, "error", err)
		return
	}
	if !completed {
		return
	}
	logger.Info("run completed", "run_id", runID,
		"neg_npv", ev.NegNPV,
		"extinction_days", ev.ExtinctionDays,
		"trajectory_points", collector.Len(),
		"duration", updated.Run.Duration)
	e.notify(updated)
}

func (e *RunExecutor) fail(runID, msg string) {
	updated, err := e.store.SetStatus(runID, models.RunStatusFailed, msg)
	if err != nil {
		if !errors.Is(err, ErrRunTerminal) {
			logger.Error("failed to set failed status", "run_id", runID, "error", err)
		}
		return
	}
	e.notify(updated)
}

func (e *RunExecutor) notify(rec *RunRecord) {
	if rec.Input == nil || rec.Input.CallbackURL == "" {
		return
	}
	e.notifier.Notify(rec.Input.CallbackURL, rec.Input.CallbackSecret, rec)
}

package simd

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/msdbook/msdsim/internal/fishery"
	"github.com/msdbook/msdsim/internal/metrics"
	"github.com/msdbook/msdsim/pkg/models"
	"github.com/msdbook/msdsim/pkg/utils"
)

type RunRecord struct {
	Run        *models.Run
	Input      *RunInput
	Evaluation *fishery.Evaluation
	Collector  *metrics.Collector
}

type RunStore struct {
	mu   sync.RWMutex
	runs map[string]*RunRecord
}

func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[string]*RunRecord),
	}
}

func (s *RunStore) Create(runID string, input *RunInput) (*RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if input == nil {
		return nil, fmt.Errorf("input is required")
	}
	if runID == "" {
		runID = utils.GenerateRunID()
	}
	if strings.ContainsAny(runID, "/ ") {
		return nil, fmt.Errorf("run id cannot contain '/' or spaces: %q", runID)
	}
	if _, exists := s.runs[runID]; exists {
		return nil, fmt.Errorf("run already exists: %s", runID)
	}

	rec := &RunRecord{
		Run: &models.Run{
			ID:        runID,
			Status:    models.RunStatusPending,
			Label:     input.Label,
			CreatedAt: time.Now().UTC(),
		},
		Input: input,
	}
	s.runs[runID] = rec
	return rec.snapshot(), nil
}

func (s *RunStore) Get(runID string) (*RunRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.runs[runID]
	if !ok {
		return nil, false
	}
	return rec.snapshot(), true
}

// List returns up to limit runs, newest first.
func (s *RunStore) List(limit int) []*RunRecord {
	return s.ListFiltered(limit, 0, "")
}

// ListFiltered returns runs newest first, optionally restricted to one
// status, after skipping offset matches. An empty status matches all.
func (s *RunStore) ListFiltered(limit, offset int, status models.RunStatus) []*RunRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	matched := make([]*RunRecord, 0, len(s.runs))
	for _, rec := range s.runs {
		if status != "" && rec.Run.Status != status {
			continue
		}
		matched = append(matched, rec)
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i].Run, matched[j].Run
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID > b.ID
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	if offset >= len(matched) {
		return []*RunRecord{}
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	out := make([]*RunRecord, len(matched))
	for i, rec := range matched {
		out[i] = rec.snapshot()
	}
	return out
}

func (s *RunStore) SetStatus(runID string, status models.RunStatus, errMsg string) (*RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if rec.Run.Status.Terminal() {
		return nil, fmt.Errorf("%w: %s", ErrRunTerminal, runID)
	}

	rec.Run.Status = status
	if errMsg != "" {
		rec.Run.Error = errMsg
	}

	now := time.Now().UTC()
	switch status {
	case models.RunStatusRunning:
		if rec.Run.StartedAt.IsZero() {
			rec.Run.StartedAt = now
		}
	case models.RunStatusCompleted, models.RunStatusFailed, models.RunStatusCancelled:
		rec.Run.EndedAt = now
		if !rec.Run.StartedAt.IsZero() {
			rec.Run.Duration = now.Sub(rec.Run.StartedAt)
		}
	}

	return rec.snapshot(), nil
}

// Complete stores the evaluation and marks the run completed, unless the
// run already reached another terminal state.
func (s *RunStore) Complete(runID string, ev *fishery.Evaluation, evaluationID string) (*RunRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if rec.Run.Status.Terminal() {
		return rec.snapshot(), false, nil
	}

	now := time.Now().UTC()
	rec.Evaluation = ev
	rec.Run.EvaluationID = evaluationID
	rec.Run.Status = models.RunStatusCompleted
	rec.Run.EndedAt = now
	if !rec.Run.StartedAt.IsZero() {
		rec.Run.Duration = now.Sub(rec.Run.StartedAt)
	}
	return rec.snapshot(), true, nil
}

func (s *RunStore) SetEvaluation(runID string, ev *fishery.Evaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("run not found: %s", runID)
	}
	rec.Evaluation = ev
	return nil
}

func (s *RunStore) SetCollector(runID string, collector *metrics.Collector) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("run not found: %s", runID)
	}
	rec.Collector = collector
	return nil
}

func (s *RunStore) GetCollector(runID string) (*metrics.Collector, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.runs[runID]
	if !ok || rec.Collector == nil {
		return nil, false
	}
	return rec.Collector, true
}

// snapshot copies the mutable run header so callers can read it without
// holding the lock. Caller must hold s.mu.
func (r *RunRecord) snapshot() *RunRecord {
	run := *r.Run
	return &RunRecord{
		Run:        &run,
		Input:      r.Input,
		Evaluation: r.Evaluation,
		Collector:  r.Collector,
	}
}

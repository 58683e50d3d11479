package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	evaluations map[string]EvaluationRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.evaluations = make(map[string]EvaluationRecord)
	return nil
}

func (s *MemoryStore) SaveEvaluation(_ context.Context, record EvaluationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	if record.ID == "" {
		return errors.New("evaluation id is required")
	}
	record.Vars = append([]float64(nil), record.Vars...)
	s.evaluations[record.ID] = record
	return nil
}

func (s *MemoryStore) GetEvaluation(_ context.Context, id string) (EvaluationRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.evaluations[id]
	if ok {
		record.Vars = append([]float64(nil), record.Vars...)
	}
	return record, ok, nil
}

func (s *MemoryStore) ListEvaluations(_ context.Context, limit int) ([]EvaluationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]EvaluationRecord, 0, len(s.evaluations))
	for _, record := range s.evaluations {
		record.Vars = append([]float64(nil), record.Vars...)
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps all records in process memory. It backs the service when
// no database is configured and doubles as the store used in tests.
type MemoryStore struct {
	mu          sync.RWMutex
	trees       map[uuid.UUID]*TreeRecord
	scenarios   map[uuid.UUID]*ScenarioRecord
	evaluations map[uuid.UUID]*EvaluationRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		trees:       make(map[uuid.UUID]*TreeRecord),
		scenarios:   make(map[uuid.UUID]*ScenarioRecord),
		evaluations: make(map[uuid.UUID]*EvaluationRecord),
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) CreateTree(_ context.Context, rec *TreeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = uuid.New()
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	cp := *rec
	s.trees[rec.ID] = &cp
	return nil
}

func (s *MemoryStore) GetTree(_ context.Context, id uuid.UUID) (*TreeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.trees[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) ListTrees(_ context.Context) ([]*TreeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*TreeRecord, 0, len(s.trees))
	for _, rec := range s.trees {
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) UpdateTree(_ context.Context, rec *TreeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.trees[rec.ID]
	if !ok {
		return ErrNotFound
	}
	rec.CreatedAt = existing.CreatedAt
	rec.UpdatedAt = time.Now()
	cp := *rec
	s.trees[rec.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteTree(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trees[id]; !ok {
		return ErrNotFound
	}
	delete(s.trees, id)
	return nil
}

func (s *MemoryStore) CreateScenario(_ context.Context, rec *ScenarioRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = uuid.New()
	rec.CreatedAt = time.Now()
	cp := *rec
	s.scenarios[rec.ID] = &cp
	return nil
}

func (s *MemoryStore) GetScenario(_ context.Context, id uuid.UUID) (*ScenarioRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.scenarios[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) ListScenarios(_ context.Context, treeID uuid.UUID) ([]*ScenarioRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*ScenarioRecord
	for _, rec := range s.scenarios {
		if rec.TreeID == treeID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) DeleteScenario(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.scenarios[id]; !ok {
		return ErrNotFound
	}
	delete(s.scenarios, id)
	return nil
}

func (s *MemoryStore) CreateEvaluation(_ context.Context, rec *EvaluationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = uuid.New()
	rec.CreatedAt = time.Now()
	cp := *rec
	s.evaluations[rec.ID] = &cp
	return nil
}

func (s *MemoryStore) GetEvaluation(_ context.Context, id uuid.UUID) (*EvaluationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.evaluations[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) ListEvaluations(_ context.Context, treeID uuid.UUID) ([]*EvaluationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*EvaluationRecord
	for _, rec := range s.evaluations {
		if rec.TreeID == treeID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) GetStats(_ context.Context) (*EngineStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := &EngineStats{
		TotalTrees:       len(s.trees),
		TotalScenarios:   len(s.scenarios),
		TotalEvaluations: len(s.evaluations),
	}
	if len(s.evaluations) > 0 {
		var sum float64
		for _, rec := range s.evaluations {
			sum += rec.RootValue
		}
		stats.AvgRootValue = sum / float64(len(s.evaluations))
	}
	return stats, nil
}

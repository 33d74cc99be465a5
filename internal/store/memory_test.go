package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestMemoryStoreTreeLifecycle(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	rec := &TreeRecord{Name: "demo", Document: demoDocument(), Version: uuid.New()}
	if err := s.CreateTree(ctx, rec); err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.ID == uuid.Nil {
		t.Fatal("expected an id to be assigned")
	}

	got, err := s.GetTree(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "demo" || got.Version != rec.Version {
		t.Errorf("unexpected record: %+v", got)
	}

	got.Name = "renamed"
	got.Version = uuid.New()
	if err := s.UpdateTree(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	again, _ := s.GetTree(ctx, rec.ID)
	if again.Name != "renamed" {
		t.Error("update not persisted")
	}

	trees, err := s.ListTrees(ctx)
	if err != nil || len(trees) != 1 {
		t.Fatalf("expected one tree, got %v (%v)", trees, err)
	}

	if err := s.DeleteTree(ctx, rec.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetTree(ctx, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.GetTree(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetScenario(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetEvaluation(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.UpdateTree(ctx, &TreeRecord{ID: uuid.New()}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreScenariosScopedToTree(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	treeA := uuid.New()
	treeB := uuid.New()
	for _, rec := range []*ScenarioRecord{
		{TreeID: treeA, Name: "baseline", Readings: map[string]float64{"co2": 120}},
		{TreeID: treeA, Name: "retrofit", Readings: map[string]float64{"co2": 60}},
		{TreeID: treeB, Name: "other", Readings: map[string]float64{"co2": 10}},
	} {
		if err := s.CreateScenario(ctx, rec); err != nil {
			t.Fatalf("create scenario: %v", err)
		}
	}

	scenarios, err := s.ListScenarios(ctx, treeA)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(scenarios) != 2 {
		t.Fatalf("expected 2 scenarios for tree A, got %d", len(scenarios))
	}
}

func TestMemoryStoreStats(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	tree := &TreeRecord{Name: "demo", Document: demoDocument(), Version: uuid.New()}
	if err := s.CreateTree(ctx, tree); err != nil {
		t.Fatal(err)
	}
	for _, rv := range []float64{0.2, 0.8} {
		rec := &EvaluationRecord{TreeID: tree.ID, TreeVersion: tree.Version, RootValue: rv, Values: map[string]float64{"demo": rv}}
		if err := s.CreateEvaluation(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := s.GetStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalTrees != 1 || stats.TotalEvaluations != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.AvgRootValue != 0.5 {
		t.Errorf("expected avg 0.5, got %v", stats.AvgRootValue)
	}
}

package engine

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestBatchEvaluate(t *testing.T) {
	be := NewBatchEvaluator(newAggregator(), 3, discardLogger())
	tree := referenceTree()

	scenarios := map[string]Scenario{
		"best":    {"A": 10, "B": 0},
		"worst":   {"A": 0, "B": 100},
		"partial": {"A": 10}, // missing B
		"mid":     {"A": 5, "B": 50},
	}

	out := be.Evaluate(context.Background(), tree, scenarios)

	if len(out.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(out.Results))
	}
	if math.Abs(out.Results["best"].RootValue-1.0) > 1e-9 {
		t.Errorf("best scenario should score 1.0, got %v", out.Results["best"].RootValue)
	}
	if math.Abs(out.Results["worst"].RootValue) > 1e-9 {
		t.Errorf("worst scenario should score 0.0, got %v", out.Results["worst"].RootValue)
	}

	err, ok := out.Errors["partial"]
	if !ok {
		t.Fatal("expected the partial scenario to fail")
	}
	var mre *MissingReadingError
	if !errors.As(err, &mre) {
		t.Errorf("expected MissingReadingError, got %v", err)
	}
}

func TestBatchEvaluateMoreWorkersThanScenarios(t *testing.T) {
	be := NewBatchEvaluator(newAggregator(), 16, discardLogger())
	out := be.Evaluate(context.Background(), referenceTree(), map[string]Scenario{
		"only": {"A": 10, "B": 0},
	})
	if len(out.Results) != 1 || len(out.Errors) != 0 {
		t.Fatalf("expected exactly one result, got %d results / %d errors", len(out.Results), len(out.Errors))
	}
}

func TestBatchEvaluateCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	be := NewBatchEvaluator(newAggregator(), 2, discardLogger())
	out := be.Evaluate(ctx, referenceTree(), map[string]Scenario{
		"a": {"A": 10, "B": 0},
		"b": {"A": 0, "B": 100},
	})

	// Every scenario lands somewhere: evaluated or marked with the context
	// error, nothing silently dropped.
	if len(out.Results)+len(out.Errors) != 2 {
		t.Fatalf("expected 2 outcomes, got %d results / %d errors", len(out.Results), len(out.Errors))
	}
}

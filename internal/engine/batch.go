package engine

import (
	"context"
	"log/slog"
	"sync"
)

// BatchResult collects per-scenario outcomes of one batch run. A scenario
// name appears in exactly one of the two maps.
type BatchResult struct {
	Results map[string]*EvaluationResult
	Errors  map[string]error
}

// BatchEvaluator evaluates one tree against many scenarios concurrently.
// The tree is read-only during evaluation and every result is freshly
// allocated, so the only shared state is the value-function memo, which is
// safe for concurrent use.
type BatchEvaluator struct {
	agg     *Aggregator
	workers int
	logger  *slog.Logger
}

// NewBatchEvaluator creates a pool-backed evaluator; workers <= 0 means 4.
func NewBatchEvaluator(agg *Aggregator, workers int, logger *slog.Logger) *BatchEvaluator {
	if workers <= 0 {
		workers = 4
	}
	return &BatchEvaluator{agg: agg, workers: workers, logger: logger}
}

// Evaluate runs every named scenario against the tree. A failing scenario is
// recorded under its name and does not abort the rest; context cancellation
// marks the remaining scenarios with the context error.
func (b *BatchEvaluator) Evaluate(ctx context.Context, tree *Tree, scenarios map[string]Scenario) *BatchResult {
	out := &BatchResult{
		Results: make(map[string]*EvaluationResult, len(scenarios)),
		Errors:  make(map[string]error),
	}

	jobs := make(chan string)
	var mu sync.Mutex
	var wg sync.WaitGroup

	workers := b.workers
	if workers > len(scenarios) {
		workers = len(scenarios)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range jobs {
				result, err := b.agg.Evaluate(tree, scenarios[name])
				mu.Lock()
				if err != nil {
					out.Errors[name] = err
				} else {
					out.Results[name] = result
				}
				mu.Unlock()
				if err != nil && b.logger != nil {
					b.logger.Warn("scenario evaluation failed", "scenario", name, "error", err)
				}
			}
		}()
	}

	for name := range scenarios {
		select {
		case <-ctx.Done():
			mu.Lock()
			if _, done := out.Results[name]; !done {
				if _, failed := out.Errors[name]; !failed {
					out.Errors[name] = ctx.Err()
				}
			}
			mu.Unlock()
		case jobs <- name:
		}
	}
	close(jobs)
	wg.Wait()

	return out
}

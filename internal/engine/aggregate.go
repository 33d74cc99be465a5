package engine

import (
	"log/slog"

	"github.com/google/uuid"
)

// driftTolerance absorbs floating-point drift in convex combinations whose
// terms each lie in [0,1].
const driftTolerance = 1e-9

// Scenario maps indicator names to raw readings. It must cover every leaf
// reachable from the root; unknown keys are ignored.
type Scenario map[string]float64

// EvaluationResult holds every node's aggregated value for one (tree,
// scenario) pair. Results are never mutated; re-evaluating produces a fresh
// one.
type EvaluationResult struct {
	TreeVersion     uuid.UUID          `json:"tree_version"`
	RootValue       float64            `json:"root_value"`
	Values          map[string]float64 `json:"values"`
	DegeneratePaths []string           `json:"degenerate_paths,omitempty"`
}

// Aggregator walks a validated tree bottom-up, mapping each leaf through the
// value function and combining children into their parents by local weight.
type Aggregator struct {
	vf     *ValueFunction
	logger *slog.Logger
}

// NewAggregator creates an aggregator evaluating leaves with vf.
func NewAggregator(vf *ValueFunction, logger *slog.Logger) *Aggregator {
	return &Aggregator{vf: vf, logger: logger}
}

// Evaluate computes every node's value in post-order and returns the result,
// or fails atomically on the first missing/invalid reading or structural
// defect encountered. Callers are expected to have run the validator first;
// traversal still guards against cycles so malformed input cannot loop.
func (a *Aggregator) Evaluate(tree *Tree, scenario Scenario) (*EvaluationResult, error) {
	result := &EvaluationResult{
		TreeVersion: tree.Version,
		Values:      make(map[string]float64),
	}

	visited := make(map[*Node]struct{})
	rootValue, err := a.eval(tree.Root, tree.Root.Name, scenario, visited, result)
	if err != nil {
		return nil, err
	}

	result.RootValue = rootValue
	return result, nil
}

func (a *Aggregator) eval(node *Node, path string, scenario Scenario, visited map[*Node]struct{}, result *EvaluationResult) (float64, error) {
	if _, seen := visited[node]; seen {
		return 0, &StructuralError{Defect: Defect{Kind: OrphanOrCycle, Path: path}}
	}
	visited[node] = struct{}{}

	if node.Kind == KindIndicator {
		spec := node.Spec
		if spec == nil {
			return 0, &StructuralError{Defect: Defect{Kind: InvalidShapeParameter, Path: path, Field: "spec"}}
		}
		reading, ok := scenario[spec.Name]
		if !ok {
			return 0, &MissingReadingError{Indicator: spec.Name, Path: path}
		}
		value, degenerate, err := a.vf.Evaluate(*spec, reading)
		if err != nil {
			return 0, err
		}
		if degenerate {
			result.DegeneratePaths = append(result.DegeneratePaths, path)
			if a.logger != nil {
				a.logger.Debug("degenerate value function, linear fallback", "indicator", spec.Name, "path", path)
			}
		}
		result.Values[path] = value
		return value, nil
	}

	if len(node.Children) == 0 {
		return 0, &StructuralError{Defect: Defect{Kind: EmptyNode, Path: path}}
	}

	// Fixed left-to-right order keeps floating-point summation reproducible.
	var value float64
	for _, child := range node.Children {
		childValue, err := a.eval(child, childPath(path, child.Name), scenario, visited, result)
		if err != nil {
			return 0, err
		}
		value += child.Weight * childValue
	}

	// Sibling weights sum to 1, so this is a convex combination; the clamp
	// only absorbs drift on the order of driftTolerance.
	value = clamp(value, 0, 1)

	result.Values[path] = value
	return value, nil
}

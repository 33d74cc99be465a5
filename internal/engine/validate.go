package engine

import (
	"fmt"
	"math"
)

// DefaultWeightTolerance is the allowed deviation of sibling weight sums
// from 1.0.
const DefaultWeightTolerance = 1e-6

type DefectKind string

const (
	WeightSumMismatch     DefectKind = "weight_sum_mismatch"
	DegenerateRange       DefectKind = "degenerate_range"
	InvalidShapeParameter DefectKind = "invalid_shape_parameter"
	EmptyNode             DefectKind = "empty_node"
	OrphanOrCycle         DefectKind = "orphan_or_cycle"
)

// Defect is one structural problem found in a tree, named by the offending
// node's path.
type Defect struct {
	Kind      DefectKind `json:"kind"`
	Path      string     `json:"path"`
	Field     string     `json:"field,omitempty"`
	Sum       float64    `json:"sum,omitempty"`
	Tolerance float64    `json:"tolerance,omitempty"`
}

func (d Defect) String() string {
	switch d.Kind {
	case WeightSumMismatch:
		return fmt.Sprintf("%s: child weights sum to %.9f (expected 1.0 within %g)", d.Path, d.Sum, d.Tolerance)
	case InvalidShapeParameter:
		return fmt.Sprintf("%s: invalid shape parameter %s", d.Path, d.Field)
	case DegenerateRange:
		return d.Path + ": degenerate range (PMin >= PMax)"
	case EmptyNode:
		return d.Path + ": criterion has no children"
	case OrphanOrCycle:
		return d.Path + ": node reachable by more than one path"
	default:
		return d.Path + ": " + string(d.Kind)
	}
}

// Report is the full defect listing for one tree. An empty report means the
// tree is safe to aggregate.
type Report []Defect

// Valid reports whether no defects were found.
func (r Report) Valid() bool { return len(r) == 0 }

// Validator checks tree structure and parameters without mutating anything.
// It collects every defect in one pass so the caller can surface all problems
// at once rather than one at a time.
type Validator struct {
	tolerance float64
}

// NewValidator creates a validator with the given weight-sum tolerance;
// zero or negative means DefaultWeightTolerance.
func NewValidator(tolerance float64) *Validator {
	if tolerance <= 0 {
		tolerance = DefaultWeightTolerance
	}
	return &Validator{tolerance: tolerance}
}

// Tolerance returns the active weight-sum tolerance.
func (v *Validator) Tolerance() float64 { return v.tolerance }

// Validate walks the tree depth-first and returns every structural defect.
// Traversal tracks visited node identity, so a malformed cyclic or shared
// structure is reported as OrphanOrCycle instead of recursing forever.
func (v *Validator) Validate(tree *Tree) Report {
	if tree == nil || tree.Root == nil {
		return Report{{Kind: EmptyNode, Path: ""}}
	}

	var report Report
	visited := make(map[*Node]struct{})
	v.check(tree.Root, tree.Root.Name, visited, &report)
	return report
}

func (v *Validator) check(node *Node, path string, visited map[*Node]struct{}, report *Report) {
	if _, seen := visited[node]; seen {
		*report = append(*report, Defect{Kind: OrphanOrCycle, Path: path})
		return
	}
	visited[node] = struct{}{}

	if node.Kind == KindIndicator {
		v.checkSpec(node, path, report)
		return
	}

	if len(node.Children) == 0 {
		*report = append(*report, Defect{Kind: EmptyNode, Path: path})
		return
	}

	var sum float64
	for _, child := range node.Children {
		sum += child.Weight
	}
	if math.Abs(sum-1.0) > v.tolerance {
		*report = append(*report, Defect{Kind: WeightSumMismatch, Path: path, Sum: sum, Tolerance: v.tolerance})
	}

	for _, child := range node.Children {
		v.check(child, childPath(path, child.Name), visited, report)
	}
}

func (v *Validator) checkSpec(node *Node, path string, report *Report) {
	spec := node.Spec
	if spec == nil {
		*report = append(*report, Defect{Kind: InvalidShapeParameter, Path: path, Field: "spec"})
		return
	}
	if !(spec.PMin < spec.PMax) {
		*report = append(*report, Defect{Kind: DegenerateRange, Path: path})
	}
	if !isFinite(spec.B) {
		*report = append(*report, Defect{Kind: InvalidShapeParameter, Path: path, Field: "B"})
	}
	if !isFinite(spec.K) || spec.K <= 0 {
		*report = append(*report, Defect{Kind: InvalidShapeParameter, Path: path, Field: "K"})
	}
	if !isFinite(spec.C) || spec.C <= 0 {
		*report = append(*report, Defect{Kind: InvalidShapeParameter, Path: path, Field: "C"})
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

package engine

import (
	"github.com/google/uuid"
)

// FlowNode carries the render metadata for one tree node: its aggregated
// value, its depth (the renderer's column), and its capacity — the product of
// local weights from the root, i.e. the node's full-potential share of the
// root. A renderer draws capacity as the shadow height and capacity×value as
// the filled height.
type FlowNode struct {
	ID       string  `json:"id"`
	Label    string  `json:"label"`
	Units    string  `json:"units,omitempty"`
	Value    float64 `json:"value"`
	Capacity float64 `json:"capacity"`
	Depth    int     `json:"depth"`
}

// FlowEdge states that Source contributes Weight of Target's aggregate score.
type FlowEdge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"`
}

// FlowGraph is the Sankey-ready decomposition of one evaluation. Derived
// data: recompute it whenever the result changes, never persist it as truth.
type FlowGraph struct {
	TreeVersion uuid.UUID  `json:"tree_version"`
	Nodes       []FlowNode `json:"nodes"`
	Edges       []FlowEdge `json:"edges"`
}

// DecomposeFlow turns a tree and its evaluation result into a flow graph.
// Every internal node receives one incoming edge per child, weighted by
// childLocalWeight×childValue, so a parent's inflow sums to its own value.
// A result minted from a different tree version, or one that does not cover
// every node path, is rejected as stale.
func DecomposeFlow(tree *Tree, result *EvaluationResult) (*FlowGraph, error) {
	if result.TreeVersion != tree.Version {
		return nil, &TreeResultMismatchError{TreeVersion: tree.Version, ResultVersion: result.TreeVersion}
	}

	graph := &FlowGraph{TreeVersion: tree.Version}
	visited := make(map[*Node]struct{})
	if err := decompose(tree.Root, tree.Root.Name, 1.0, 0, result, visited, graph); err != nil {
		return nil, err
	}
	return graph, nil
}

func decompose(node *Node, path string, capacity float64, depth int, result *EvaluationResult, visited map[*Node]struct{}, graph *FlowGraph) error {
	if _, seen := visited[node]; seen {
		return &StructuralError{Defect: Defect{Kind: OrphanOrCycle, Path: path}}
	}
	visited[node] = struct{}{}

	value, ok := result.Values[path]
	if !ok {
		return &TreeResultMismatchError{MissingPath: path}
	}

	fn := FlowNode{
		ID:       path,
		Label:    node.Name,
		Value:    value,
		Capacity: capacity,
		Depth:    depth,
	}
	if node.Spec != nil {
		fn.Units = node.Spec.Units
	}
	graph.Nodes = append(graph.Nodes, fn)

	for _, child := range node.Children {
		cp := childPath(path, child.Name)
		childValue, ok := result.Values[cp]
		if !ok {
			return &TreeResultMismatchError{MissingPath: cp}
		}
		graph.Edges = append(graph.Edges, FlowEdge{
			Source: cp,
			Target: path,
			Weight: child.Weight * childValue,
		})
		if err := decompose(child, cp, capacity*child.Weight, depth+1, result, visited, graph); err != nil {
			return err
		}
	}
	return nil
}

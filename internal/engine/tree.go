package engine

import (
	"github.com/google/uuid"
)

// Direction controls which end of an indicator's range counts as "best".
type Direction string

const (
	Increasing Direction = "increasing"
	Decreasing Direction = "decreasing"
)

// IndicatorSpec describes one leaf indicator: its measurable range and the
// shape of its exponential value function. Specs are immutable once built;
// editing means rebuilding the tree.
type IndicatorSpec struct {
	Name      string
	Units     string
	Direction Direction
	PMin      float64
	PMax      float64
	B         float64
	K         float64
	C         float64
}

type NodeKind string

const (
	KindCriterion NodeKind = "criterion"
	KindIndicator NodeKind = "indicator"
)

// Node is a tagged variant: a criterion with children or an indicator leaf.
// Exactly one of Children/Spec is meaningful, selected by Kind.
type Node struct {
	Name     string
	Weight   float64 // local weight relative to siblings
	Kind     NodeKind
	Children []*Node        // Kind == KindCriterion
	Spec     *IndicatorSpec // Kind == KindIndicator
}

// Criterion builds an internal node with the given local weight and children.
func Criterion(name string, weight float64, children ...*Node) *Node {
	return &Node{Name: name, Weight: weight, Kind: KindCriterion, Children: children}
}

// Indicator builds a leaf node from a spec. The node name is the spec name.
func Indicator(weight float64, spec IndicatorSpec) *Node {
	s := spec
	return &Node{Name: spec.Name, Weight: weight, Kind: KindIndicator, Spec: &s}
}

// Tree is a strict tree of scorable nodes. Version is a structural identity
// token: every rebuild gets a new one, so results computed against an older
// shape can be rejected cheaply.
type Tree struct {
	Root    *Node
	Version uuid.UUID
}

// NewTree wraps a root node with a fresh version token.
func NewTree(root *Node) *Tree {
	return &Tree{Root: root, Version: uuid.New()}
}

// RestoreTree rebuilds a tree under a previously issued version token, for
// callers that persist trees and must keep result pairings stable across loads.
func RestoreTree(root *Node, version uuid.UUID) *Tree {
	return &Tree{Root: root, Version: version}
}

// childPath extends a parent path with a child name. Node identity throughout
// the engine is the slash-joined root→node name path.
func childPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

package store

import (
	"fmt"

	"github.com/civimetrics/mives/internal/engine"
)

// TreeDocument is the serialized form of an indicator hierarchy — the shape
// stored in the database, carried in API bodies, and produced by CSV import.
// The engine never parses documents; this layer converts at the boundary.
type TreeDocument struct {
	Name     string         `json:"name" validate:"required"`
	Weight   float64        `json:"weight"`
	Kind     string         `json:"kind" validate:"required,oneof=criterion indicator"`
	Children []TreeDocument `json:"children,omitempty" validate:"dive"`
	Function *FunctionDoc   `json:"function,omitempty"`
}

// FunctionDoc carries an indicator's range and value-function parameters.
type FunctionDoc struct {
	Direction string  `json:"direction" validate:"required,oneof=increasing decreasing"`
	Units     string  `json:"units,omitempty"`
	PMin      float64 `json:"p_min"`
	PMax      float64 `json:"p_max"`
	B         float64 `json:"b"`
	K         float64 `json:"k"`
	C         float64 `json:"c"`
}

// Build converts the document into an engine tree with a fresh version
// token. It rejects documents whose kind tags and payloads disagree; numeric
// sanity (ranges, weight sums) stays with the engine's validator.
func (d *TreeDocument) Build() (*engine.Tree, error) {
	root, err := d.buildNode(true)
	if err != nil {
		return nil, err
	}
	return engine.NewTree(root), nil
}

func (d *TreeDocument) buildNode(isRoot bool) (*engine.Node, error) {
	weight := d.Weight
	if isRoot && weight == 0 {
		weight = 1.0
	}

	switch d.Kind {
	case string(engine.KindIndicator):
		if d.Function == nil {
			return nil, fmt.Errorf("indicator %q has no value function", d.Name)
		}
		if len(d.Children) > 0 {
			return nil, fmt.Errorf("indicator %q must not have children", d.Name)
		}
		return engine.Indicator(weight, engine.IndicatorSpec{
			Name:      d.Name,
			Units:     d.Function.Units,
			Direction: engine.Direction(d.Function.Direction),
			PMin:      d.Function.PMin,
			PMax:      d.Function.PMax,
			B:         d.Function.B,
			K:         d.Function.K,
			C:         d.Function.C,
		}), nil
	case string(engine.KindCriterion):
		if d.Function != nil {
			return nil, fmt.Errorf("criterion %q must not carry a value function", d.Name)
		}
		children := make([]*engine.Node, 0, len(d.Children))
		for i := range d.Children {
			child, err := d.Children[i].buildNode(false)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		return engine.Criterion(d.Name, weight, children...), nil
	default:
		return nil, fmt.Errorf("node %q has unknown kind %q", d.Name, d.Kind)
	}
}

// DocumentFromTree serializes an engine tree back into document form, for
// exports and round-trips.
func DocumentFromTree(t *engine.Tree) TreeDocument {
	return documentFromNode(t.Root)
}

func documentFromNode(n *engine.Node) TreeDocument {
	doc := TreeDocument{
		Name:   n.Name,
		Weight: n.Weight,
		Kind:   string(n.Kind),
	}
	if n.Spec != nil {
		doc.Function = &FunctionDoc{
			Direction: string(n.Spec.Direction),
			Units:     n.Spec.Units,
			PMin:      n.Spec.PMin,
			PMax:      n.Spec.PMax,
			B:         n.Spec.B,
			K:         n.Spec.K,
			C:         n.Spec.C,
		}
	}
	for _, child := range n.Children {
		doc.Children = append(doc.Children, documentFromNode(child))
	}
	return doc
}

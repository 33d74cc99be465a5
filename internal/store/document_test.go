package store

import (
	"testing"

	"github.com/civimetrics/mives/internal/engine"
)

func demoDocument() TreeDocument {
	return TreeDocument{
		Name: "sustainability",
		Kind: "criterion",
		Children: []TreeDocument{
			{
				Name: "environmental", Weight: 0.6, Kind: "criterion",
				Children: []TreeDocument{
					{Name: "co2", Weight: 1.0, Kind: "indicator", Function: &FunctionDoc{
						Direction: "decreasing", Units: "kgCO2/m2", PMin: 0, PMax: 500, B: 0, K: 1, C: 120,
					}},
				},
			},
			{
				Name: "economic", Weight: 0.4, Kind: "indicator",
				Function: &FunctionDoc{Direction: "decreasing", Units: "EUR/m2", PMin: 500, PMax: 3000, B: 500, K: 0.8, C: 700},
			},
		},
	}
}

func TestDocumentBuild(t *testing.T) {
	doc := demoDocument()
	tree, err := doc.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tree.Root.Name != "sustainability" {
		t.Errorf("unexpected root name %s", tree.Root.Name)
	}
	if tree.Root.Weight != 1.0 {
		t.Errorf("root weight should default to 1.0, got %v", tree.Root.Weight)
	}
	if len(tree.Root.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(tree.Root.Children))
	}

	co2 := tree.Root.Children[0].Children[0]
	if co2.Kind != engine.KindIndicator || co2.Spec == nil {
		t.Fatal("expected co2 to be an indicator leaf")
	}
	if co2.Spec.Direction != engine.Decreasing || co2.Spec.PMax != 500 {
		t.Errorf("indicator spec not carried over: %+v", co2.Spec)
	}

	if report := engine.NewValidator(0).Validate(tree); !report.Valid() {
		t.Errorf("demo document should build a valid tree, got %v", report)
	}
}

func TestDocumentBuildRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		doc  TreeDocument
	}{
		{"indicator without function", TreeDocument{Name: "x", Kind: "indicator"}},
		{"criterion with function", TreeDocument{Name: "x", Kind: "criterion", Function: &FunctionDoc{Direction: "increasing"}}},
		{"unknown kind", TreeDocument{Name: "x", Kind: "branch"}},
		{"indicator with children", TreeDocument{
			Name: "x", Kind: "indicator",
			Function: &FunctionDoc{Direction: "increasing", PMax: 1, K: 1, C: 1},
			Children: []TreeDocument{{Name: "y", Kind: "criterion"}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.doc.Build(); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	doc := demoDocument()
	tree, err := doc.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	back := DocumentFromTree(tree)
	if back.Name != doc.Name || len(back.Children) != len(doc.Children) {
		t.Fatalf("round trip lost structure: %+v", back)
	}
	if back.Children[1].Function == nil || back.Children[1].Function.Units != "EUR/m2" {
		t.Error("round trip lost indicator function")
	}
}

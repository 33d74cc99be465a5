// Package csvio reads and writes the CSV interchange layout for indicator
// hierarchies: a structure file describing the tree and a functions file
// carrying value-function parameters, linked by row ID. Scenario readings
// travel in a third, two-column file.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/civimetrics/mives/internal/store"
)

const rootParentID = "None"

var (
	structureHeader = []string{"SimplifiedID", "ParentID", "Weight", "Type", "Name"}
	functionsHeader = []string{"SimplifiedID", "X_Sat_0", "X_Sat_1", "Units", "P", "K", "C"}
	readingsHeader  = []string{"Indicator", "Value"}
)

type structureRow struct {
	id       string
	parentID string
	weight   float64
	kind     string
	name     string
	children []*structureRow
}

type functionRow struct {
	xSat0 float64
	xSat1 float64
	units string
	p     float64
	k     float64
	c     float64
}

// ImportTree assembles a tree document from a structure file and a functions
// file. Every indicator row must have a matching function row; criterion rows
// must not. Direction is inferred from the saturation points: X_Sat_0 is the
// reading of zero satisfaction, so X_Sat_0 > X_Sat_1 means decreasing.
func ImportTree(name string, structure, functions io.Reader) (*store.TreeDocument, error) {
	rows, root, err := readStructure(structure)
	if err != nil {
		return nil, err
	}

	funcs, err := readFunctions(functions)
	if err != nil {
		return nil, err
	}

	doc, err := buildDocument(root, funcs)
	if err != nil {
		return nil, err
	}
	doc.Name = firstNonEmpty(name, root.name)

	for id := range funcs {
		if _, known := rows[id]; !known {
			return nil, fmt.Errorf("functions file references unknown row %q", id)
		}
	}
	return doc, nil
}

func readStructure(r io.Reader) (map[string]*structureRow, *structureRow, error) {
	records, err := readAll(r, structureHeader)
	if err != nil {
		return nil, nil, fmt.Errorf("structure file: %w", err)
	}

	rows := make(map[string]*structureRow, len(records))
	var root *structureRow
	ordered := make([]*structureRow, 0, len(records))

	for i, rec := range records {
		weight, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("structure row %d: bad weight %q", i+2, rec[2])
		}
		row := &structureRow{
			id:       rec[0],
			parentID: rec[1],
			weight:   weight,
			kind:     rec[3],
			name:     rec[4],
		}
		if _, dup := rows[row.id]; dup {
			return nil, nil, fmt.Errorf("structure row %d: duplicate id %q", i+2, row.id)
		}
		rows[row.id] = row
		ordered = append(ordered, row)

		if row.parentID == rootParentID {
			if root != nil {
				return nil, nil, fmt.Errorf("structure row %d: second root %q", i+2, row.id)
			}
			root = row
		}
	}
	if root == nil {
		return nil, nil, fmt.Errorf("structure file has no root row")
	}

	// Parents must appear before their children, matching export order.
	for _, row := range ordered {
		if row == root {
			continue
		}
		parent, ok := rows[row.parentID]
		if !ok {
			return nil, nil, fmt.Errorf("row %q references unknown parent %q", row.id, row.parentID)
		}
		parent.children = append(parent.children, row)
	}
	return rows, root, nil
}

func readFunctions(r io.Reader) (map[string]functionRow, error) {
	records, err := readAll(r, functionsHeader)
	if err != nil {
		return nil, fmt.Errorf("functions file: %w", err)
	}

	funcs := make(map[string]functionRow, len(records))
	for i, rec := range records {
		var row functionRow
		row.units = rec[3]
		for _, field := range []struct {
			dst *float64
			col int
		}{
			{&row.xSat0, 1}, {&row.xSat1, 2}, {&row.p, 4}, {&row.k, 5}, {&row.c, 6},
		} {
			v, err := strconv.ParseFloat(rec[field.col], 64)
			if err != nil {
				return nil, fmt.Errorf("functions row %d: bad %s %q", i+2, functionsHeader[field.col], rec[field.col])
			}
			*field.dst = v
		}
		funcs[rec[0]] = row
	}
	return funcs, nil
}

func buildDocument(row *structureRow, funcs map[string]functionRow) (*store.TreeDocument, error) {
	doc := &store.TreeDocument{
		Name:   row.name,
		Weight: row.weight,
	}

	switch row.kind {
	case "Indicator":
		fn, ok := funcs[row.id]
		if !ok {
			return nil, fmt.Errorf("indicator %q has no function row", row.id)
		}
		doc.Kind = "indicator"
		fnDoc := FunctionFromSaturation(fn.xSat0, fn.xSat1, fn.units, fn.p, fn.k, fn.c)
		doc.Function = &fnDoc
	case "Criterion":
		doc.Kind = "criterion"
		for _, child := range row.children {
			childDoc, err := buildDocument(child, funcs)
			if err != nil {
				return nil, err
			}
			doc.Children = append(doc.Children, *childDoc)
		}
	default:
		return nil, fmt.Errorf("row %q has unknown type %q", row.id, row.kind)
	}
	return doc, nil
}

// FunctionFromSaturation converts the saturation-point layout to a directed
// range: the zero-satisfaction reading sitting above the full-satisfaction
// one means higher readings are worse.
func FunctionFromSaturation(xSat0, xSat1 float64, units string, p, k, c float64) store.FunctionDoc {
	fn := store.FunctionDoc{Units: units, B: p, K: k, C: c}
	if xSat0 <= xSat1 {
		fn.Direction = "increasing"
		fn.PMin, fn.PMax = xSat0, xSat1
	} else {
		fn.Direction = "decreasing"
		fn.PMin, fn.PMax = xSat1, xSat0
	}
	return fn
}

// ExportTree writes a document to structure and functions writers in the
// layout ImportTree reads. Row IDs are hierarchical: the root is "1", its
// children "1.1", "1.2", and so on.
func ExportTree(doc *store.TreeDocument, structure, functions io.Writer) error {
	sw := csv.NewWriter(structure)
	fw := csv.NewWriter(functions)

	if err := sw.Write(structureHeader); err != nil {
		return err
	}
	if err := fw.Write(functionsHeader); err != nil {
		return err
	}
	if err := exportNode(doc, "1", rootParentID, sw, fw); err != nil {
		return err
	}

	sw.Flush()
	fw.Flush()
	if err := sw.Error(); err != nil {
		return err
	}
	return fw.Error()
}

func exportNode(doc *store.TreeDocument, id, parentID string, sw, fw *csv.Writer) error {
	kind := "Criterion"
	if doc.Kind == "indicator" {
		kind = "Indicator"
	}
	if err := sw.Write([]string{id, parentID, formatFloat(doc.Weight), kind, doc.Name}); err != nil {
		return err
	}

	if doc.Function != nil {
		xSat0, xSat1 := doc.Function.PMin, doc.Function.PMax
		if doc.Function.Direction == "decreasing" {
			xSat0, xSat1 = xSat1, xSat0
		}
		err := fw.Write([]string{
			id,
			formatFloat(xSat0),
			formatFloat(xSat1),
			doc.Function.Units,
			formatFloat(doc.Function.B),
			formatFloat(doc.Function.K),
			formatFloat(doc.Function.C),
		})
		if err != nil {
			return err
		}
	}

	for i := range doc.Children {
		childID := fmt.Sprintf("%s.%d", id, i+1)
		if err := exportNode(&doc.Children[i], childID, id, sw, fw); err != nil {
			return err
		}
	}
	return nil
}

// ImportReadings parses a two-column readings file into a scenario map keyed
// by indicator name. Later rows for the same indicator win.
func ImportReadings(r io.Reader) (map[string]float64, error) {
	records, err := readAll(r, readingsHeader)
	if err != nil {
		return nil, fmt.Errorf("readings file: %w", err)
	}

	readings := make(map[string]float64, len(records))
	for i, rec := range records {
		v, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("readings row %d: bad value %q", i+2, rec[1])
		}
		readings[rec[0]] = v
	}
	return readings, nil
}

// ExportReadings writes a scenario map in sorted indicator order so exports
// are reproducible.
func ExportReadings(readings map[string]float64, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(readingsHeader); err != nil {
		return err
	}

	names := make([]string, 0, len(readings))
	for name := range readings {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := cw.Write([]string{name, formatFloat(readings[name])}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func readAll(r io.Reader, header []string) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("missing header row")
	}
	for i, col := range header {
		if records[0][i] != col {
			return nil, fmt.Errorf("expected column %q, got %q", col, records[0][i])
		}
	}
	return records[1:], nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

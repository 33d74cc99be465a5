package engine

import (
	"fmt"

	"github.com/google/uuid"
)

// MissingReadingError aborts an evaluation when the scenario has no reading
// for a reachable leaf. No partial result is produced.
type MissingReadingError struct {
	Indicator string
	Path      string
}

func (e *MissingReadingError) Error() string {
	return fmt.Sprintf("missing indicator reading: %s (at %s)", e.Indicator, e.Path)
}

// InvalidReadingError reports a NaN or infinite reading for an indicator.
type InvalidReadingError struct {
	Indicator string
	Reading   float64
}

func (e *InvalidReadingError) Error() string {
	return fmt.Sprintf("invalid reading %v for indicator %s", e.Reading, e.Indicator)
}

// StructuralError wraps a defect detected lazily during traversal, after the
// caller skipped or raced past validation. The evaluation fails whole.
type StructuralError struct {
	Defect Defect
}

func (e *StructuralError) Error() string {
	return "structural defect: " + e.Defect.String()
}

// TreeResultMismatchError signals a stale EvaluationResult being reused
// against a tree with a different shape.
type TreeResultMismatchError struct {
	TreeVersion   uuid.UUID
	ResultVersion uuid.UUID
	MissingPath   string
}

func (e *TreeResultMismatchError) Error() string {
	if e.MissingPath != "" {
		return "tree/result mismatch: no value for node " + e.MissingPath
	}
	return fmt.Sprintf("tree/result mismatch: result version %s, tree version %s", e.ResultVersion, e.TreeVersion)
}

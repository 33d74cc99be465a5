package events

// TreeEvent accompanies tree lifecycle subjects. DefectCount lets listeners
// know whether the tree is currently evaluable without fetching the report.
type TreeEvent struct {
	TreeID      string `json:"tree_id"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	DefectCount int    `json:"defect_count"`
}

type ScenarioEvent struct {
	ScenarioID string `json:"scenario_id"`
	TreeID     string `json:"tree_id"`
	Name       string `json:"name"`
}

// EvaluationCompletedEvent carries the headline numbers; renderers fetch the
// full per-node values and flow graph over the API.
type EvaluationCompletedEvent struct {
	EvaluationID string  `json:"evaluation_id"`
	TreeID       string  `json:"tree_id"`
	ScenarioID   string  `json:"scenario_id,omitempty"`
	TreeVersion  string  `json:"tree_version"`
	RootValue    float64 `json:"root_value"`
	Degenerate   bool    `json:"degenerate"`
}

type EvaluationFailedEvent struct {
	TreeID string `json:"tree_id"`
	Reason string `json:"reason"`
}

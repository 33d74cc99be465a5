package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for lookups of records that do not exist.
var ErrNotFound = errors.New("not found")

// TreeRecord is a persisted indicator hierarchy. Document is the serialized
// structure owned by this layer; Version is the engine's structural identity
// token, reissued on every update so stale evaluations are detectable.
type TreeRecord struct {
	ID        uuid.UUID    `json:"id"`
	Name      string       `json:"name"`
	Document  TreeDocument `json:"document"`
	Version   uuid.UUID    `json:"version"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// ScenarioRecord is a named set of raw indicator readings for one tree.
type ScenarioRecord struct {
	ID        uuid.UUID          `json:"id"`
	TreeID    uuid.UUID          `json:"tree_id"`
	Name      string             `json:"name"`
	Readings  map[string]float64 `json:"readings"`
	CreatedAt time.Time          `json:"created_at"`
}

// EvaluationRecord is one completed evaluation of a tree against a scenario.
// ScenarioID is nil for evaluations run on inline readings.
type EvaluationRecord struct {
	ID              uuid.UUID          `json:"id"`
	TreeID          uuid.UUID          `json:"tree_id"`
	ScenarioID      *uuid.UUID         `json:"scenario_id,omitempty"`
	TreeVersion     uuid.UUID          `json:"tree_version"`
	RootValue       float64            `json:"root_value"`
	Values          map[string]float64 `json:"values"`
	DegeneratePaths []string           `json:"degenerate_paths,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

// EngineStats summarizes stored records for the admin stats endpoint.
type EngineStats struct {
	TotalTrees       int     `json:"total_trees"`
	TotalScenarios   int     `json:"total_scenarios"`
	TotalEvaluations int     `json:"total_evaluations"`
	AvgRootValue     float64 `json:"avg_root_value"`
}

type Store interface {
	CreateTree(ctx context.Context, rec *TreeRecord) error
	GetTree(ctx context.Context, id uuid.UUID) (*TreeRecord, error)
	ListTrees(ctx context.Context) ([]*TreeRecord, error)
	UpdateTree(ctx context.Context, rec *TreeRecord) error
	DeleteTree(ctx context.Context, id uuid.UUID) error

	CreateScenario(ctx context.Context, rec *ScenarioRecord) error
	GetScenario(ctx context.Context, id uuid.UUID) (*ScenarioRecord, error)
	ListScenarios(ctx context.Context, treeID uuid.UUID) ([]*ScenarioRecord, error)
	DeleteScenario(ctx context.Context, id uuid.UUID) error

	CreateEvaluation(ctx context.Context, rec *EvaluationRecord) error
	GetEvaluation(ctx context.Context, id uuid.UUID) (*EvaluationRecord, error)
	ListEvaluations(ctx context.Context, treeID uuid.UUID) ([]*EvaluationRecord, error)

	GetStats(ctx context.Context) (*EngineStats, error)

	Close() error
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateTree(ctx context.Context, rec *TreeRecord) error {
	doc, err := json.Marshal(rec.Document)
	if err != nil {
		return fmt.Errorf("marshal tree document: %w", err)
	}
	return s.pool.QueryRow(ctx, `
		INSERT INTO mives_trees (name, document, version)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`,
		rec.Name, doc, rec.Version,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
}

func (s *PostgresStore) GetTree(ctx context.Context, id uuid.UUID) (*TreeRecord, error) {
	rec := &TreeRecord{}
	var doc []byte
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, document, version, created_at, updated_at
		FROM mives_trees WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.Name, &doc, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(doc, &rec.Document); err != nil {
		return nil, fmt.Errorf("unmarshal tree document: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) ListTrees(ctx context.Context) ([]*TreeRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, document, version, created_at, updated_at
		FROM mives_trees ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*TreeRecord
	for rows.Next() {
		rec := &TreeRecord{}
		var doc []byte
		if err := rows.Scan(&rec.ID, &rec.Name, &doc, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(doc, &rec.Document); err != nil {
			return nil, fmt.Errorf("unmarshal tree document: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateTree(ctx context.Context, rec *TreeRecord) error {
	doc, err := json.Marshal(rec.Document)
	if err != nil {
		return fmt.Errorf("marshal tree document: %w", err)
	}
	err = s.pool.QueryRow(ctx, `
		UPDATE mives_trees
		SET name = $2, document = $3, version = $4, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		rec.ID, rec.Name, doc, rec.Version,
	).Scan(&rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *PostgresStore) DeleteTree(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM mives_trees WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateScenario(ctx context.Context, rec *ScenarioRecord) error {
	readings, err := json.Marshal(rec.Readings)
	if err != nil {
		return fmt.Errorf("marshal readings: %w", err)
	}
	return s.pool.QueryRow(ctx, `
		INSERT INTO mives_scenarios (tree_id, name, readings)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		rec.TreeID, rec.Name, readings,
	).Scan(&rec.ID, &rec.CreatedAt)
}

func (s *PostgresStore) GetScenario(ctx context.Context, id uuid.UUID) (*ScenarioRecord, error) {
	rec := &ScenarioRecord{}
	var readings []byte
	err := s.pool.QueryRow(ctx, `
		SELECT id, tree_id, name, readings, created_at
		FROM mives_scenarios WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.TreeID, &rec.Name, &readings, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(readings, &rec.Readings); err != nil {
		return nil, fmt.Errorf("unmarshal readings: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) ListScenarios(ctx context.Context, treeID uuid.UUID) ([]*ScenarioRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, tree_id, name, readings, created_at
		FROM mives_scenarios WHERE tree_id = $1 ORDER BY created_at`, treeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ScenarioRecord
	for rows.Next() {
		rec := &ScenarioRecord{}
		var readings []byte
		if err := rows.Scan(&rec.ID, &rec.TreeID, &rec.Name, &readings, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(readings, &rec.Readings); err != nil {
			return nil, fmt.Errorf("unmarshal readings: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteScenario(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM mives_scenarios WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateEvaluation(ctx context.Context, rec *EvaluationRecord) error {
	values, err := json.Marshal(rec.Values)
	if err != nil {
		return fmt.Errorf("marshal node values: %w", err)
	}
	return s.pool.QueryRow(ctx, `
		INSERT INTO mives_evaluations (tree_id, scenario_id, tree_version, root_value, node_values, degenerate_paths)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		rec.TreeID, rec.ScenarioID, rec.TreeVersion, rec.RootValue, values, rec.DegeneratePaths,
	).Scan(&rec.ID, &rec.CreatedAt)
}

func (s *PostgresStore) GetEvaluation(ctx context.Context, id uuid.UUID) (*EvaluationRecord, error) {
	rec := &EvaluationRecord{}
	var values []byte
	err := s.pool.QueryRow(ctx, `
		SELECT id, tree_id, scenario_id, tree_version, root_value, node_values, degenerate_paths, created_at
		FROM mives_evaluations WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.TreeID, &rec.ScenarioID, &rec.TreeVersion, &rec.RootValue, &values, &rec.DegeneratePaths, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(values, &rec.Values); err != nil {
		return nil, fmt.Errorf("unmarshal node values: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) ListEvaluations(ctx context.Context, treeID uuid.UUID) ([]*EvaluationRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, tree_id, scenario_id, tree_version, root_value, node_values, degenerate_paths, created_at
		FROM mives_evaluations WHERE tree_id = $1 ORDER BY created_at DESC`, treeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*EvaluationRecord
	for rows.Next() {
		rec := &EvaluationRecord{}
		var values []byte
		if err := rows.Scan(&rec.ID, &rec.TreeID, &rec.ScenarioID, &rec.TreeVersion, &rec.RootValue, &values, &rec.DegeneratePaths, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(values, &rec.Values); err != nil {
			return nil, fmt.Errorf("unmarshal node values: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetStats(ctx context.Context) (*EngineStats, error) {
	stats := &EngineStats{}
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM mives_trees),
			(SELECT count(*) FROM mives_scenarios),
			(SELECT count(*) FROM mives_evaluations),
			COALESCE((SELECT avg(root_value) FROM mives_evaluations), 0)`,
	).Scan(&stats.TotalTrees, &stats.TotalScenarios, &stats.TotalEvaluations, &stats.AvgRootValue)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

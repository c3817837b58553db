package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glottolab/lateral/pkg/engine"
)

// ErrRunNotFound is returned when a run id does not exist.
var ErrRunNotFound = errors.New("run not found")

// SaveResult persists a completed run under id. The header and all derived
// rows are written in one transaction.
func (s *Store) SaveResult(ctx context.Context, id, dataset string, cfg engine.Config, res *engine.Result) error {
	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	statsJSON, err := json.Marshal(res.Stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}
	warningsJSON, err := json.Marshal(res.Warnings)
	if err != nil {
		return fmt.Errorf("failed to marshal warnings: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, dataset, created_at, config, stats, warnings)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, dataset, time.Now().UTC(), configJSON, statsJSON, warningsJSON); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, row := range res.Edges.Rows() {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO edge_stats (run_id, edge, gain_score, loss_score)
			VALUES (?, ?, ?, ?)
		`, id, row.Edge, row.GainScore, row.LossScore); err != nil {
			return fmt.Errorf("failed to insert edge stats: %w", err)
		}
	}

	for rank, e := range res.Lateral {
		charsJSON, err := json.Marshal(e.Characters)
		if err != nil {
			return fmt.Errorf("failed to marshal characters: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO lateral_edges (run_id, rank, node_a, node_b, support, distance, characters, same_group, group_name)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, id, rank, e.NodeA, e.NodeB, e.Support, e.Distance, charsJSON, e.SameGroup, e.Group); err != nil {
			return fmt.Errorf("failed to insert lateral edge: %w", err)
		}
	}

	for _, cr := range res.Characters {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO character_results (run_id, character_id, weight, min_cost, min_origins, total_optimal, sampled)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id, cr.ID, cr.Weight, cr.MinCost, cr.MinOrigins, cr.TotalOptimal, cr.Sampled); err != nil {
			return fmt.Errorf("failed to insert character result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// GetRun returns a run header by id.
func (s *Store) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	var (
		rec          RunRecord
		configJSON   []byte
		statsJSON    []byte
		warningsJSON []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, dataset, created_at, config, stats, warnings
		FROM runs WHERE id = ?
	`, id).Scan(&rec.ID, &rec.Dataset, &rec.CreatedAt, &configJSON, &statsJSON, &warningsJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if err := json.Unmarshal(configJSON, &rec.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := json.Unmarshal(statsJSON, &rec.Stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stats: %w", err)
	}
	if len(warningsJSON) > 0 {
		if err := json.Unmarshal(warningsJSON, &rec.Warnings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal warnings: %w", err)
		}
	}
	return &rec, nil
}

// ListRuns returns run headers, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, dataset, created_at, config, stats, warnings
		FROM runs ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			rec          RunRecord
			configJSON   []byte
			statsJSON    []byte
			warningsJSON []byte
		)
		if err := rows.Scan(&rec.ID, &rec.Dataset, &rec.CreatedAt, &configJSON, &statsJSON, &warningsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if err := json.Unmarshal(configJSON, &rec.Config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
		if err := json.Unmarshal(statsJSON, &rec.Stats); err != nil {
			return nil, fmt.Errorf("failed to unmarshal stats: %w", err)
		}
		if len(warningsJSON) > 0 {
			if err := json.Unmarshal(warningsJSON, &rec.Warnings); err != nil {
				return nil, fmt.Errorf("failed to unmarshal warnings: %w", err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// EdgeStats returns the per-edge gain/loss rows for a run.
func (s *Store) EdgeStats(ctx context.Context, runID string) ([]engine.EdgeStat, error) {
	if err := s.runExists(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT edge, gain_score, loss_score
		FROM edge_stats WHERE run_id = ? ORDER BY edge
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query edge stats: %w", err)
	}
	defer rows.Close()

	var out []engine.EdgeStat
	for rows.Next() {
		var row engine.EdgeStat
		if err := rows.Scan(&row.Edge, &row.GainScore, &row.LossScore); err != nil {
			return nil, fmt.Errorf("failed to scan edge stat: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// LateralEdges returns the ranked borrowing candidates for a run.
func (s *Store) LateralEdges(ctx context.Context, runID string) ([]engine.LateralEdge, error) {
	if err := s.runExists(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT node_a, node_b, support, distance, characters, same_group, group_name
		FROM lateral_edges WHERE run_id = ? ORDER BY rank
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lateral edges: %w", err)
	}
	defer rows.Close()

	var out []engine.LateralEdge
	for rows.Next() {
		var (
			e         engine.LateralEdge
			charsJSON []byte
		)
		if err := rows.Scan(&e.NodeA, &e.NodeB, &e.Support, &e.Distance, &charsJSON, &e.SameGroup, &e.Group); err != nil {
			return nil, fmt.Errorf("failed to scan lateral edge: %w", err)
		}
		if err := json.Unmarshal(charsJSON, &e.Characters); err != nil {
			return nil, fmt.Errorf("failed to unmarshal characters: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CharacterResults returns the per-character summaries for a run.
func (s *Store) CharacterResults(ctx context.Context, runID string) ([]CharacterRow, error) {
	if err := s.runExists(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT character_id, weight, min_cost, min_origins, total_optimal, sampled
		FROM character_results WHERE run_id = ? ORDER BY character_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query character results: %w", err)
	}
	defer rows.Close()

	var out []CharacterRow
	for rows.Next() {
		var row CharacterRow
		if err := rows.Scan(&row.CharacterID, &row.Weight, &row.MinCost, &row.MinOrigins, &row.TotalOptimal, &row.Sampled); err != nil {
			return nil, fmt.Errorf("failed to scan character result: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and all its derived rows.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (s *Store) runExists(ctx context.Context, id string) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRunNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check run: %w", err)
	}
	return nil
}

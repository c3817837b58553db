package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// EdgeReport generates a CSV of per-edge gain/loss scores.
type EdgeReport struct {
	store ReportStore
}

func NewEdgeReport(s ReportStore) *EdgeReport {
	return &EdgeReport{store: s}
}

func (r *EdgeReport) Generate(ctx context.Context, params ReportParams) (io.Reader, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)

	if err := writer.Write([]string{"edge", "gain_score", "loss_score"}); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}

	rows, err := r.store.EdgeStats(ctx, params.RunID)
	if err != nil {
		return nil, fmt.Errorf("failed to query edge stats: %w", err)
	}
	for _, row := range rows {
		rec := []string{
			row.Edge,
			strconv.FormatFloat(row.GainScore, 'g', -1, 64),
			strconv.FormatFloat(row.LossScore, 'g', -1, 64),
		}
		if err := writer.Write(rec); err != nil {
			return nil, fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush writer: %w", err)
	}
	return buf, nil
}

// LateralReport generates a CSV of ranked borrowing candidates.
type LateralReport struct {
	store ReportStore
}

func NewLateralReport(s ReportStore) *LateralReport {
	return &LateralReport{store: s}
}

func (r *LateralReport) Generate(ctx context.Context, params ReportParams) (io.Reader, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)

	if err := writer.Write([]string{"rank", "node_a", "node_b", "support", "distance", "characters", "group"}); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}

	edges, err := r.store.LateralEdges(ctx, params.RunID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lateral edges: %w", err)
	}
	if params.Limit > 0 && len(edges) > params.Limit {
		edges = edges[:params.Limit]
	}
	for i, e := range edges {
		group := ""
		if e.SameGroup {
			group = e.Group
		}
		rec := []string{
			strconv.Itoa(i + 1),
			e.NodeA,
			e.NodeB,
			strconv.FormatFloat(e.Support, 'g', -1, 64),
			strconv.Itoa(e.Distance),
			strings.Join(e.Characters, ";"),
			group,
		}
		if err := writer.Write(rec); err != nil {
			return nil, fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush writer: %w", err)
	}
	return buf, nil
}

// CharacterReport generates a CSV of per-character reconciliation summaries.
type CharacterReport struct {
	store ReportStore
}

func NewCharacterReport(s ReportStore) *CharacterReport {
	return &CharacterReport{store: s}
}

func (r *CharacterReport) Generate(ctx context.Context, params ReportParams) (io.Reader, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)

	if err := writer.Write([]string{"character", "weight", "min_cost", "min_origins", "total_optimal", "sampled"}); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}

	rows, err := r.store.CharacterResults(ctx, params.RunID)
	if err != nil {
		return nil, fmt.Errorf("failed to query character results: %w", err)
	}
	for _, row := range rows {
		rec := []string{
			row.CharacterID,
			strconv.FormatFloat(row.Weight, 'g', -1, 64),
			strconv.FormatFloat(row.MinCost, 'g', -1, 64),
			strconv.Itoa(row.MinOrigins),
			strconv.FormatInt(row.TotalOptimal, 10),
			strconv.FormatBool(row.Sampled),
		}
		if err := writer.Write(rec); err != nil {
			return nil, fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush writer: %w", err)
	}
	return buf, nil
}

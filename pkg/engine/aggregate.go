package engine

import (
	"encoding/json"

	"github.com/glottolab/lateral/pkg/tree"
)

// EdgeStat is the aggregate gain/loss profile of one tree edge. The edge is
// identified by its child node; the root's row collects ancestral origins.
type EdgeStat struct {
	NodeID    int     `json:"-"`
	Edge      string  `json:"edge"`
	GainScore float64 `json:"gain_score"`
	LossScore float64 `json:"loss_score"`
}

// EdgeStats is the read-only per-edge aggregation across all characters.
// It is the sole input the borrowing reports need about edges; no further
// tree traversal happens downstream of it.
type EdgeStats struct {
	rows   []EdgeStat
	byNode map[int]int
	// TotalWeight is the summed character weight, the upper bound for any
	// edge's gain+loss score.
	TotalWeight float64
}

// Aggregate folds per-character tied scenario sets into per-edge gain and
// loss scores: for each character, each edge is credited the fraction of
// that character's tied scenarios in which it carries the event, weighted
// by the character's confidence.
func Aggregate(t *tree.Tree, results []CharacterResult) EdgeStats {
	stats := EdgeStats{byNode: make(map[int]int, t.Len())}
	for _, id := range t.Preorder() {
		stats.byNode[id] = len(stats.rows)
		stats.rows = append(stats.rows, EdgeStat{NodeID: id, Edge: t.Name(id)})
	}

	for _, res := range results {
		if len(res.Scenarios) == 0 {
			continue
		}
		stats.TotalWeight += res.Weight
		share := res.Weight / float64(len(res.Scenarios))
		for _, s := range res.Scenarios {
			for id, e := range s.Events {
				row := &stats.rows[stats.byNode[id]]
				switch e {
				case EventGain:
					row.GainScore += share
				case EventLoss:
					row.LossScore += share
				}
			}
		}
	}
	return stats
}

// Rows returns the per-edge rows in preorder. The slice is a copy.
func (e EdgeStats) Rows() []EdgeStat {
	out := make([]EdgeStat, len(e.rows))
	copy(out, e.rows)
	return out
}

// At returns the row for the edge above the given node.
func (e EdgeStats) At(nodeID int) (EdgeStat, bool) {
	i, ok := e.byNode[nodeID]
	if !ok {
		return EdgeStat{}, false
	}
	return e.rows[i], true
}

type edgeStatsJSON struct {
	Rows        []EdgeStat `json:"rows"`
	TotalWeight float64    `json:"total_weight"`
}

func (e EdgeStats) MarshalJSON() ([]byte, error) {
	return json.Marshal(edgeStatsJSON{Rows: e.rows, TotalWeight: e.TotalWeight})
}

// UnmarshalJSON restores the rows and total weight. Node IDs are internal
// tree indices and do not survive serialization; At is unavailable on a
// deserialized value.
func (e *EdgeStats) UnmarshalJSON(data []byte) error {
	var aux edgeStatsJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	e.rows = aux.Rows
	e.TotalWeight = aux.TotalWeight
	e.byNode = nil
	return nil
}

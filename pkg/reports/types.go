package reports

import (
	"context"
	"io"

	"github.com/glottolab/lateral/pkg/engine"
	"github.com/glottolab/lateral/pkg/store"
)

type ReportType string

const (
	ReportTypeEdges      ReportType = "edges"
	ReportTypeLateral    ReportType = "lateral"
	ReportTypeCharacters ReportType = "characters"
	ReportTypeStats      ReportType = "stats"
)

type ReportParams struct {
	RunID string
	// Limit caps row counts where it applies (lateral candidates). Zero
	// means no limit.
	Limit int
}

// ReportStore defines the data access required by report generators.
type ReportStore interface {
	GetRun(ctx context.Context, id string) (*store.RunRecord, error)
	EdgeStats(ctx context.Context, runID string) ([]engine.EdgeStat, error)
	LateralEdges(ctx context.Context, runID string) ([]engine.LateralEdge, error)
	CharacterResults(ctx context.Context, runID string) ([]store.CharacterRow, error)
}

type Generator interface {
	Generate(ctx context.Context, params ReportParams) (io.Reader, error)
}

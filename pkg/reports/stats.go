package reports

import (
	"bytes"
	"context"
	"fmt"
	"io"
)

// StatsReport generates a plain-text summary of one run.
type StatsReport struct {
	store ReportStore
}

func NewStatsReport(s ReportStore) *StatsReport {
	return &StatsReport{store: s}
}

func (r *StatsReport) Generate(ctx context.Context, params ReportParams) (io.Reader, error) {
	rec, err := r.store.GetRun(ctx, params.RunID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	buf := &bytes.Buffer{}
	fmt.Fprintf(buf, "run:             %s\n", rec.ID)
	fmt.Fprintf(buf, "dataset:         %s\n", rec.Dataset)
	fmt.Fprintf(buf, "created:         %s\n", rec.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(buf, "gain weight:     %g\n", rec.Config.GainWeight)
	fmt.Fprintf(buf, "loss weight:     %g\n", rec.Config.LossWeight)
	fmt.Fprintf(buf, "transfer cost:   %g\n", rec.Config.TransferCost)
	fmt.Fprintf(buf, "characters:      %d\n", rec.Stats.Characters)
	fmt.Fprintf(buf, "total cost:      %g\n", rec.Stats.TotalCost)
	fmt.Fprintf(buf, "avg origins:     %.3f\n", rec.Stats.AvgOrigins)
	fmt.Fprintf(buf, "max origins:     %d\n", rec.Stats.MaxOrigins)
	fmt.Fprintf(buf, "lateral edges:   %d\n", rec.Stats.LateralHits)
	fmt.Fprintf(buf, "sampled ties:    %d\n", rec.Stats.Sampled)
	fmt.Fprintf(buf, "duration:        %s\n", rec.Stats.Duration)

	if len(rec.Warnings) > 0 {
		fmt.Fprintf(buf, "\nwarnings:\n")
		for _, w := range rec.Warnings {
			fmt.Fprintf(buf, "  %s: %s\n", w.CharacterID, w.Message)
		}
	}
	return buf, nil
}

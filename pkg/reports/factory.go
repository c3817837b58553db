package reports

import (
	"fmt"
)

// NewReportGenerator creates a report generator based on the report type.
func NewReportGenerator(reportType ReportType, s ReportStore) (Generator, error) {
	switch reportType {
	case ReportTypeEdges:
		return NewEdgeReport(s), nil
	case ReportTypeLateral:
		return NewLateralReport(s), nil
	case ReportTypeCharacters:
		return NewCharacterReport(s), nil
	case ReportTypeStats:
		return NewStatsReport(s), nil
	default:
		return nil, fmt.Errorf("unknown report type: %s", reportType)
	}
}

package tabular

import (
	"fmt"
	"strings"
	"time"
)

// Export source keys accepted from callers. An empty source means "best
// available" and resolves through the snapshot priority chain.
const (
	SourceRaw       = "raw_csv"
	SourceMatrix    = "binary_matrix"
	SourceClustered = "clustered"
)

// ExportInput carries the available data snapshots for export resolution.
// Empty strings mean "snapshot not available".
type ExportInput struct {
	Raw       string
	Matrix    string
	Clustered string
}

// Export is the resolved download package. A missing snapshot is a non-fatal
// result with Downloadable=false and Err set, never an error return.
type Export struct {
	CSV          string
	Filename     string
	RowCount     int
	Downloadable bool
	Err          string
}

// ResolveExport picks the best available snapshot for the requested source
// key: exact match when requested, otherwise the snapshot priority order
// (clustered > matrix > raw).
func ResolveExport(source, filename string, in ExportInput) Export {
	return resolveExportAt(source, filename, in, time.Now())
}

// resolveExportAt is the time-injectable core of ResolveExport (for testing).
func resolveExportAt(source, filename string, in ExportInput, now time.Time) Export {
	var csvData string
	switch source {
	case SourceRaw:
		csvData = in.Raw
	case SourceMatrix:
		csvData = in.Matrix
	case SourceClustered:
		csvData = in.Clustered
	default:
		csvData = firstNonEmpty(in.Clustered, in.Matrix, in.Raw)
	}

	if csvData == "" {
		name := source
		if name == "" {
			name = "csv"
		}
		return Export{Err: fmt.Sprintf("No %s data available to export", name)}
	}

	if filename == "" {
		label := source
		if label == "" {
			label = "latest"
		}
		filename = fmt.Sprintf("linguistic_data_%s_%s.csv", label, now.Format("20060102_150405"))
	}

	return Export{
		CSV:          csvData,
		Filename:     filename,
		RowCount:     strings.Count(csvData, "\n"),
		Downloadable: true,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

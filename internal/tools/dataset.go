package tools

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lexatlas/lexatlas/internal/tabular"
)

// readCSVData reports a table's structure without repairing it. Structurally
// broken core-schema data is rejected and pointed at normalize instead of
// being parsed into garbage rows.
func readCSVData(params map[string]any) Result {
	csvData := stringParam(params, "csv_data", "")

	validation := tabular.ValidateCoreSchema(csvData)
	if validation.IsCoreSchema && !validation.OK {
		head := validation.Errors
		if len(head) > 3 {
			head = head[:3]
		}
		return Result{
			"columns":         []string{},
			"row_count":       0,
			"preview":         []map[string]string{},
			"error":           fmt.Sprintf("CSV has structural issues: %s. Run 'normalize' first.", strings.Join(head, "; ")),
			"needs_normalize": true,
		}
	}

	columns, rowCount, preview, err := tabular.Describe(csvData, 5)
	if err != nil {
		return Result{"columns": []string{}, "row_count": 0, "preview": []map[string]string{}, "error": err.Error()}
	}
	return Result{"columns": columns, "row_count": rowCount, "preview": preview}
}

// validateSchemaData checks CSV structure and, when required_columns is
// given, column presence.
func validateSchemaData(params map[string]any) Result {
	csvData := stringParam(params, "csv_data", "")
	required := stringsParam(params, "required_columns")

	validation := tabular.ValidateCoreSchema(csvData)
	errs := append([]string{}, validation.Errors...)
	warnings := append([]string{}, validation.Warnings...)

	columns, rowCount, _, err := tabular.Describe(csvData, 0)
	if err != nil {
		return Result{"ok": false, "errors": []string{err.Error()}, "warnings": []string{}, "total_errors": 1}
	}

	if len(required) > 0 {
		existing := make(map[string]bool, len(columns))
		for _, col := range columns {
			existing[col] = true
		}
		requiredSet := make(map[string]bool, len(required))
		coreRequired := false
		for _, col := range required {
			requiredSet[col] = true
			if col == "Glottocode" {
				coreRequired = true
			}
			if !existing[col] {
				errs = append(errs, fmt.Sprintf("Missing required column: %s", col))
			}
		}
		for _, col := range columns {
			if !requiredSet[col] {
				warnings = append(warnings, fmt.Sprintf("Extra column: %s", col))
			}
		}
		if coreRequired && len(columns) != tabular.CoreSchemaLength {
			warnings = append(warnings, fmt.Sprintf("Expected %d columns, found %d", tabular.CoreSchemaLength, len(columns)))
		}
	}

	totalErrors := len(errs)
	if len(errs) > 5 {
		errs = errs[:5]
	}
	return Result{
		"ok":           totalErrors == 0,
		"errors":       errs,
		"warnings":     warnings,
		"total_errors": totalErrors,
		"row_count":    rowCount,
	}
}

// normalizeData repairs CSV formatting, escaping, and coordinate hygiene.
func normalizeData(params map[string]any) Result {
	csvData := stringParam(params, "csv_data", "")
	repaired, warnings := tabular.Repair(csvData)
	rowCount := 0
	if repaired != "" {
		if n := strings.Count(repaired, "\n") - 1; n > 0 {
			rowCount = n
		}
	}
	return Result{"csv": repaired, "warnings": warnings, "row_count": rowCount}
}

// toBinaryMatrix pivots long-format rows into the availability matrix.
func toBinaryMatrix(params map[string]any) Result {
	csvData := stringParam(params, "csv_data", "")
	matrix, summary, err := tabular.BuildMatrix(csvData)
	if err != nil {
		if errors.Is(err, tabular.ErrNeedsNormalize) {
			return Result{"csv": "", "error": fmt.Sprintf("CSV Structure Error: %s", trimGateError(err)), "summary": map[string]any{}}
		}
		return Result{"csv": "", "error": err.Error(), "summary": map[string]any{}}
	}
	return Result{
		"csv": matrix,
		"summary": map[string]any{
			"languages":    summary.Languages,
			"concepts":     summary.Concepts,
			"avg_coverage": summary.AvgCoverage,
		},
	}
}

// clusterRows runs HDBSCAN over a matrix CSV and appends a cluster_id
// column.
func (e *Executor) clusterRows(params map[string]any) Result {
	if e.Clusterer == nil {
		return Result{"csv": "", "error": "clustering capability unavailable", "summary": map[string]any{}}
	}
	csvData := stringParam(params, "csv_data", "")

	// Tuning knobs arrive either nested under "params" or flattened.
	tuning := mapParam(params, "params")
	if tuning == nil {
		tuning = params
	}
	minClusterSize := intParam(tuning, "min_cluster_size", e.Defaults.MinClusterSize)
	minSamples := intParam(tuning, "min_samples", e.Defaults.MinSamples)
	metric := stringParam(tuning, "metric", e.Defaults.Metric)

	table, err := tabular.ParseMatrix(csvData)
	if err != nil {
		return Result{"csv": "", "error": err.Error(), "summary": map[string]any{}}
	}

	labels, err := e.Clusterer.Cluster(table.Features(), minClusterSize, minSamples, metric)
	if err != nil {
		return Result{"csv": "", "error": err.Error(), "summary": map[string]any{}}
	}

	clustered, err := table.WithClusterColumn(labels)
	if err != nil {
		return Result{"csv": "", "error": err.Error(), "summary": map[string]any{}}
	}

	clusterSet := make(map[int]bool)
	noise := 0
	for _, label := range labels {
		if label < 0 {
			noise++
		} else {
			clusterSet[label] = true
		}
	}
	return Result{
		"csv": clustered,
		"summary": map[string]any{
			"total_clusters":      len(clusterSet),
			"clustered_languages": len(labels) - noise,
			"noise_points":        noise,
		},
	}
}

// toMapLayer converts tabular rows with coordinates into a GeoJSON layer.
func toMapLayer(params map[string]any) Result {
	csvData := stringParam(params, "csv_data", "")
	opts := tabular.MapLayerOptions{
		LatColumn: stringParam(params, "lat_col", ""),
		LonColumn: stringParam(params, "lon_col", ""),
	}

	layer, count, err := tabular.BuildMapLayer(csvData, opts)
	if err != nil {
		if errors.Is(err, tabular.ErrNeedsNormalize) {
			return Result{"geojson": nil, "error": fmt.Sprintf("CSV Structure Error: %s", trimGateError(err))}
		}
		return Result{"geojson": nil, "error": err.Error()}
	}
	return Result{"geojson": layer, "point_count": count}
}

// exportCSVData resolves a download from the session snapshots injected
// under the _snapshots parameter.
func exportCSVData(params map[string]any) Result {
	source := stringParam(params, "data_source", tabular.SourceRaw)
	filename := stringParam(params, "filename", "")

	snapshots := mapParam(params, "_snapshots")
	input := tabular.ExportInput{
		Raw:       stringParam(snapshots, "raw_csv", ""),
		Matrix:    stringParam(snapshots, "binary_matrix_csv", ""),
		Clustered: stringParam(snapshots, "clustered_csv", ""),
	}

	export := tabular.ResolveExport(source, filename, input)
	if export.Err != "" {
		return Result{"error": export.Err, "csv": "", "downloadable": false}
	}
	return Result{
		"csv":          export.CSV,
		"filename":     export.Filename,
		"row_count":    export.RowCount,
		"downloadable": true,
	}
}

// trimGateError strips the sentinel prefix from a structural-gate error so
// user-facing messages start with the actual problem.
func trimGateError(err error) string {
	msg := err.Error()
	prefix := tabular.ErrNeedsNormalize.Error() + ": "
	return strings.TrimPrefix(msg, prefix)
}

// Package tabular implements the CSV data pipeline: core-schema validation,
// tolerant repair, binary availability matrix building, map layer building,
// and export resolution. All functions are pure transformations over
// in-memory CSV text; they never perform I/O and never panic for expected
// failure modes. Expected data errors travel inside return values so that
// the tool layer can surface them with remediation hints.
package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// CoreColumns is the 8-column ordered contract for linguistic rows, one row
// per (language, concept, form) triple.
var CoreColumns = []string{
	"Glottocode",
	"Language Family",
	"Language Name",
	"Concept",
	"Form",
	"Latitude",
	"Longitude",
	"Source",
}

// CoreSchemaLength is the number of columns in the core schema.
const CoreSchemaLength = 8

// MaxRows bounds row scanning on adversarial input. Validation and repair
// truncate with a warning instead of failing outright.
const MaxRows = 10000

// Validation is the result of checking a CSV blob against the core schema.
type Validation struct {
	OK           bool
	Errors       []string // first 5 structural errors
	Warnings     []string
	RowCount     int // -1 when row scanning was skipped (non-core CSV)
	IsCoreSchema bool
}

// newReader returns a CSV reader tolerant of ragged rows and stray quotes,
// matching the permissiveness the rest of the pipeline relies on.
func newReader(data string) *csv.Reader {
	r := csv.NewReader(strings.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r
}

// ValidateCoreSchema checks csvData against the 8-column core schema without
// mutating it.
//
// A CSV is core-schema shaped iff its header has exactly 8 columns including
// "Glottocode". Anything else bypasses strict checking and the result is
// vacuously OK and non-core CSVs are accepted as-is. For core-schema CSVs,
// missing expected column names and rows whose field count differs from 8
// are reported (first 5 errors, 1-indexed line numbers), and scanning stops
// at MaxRows with a truncation warning.
func ValidateCoreSchema(csvData string) Validation {
	if strings.TrimSpace(csvData) == "" {
		return Validation{Errors: []string{"Empty CSV data"}}
	}

	reader := newReader(strings.TrimSpace(csvData))

	header, err := reader.Read()
	if err != nil {
		return Validation{Errors: []string{fmt.Sprintf("No header row: %v", err)}}
	}

	isCore := len(header) == CoreSchemaLength && containsColumn(header, "Glottocode")
	if !isCore {
		// Not core schema; skip strict validation.
		return Validation{OK: true, RowCount: -1}
	}

	var errs, warnings []string
	var missing []string
	for _, want := range CoreColumns {
		if !containsColumn(header, want) {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		errs = append(errs, fmt.Sprintf("Missing columns: %s", strings.Join(missing, ", ")))
	}

	lineNum := 2 // 1-indexed, header is line 1
	rowCount := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("Line %d: %v", lineNum, err))
			break
		}
		if rowCount >= MaxRows {
			warnings = append(warnings, fmt.Sprintf("File exceeds %d rows, truncated for validation", MaxRows))
			break
		}
		if len(row) != CoreSchemaLength {
			errs = append(errs, fmt.Sprintf("Line %d: has %d fields instead of %d", lineNum, len(row), CoreSchemaLength))
			if len(errs) >= 5 {
				break
			}
		}
		lineNum++
		rowCount++
	}

	if len(errs) > 5 {
		errs = errs[:5]
	}
	return Validation{
		OK:           len(errs) == 0,
		Errors:       errs,
		Warnings:     warnings,
		RowCount:     rowCount,
		IsCoreSchema: true,
	}
}

func containsColumn(header []string, name string) bool {
	for _, h := range header {
		if strings.TrimSpace(h) == name {
			return true
		}
	}
	return false
}

// Dimensions returns the data row count and header column count of a CSV
// blob. Used for snapshot metadata; returns zeros on unparsable input.
func Dimensions(csvData string) (rows, cols int) {
	if strings.TrimSpace(csvData) == "" {
		return 0, 0
	}
	reader := newReader(strings.TrimSpace(csvData))
	header, err := reader.Read()
	if err != nil {
		return 0, 0
	}
	cols = len(header)
	for {
		if _, err := reader.Read(); err != nil {
			break
		}
		rows++
	}
	return rows, cols
}

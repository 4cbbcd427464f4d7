package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNoConceptColumns is returned when a matrix CSV has only identity
// columns and therefore nothing to cluster on.
var ErrNoConceptColumns = errors.New("No concept columns found")

// MatrixTable is a parsed availability matrix split into identity columns
// and binary concept columns.
type MatrixTable struct {
	Header []string
	Rows   [][]string

	conceptIdx []int
}

// ParseMatrix parses a wide matrix CSV. Every column outside the known
// identity set counts as a concept column.
func ParseMatrix(csvData string) (*MatrixTable, error) {
	header, rows, err := readTable(csvData)
	if err != nil {
		return nil, err
	}

	identity := make(map[string]bool, len(identityColumns))
	for _, col := range identityColumns {
		identity[col] = true
	}

	var conceptIdx []int
	for i, col := range header {
		if !identity[col] {
			conceptIdx = append(conceptIdx, i)
		}
	}
	if len(conceptIdx) == 0 {
		return nil, ErrNoConceptColumns
	}
	return &MatrixTable{Header: header, Rows: rows, conceptIdx: conceptIdx}, nil
}

// Features extracts the concept columns as a numeric feature matrix, one
// row per table row. Unparsable cells count as 0.
func (t *MatrixTable) Features() [][]float64 {
	features := make([][]float64, len(t.Rows))
	for i, row := range t.Rows {
		vec := make([]float64, len(t.conceptIdx))
		for j, idx := range t.conceptIdx {
			if v, err := strconv.ParseFloat(strings.TrimSpace(field(row, idx)), 64); err == nil {
				vec[j] = v
			}
		}
		features[i] = vec
	}
	return features
}

// WithClusterColumn returns the table as CSV with a cluster_id column
// appended. labels must have one entry per row.
func (t *MatrixTable) WithClusterColumn(labels []int) (string, error) {
	if len(labels) != len(t.Rows) {
		return "", fmt.Errorf("label count %d does not match row count %d", len(labels), len(t.Rows))
	}

	var out strings.Builder
	writer := csv.NewWriter(&out)
	if err := writer.Write(append(append([]string{}, t.Header...), "cluster_id")); err != nil {
		return "", fmt.Errorf("write header: %w", err)
	}
	for i, row := range t.Rows {
		record := make([]string, len(t.Header)+1)
		for j := range t.Header {
			record[j] = field(row, j)
		}
		record[len(t.Header)] = strconv.Itoa(labels[i])
		if err := writer.Write(record); err != nil {
			return "", fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("write clustered CSV: %w", err)
	}
	return out.String(), nil
}

// Describe parses a CSV blob and reports its columns, row count, and a
// preview of up to previewRows rows keyed by column name.
func Describe(csvData string, previewRows int) ([]string, int, []map[string]string, error) {
	header, rows, err := readTable(csvData)
	if err != nil {
		return nil, 0, nil, err
	}
	n := previewRows
	if n > len(rows) {
		n = len(rows)
	}
	preview := make([]map[string]string, 0, n)
	for _, row := range rows[:n] {
		record := make(map[string]string, len(header))
		for i, col := range header {
			record[col] = field(row, i)
		}
		preview = append(preview, record)
	}
	return header, len(rows), preview, nil
}

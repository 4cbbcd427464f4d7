package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
)

// ErrNeedsNormalize wraps structural-gate failures whose remediation is to
// run the normalize tool first.
var ErrNeedsNormalize = errors.New("csv structure error")

// identityColumns are the metadata columns carried through the pivot, in
// output order. Only the ones present in the input are used.
var identityColumns = []string{
	"Glottocode",
	"Language Family",
	"Language Name",
	"Latitude",
	"Longitude",
}

// matrixRequiredColumns are the minimum columns the pivot needs.
var matrixRequiredColumns = []string{"Glottocode", "Language Name", "Concept", "Form"}

// MatrixSummary describes a built availability matrix.
type MatrixSummary struct {
	Languages   int     `json:"languages"`
	Concepts    int     `json:"concepts"`
	AvgCoverage float64 `json:"avg_coverage"` // mean of all indicator cells ×100, 1 decimal
}

// BuildMatrix pivots validated long-format rows into a binary
// language×concept presence matrix.
//
// Rows with an empty Form carry no evidence of availability and are dropped.
// Duplicate forms for the same language×concept collapse to a single
// indicator. Output is a wide CSV with one row per distinct
// language-identity tuple and one integer 0/1 column per concept.
func BuildMatrix(csvData string) (string, MatrixSummary, error) {
	validation := ValidateCoreSchema(csvData)
	if validation.IsCoreSchema && !validation.OK {
		head := validation.Errors
		if len(head) > 3 {
			head = head[:3]
		}
		return "", MatrixSummary{}, fmt.Errorf("%w: %s. Please run the 'normalize' tool to fix this automatically",
			ErrNeedsNormalize, strings.Join(head, "; "))
	}

	header, rows, err := readTable(csvData)
	if err != nil {
		return "", MatrixSummary{}, err
	}

	colIdx := indexColumns(header)
	var missing []string
	for _, col := range matrixRequiredColumns {
		if _, ok := colIdx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return "", MatrixSummary{}, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}

	var metaCols []string
	for _, col := range identityColumns {
		if _, ok := colIdx[col]; ok {
			metaCols = append(metaCols, col)
		}
	}

	// Group by identity tuple × concept; presence collapses duplicates.
	type identity struct {
		key    string
		fields []string
	}
	identities := make(map[string]*identity)
	presence := make(map[string]map[string]bool) // identity key -> concept set
	conceptSet := make(map[string]bool)

	conceptIdx := colIdx["Concept"]
	formIdx := colIdx["Form"]

	for _, row := range rows {
		if strings.TrimSpace(field(row, formIdx)) == "" {
			continue
		}
		concept := field(row, conceptIdx)

		fields := make([]string, len(metaCols))
		for i, col := range metaCols {
			fields[i] = field(row, colIdx[col])
		}
		key := strings.Join(fields, "\x1f")

		if _, ok := identities[key]; !ok {
			identities[key] = &identity{key: key, fields: fields}
			presence[key] = make(map[string]bool)
		}
		presence[key][concept] = true
		conceptSet[concept] = true
	}

	concepts := make([]string, 0, len(conceptSet))
	for c := range conceptSet {
		concepts = append(concepts, c)
	}
	sort.Strings(concepts)

	keys := make([]string, 0, len(identities))
	for k := range identities {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out strings.Builder
	writer := csv.NewWriter(&out)
	outHeader := append(append([]string{}, metaCols...), concepts...)
	if err := writer.Write(outHeader); err != nil {
		return "", MatrixSummary{}, fmt.Errorf("write matrix header: %w", err)
	}

	ones := 0
	for _, k := range keys {
		id := identities[k]
		record := append([]string{}, id.fields...)
		for _, c := range concepts {
			if presence[k][c] {
				record = append(record, "1")
				ones++
			} else {
				record = append(record, "0")
			}
		}
		if err := writer.Write(record); err != nil {
			return "", MatrixSummary{}, fmt.Errorf("write matrix row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", MatrixSummary{}, fmt.Errorf("write matrix: %w", err)
	}

	summary := MatrixSummary{
		Languages: len(keys),
		Concepts:  len(concepts),
	}
	if cells := len(keys) * len(concepts); cells > 0 {
		summary.AvgCoverage = math.Round(float64(ones)/float64(cells)*1000) / 10
	}
	return out.String(), summary, nil
}

// readTable parses a CSV blob into a header plus data rows, tolerating
// ragged row lengths.
func readTable(csvData string) ([]string, [][]string, error) {
	if strings.TrimSpace(csvData) == "" {
		return nil, nil, fmt.Errorf("empty CSV data")
	}
	reader := newReader(strings.TrimSpace(csvData))
	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("no header row: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("parse CSV: %w", err)
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

func indexColumns(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}
	return idx
}

// field returns row[i] or "" when the row is too short.
func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Repair coerces malformed CSV into the 8-column core schema without
// discarding data. It sniffs the delimiter from the first kilobyte, re-emits
// with canonical quoting, pads or truncates the header to 8 columns,
// right-pads short rows, collapses overlong rows into the Source column
// (comma-joined; the common failure mode is an unescaped comma inside a
// free-text citation), trims whitespace, and cleans the coordinate fields.
//
// Repair never fails on well-formed-but-unexpected input; on catastrophic
// parse failure it returns the original text unchanged plus a single
// warning, so the caller can retry manually. Repair is idempotent.
func Repair(csvData string) (string, []string) {
	if strings.TrimSpace(csvData) == "" {
		return "", []string{"Empty CSV data"}
	}

	var warnings []string

	reader := csv.NewReader(strings.NewReader(strings.TrimSpace(csvData)))
	reader.Comma = sniffDelimiter(csvData)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var out strings.Builder
	writer := csv.NewWriter(&out)

	header, err := reader.Read()
	if err != nil {
		return "", []string{"No header row"}
	}

	if len(header) < CoreSchemaLength {
		for len(header) < CoreSchemaLength {
			header = append(header, "")
		}
		warnings = append(warnings, "Added missing header columns")
	} else if len(header) > CoreSchemaLength {
		warnings = append(warnings, "Dropped extra header columns")
	}
	header = header[:CoreSchemaLength]
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if err := writer.Write(header); err != nil {
		return csvData, append(warnings, fmt.Sprintf("Repair failed: %v", err))
	}

	rowCount := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return csvData, append(warnings, fmt.Sprintf("Repair failed: %v", err))
		}
		if rowCount >= MaxRows {
			warnings = append(warnings, fmt.Sprintf("Truncated at %d rows", MaxRows))
			break
		}

		if len(row) < CoreSchemaLength {
			for len(row) < CoreSchemaLength {
				row = append(row, "")
			}
		} else if len(row) > CoreSchemaLength {
			// Merge extra fields into Source.
			source := strings.Join(row[CoreSchemaLength-1:], ", ")
			row = append(row[:CoreSchemaLength-1], source)
			warnings = append(warnings, fmt.Sprintf("Row %d: merged extra columns into Source", rowCount+2))
		}

		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}

		// Coordinate hygiene (indices 5=Latitude, 6=Longitude).
		for _, i := range []int{5, 6} {
			if row[i] == "" {
				continue
			}
			cleaned, ok := CleanCoordinate(row[i])
			if !ok {
				row[i] = ""
			} else {
				row[i] = cleaned
			}
		}

		if err := writer.Write(row); err != nil {
			return csvData, append(warnings, fmt.Sprintf("Repair failed: %v", err))
		}
		rowCount++
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return csvData, append(warnings, fmt.Sprintf("Repair failed: %v", err))
	}
	return out.String(), warnings
}

// coordinateArtifacts are glyphs stripped from coordinate fields before
// numeric parsing: degree/minute/second marks, cardinal letters, spaces.
const coordinateArtifacts = "°′″NSEW "

// CleanCoordinate normalizes a single coordinate value. A trailing/leading
// "S" or "W" forces a negative sign when one is not already present. The
// cleaned value must parse as a finite number; otherwise ok is false and the
// field should be blanked. Blank, not zero, so a bad coordinate never
// becomes a false "valid" point at the origin.
func CleanCoordinate(value string) (string, bool) {
	if value == "" {
		return "", false
	}

	cleaned := value
	for _, artifact := range coordinateArtifacts {
		cleaned = strings.ReplaceAll(cleaned, string(artifact), "")
	}

	upper := strings.ToUpper(value)
	if strings.Contains(upper, "S") || strings.Contains(upper, "W") {
		if !strings.HasPrefix(cleaned, "-") {
			cleaned = "-" + cleaned
		}
	}

	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return "", false
	}
	return cleaned, true
}

// sniffDelimiter inspects the first kilobyte of data and picks the candidate
// delimiter with the highest count on the header line, defaulting to comma.
func sniffDelimiter(data string) rune {
	sample := data
	if len(sample) > 1024 {
		sample = sample[:1024]
	}
	if idx := strings.IndexByte(sample, '\n'); idx > 0 {
		sample = sample[:idx]
	}

	best := ','
	bestCount := strings.Count(sample, ",")
	for _, cand := range []rune{';', '\t', '|'} {
		if n := strings.Count(sample, string(cand)); n > bestCount {
			best = cand
			bestCount = n
		}
	}
	return best
}

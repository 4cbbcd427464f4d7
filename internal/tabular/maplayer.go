package tabular

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// MapLayerOptions names the coordinate columns. Zero values mean the core
// schema defaults.
type MapLayerOptions struct {
	LatColumn string
	LonColumn string
}

// BuildMapLayer converts any tabular snapshot with coordinate columns into a
// point feature collection.
//
// Rows missing either coordinate are dropped. Every non-coordinate column
// becomes a feature property; blank cells become explicit nulls and numeric
// cells are normalized to plain ints/floats so the encoded GeoJSON carries
// no provider-specific wrapper types.
func BuildMapLayer(csvData string, opts MapLayerOptions) (*geojson.FeatureCollection, int, error) {
	validation := ValidateCoreSchema(csvData)
	if validation.IsCoreSchema && !validation.OK {
		head := validation.Errors
		if len(head) > 3 {
			head = head[:3]
		}
		return nil, 0, fmt.Errorf("%w: %s. This usually happens when the 'Source' field contains unescaped commas. Please run the 'normalize' tool to fix this automatically",
			ErrNeedsNormalize, strings.Join(head, "; "))
	}

	latCol := opts.LatColumn
	if latCol == "" {
		latCol = "Latitude"
	}
	lonCol := opts.LonColumn
	if lonCol == "" {
		lonCol = "Longitude"
	}

	header, rows, err := readTable(csvData)
	if err != nil {
		return nil, 0, err
	}
	colIdx := indexColumns(header)

	latIdx, latOK := colIdx[latCol]
	lonIdx, lonOK := colIdx[lonCol]
	if !latOK || !lonOK {
		return nil, 0, fmt.Errorf("missing %s or %s columns", latCol, lonCol)
	}

	fc := geojson.NewFeatureCollection()
	for _, row := range rows {
		lat, err1 := strconv.ParseFloat(strings.TrimSpace(field(row, latIdx)), 64)
		lon, err2 := strconv.ParseFloat(strings.TrimSpace(field(row, lonIdx)), 64)
		if err1 != nil || err2 != nil {
			continue
		}

		feature := geojson.NewFeature(orb.Point{lon, lat})
		for i, col := range header {
			if i == latIdx || i == lonIdx {
				continue
			}
			feature.Properties[col] = coerceProperty(field(row, i))
		}
		fc.Append(feature)
	}

	return fc, len(fc.Features), nil
}

// coerceProperty maps a CSV cell to a JSON-friendly property value: blanks
// to nil, integers to int, other numerics to float64, everything else kept
// as a string.
func coerceProperty(value string) any {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	if n, err := strconv.Atoi(trimmed); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f
	}
	return value
}

package orchestrator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/lexatlas/lexatlas/internal/tools"
)

// FormatResult renders a tool result as a markdown summary to append to the
// assistant reply. The first matching shape wins: error, wordlist,
// downloadable export, CSV payload, summary, GeoJSON, notes, validation
// verdict.
func FormatResult(toolName string, result tools.Result) string {
	if len(result) == 0 {
		return ""
	}

	if msg := result.Err(); msg != "" {
		return fmt.Sprintf("\n\n❌ **Error:** %s", msg)
	}

	if wordlist, ok := result["wordlist"].([]string); ok && len(wordlist) > 0 {
		items := strings.Join(wordlist, ", ")
		if len(wordlist) > 10 {
			items = strings.Join(wordlist[:10], ", ") + fmt.Sprintf("... (%d total)", len(wordlist))
		}
		return fmt.Sprintf("\n\n✅ **Wordlist created (%d concepts):**\n%s", len(wordlist), items)
	}

	if downloadable, ok := result["downloadable"].(bool); ok && downloadable {
		filename, _ := result["filename"].(string)
		if filename == "" {
			filename = "data.csv"
		}
		return fmt.Sprintf("\n\n✅ **CSV ready for download:**\n• Filename: `%s`\n• Rows: %d\n\n📥 Click the **Download** button below to save the file.",
			filename, resultInt(result, "row_count", 0))
	}

	if csvData, ok := result["csv"].(string); ok && csvData != "" {
		return formatCSVResult(toolName, csvData, result)
	}

	if summary, ok := result["summary"].(map[string]any); ok && len(summary) > 0 {
		keys := make([]string, 0, len(summary))
		for k := range summary {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		lines := make([]string, 0, len(keys))
		for _, k := range keys {
			lines = append(lines, fmt.Sprintf("• %s: %v", k, summary[k]))
		}
		return "\n\n✅ **Results:**\n" + strings.Join(lines, "\n")
	}

	if layer, ok := result["geojson"].(*geojson.FeatureCollection); ok && layer != nil {
		count := resultInt(result, "point_count", len(layer.Features))
		return fmt.Sprintf("\n\n✅ **Map layer created** with %d points. Check the map view!", count)
	}

	if notes, ok := result["notes"].(string); ok {
		return fmt.Sprintf("\n\n✅ %s", notes)
	}

	if valid, ok := result["ok"].(bool); ok {
		if valid {
			return "\n\n✅ **Validation passed** - Data is ready for processing."
		}
		errs, _ := result["errors"].([]string)
		if len(errs) > 5 {
			errs = errs[:5]
		}
		lines := make([]string, 0, len(errs))
		for _, e := range errs {
			lines = append(lines, "• "+e)
		}
		return "\n\n❌ **Validation failed:**\n" + strings.Join(lines, "\n")
	}

	return ""
}

func formatCSVResult(toolName, csvData string, result tools.Result) string {
	lines := strings.Count(csvData, "\n")

	switch toolName {
	case "to_binary_matrix":
		summary, _ := result["summary"].(map[string]any)
		return fmt.Sprintf("\n\n✅ **Binary matrix created:**\n• Languages: %v\n• Concepts: %v\n• Average coverage: %v%%\n\n📥 **Download available** - Click the download button to save.",
			summaryValue(summary, "languages"), summaryValue(summary, "concepts"), summaryValue(summary, "avg_coverage"))

	case "cluster":
		summary, _ := result["summary"].(map[string]any)
		return fmt.Sprintf("\n\n✅ **Clustering complete:**\n• Clusters found: %v\n• Languages clustered: %v\n• Noise points: %v\n\n📥 **Download available** - Click the download button to save.",
			summaryValue(summary, "total_clusters"), summaryValue(summary, "clustered_languages"), summaryValue(summary, "noise_points"))

	case "normalize":
		return fmt.Sprintf("\n\n✅ **CSV normalized (%d rows):**\nData has been cleaned and is ready for analysis.\n\n📥 **Download available**", lines)
	}

	previewLines := strings.Split(csvData, "\n")
	if len(previewLines) > 4 {
		previewLines = previewLines[:4]
	}
	preview := strings.Join(previewLines, "\n")
	if lines > 3 {
		preview += fmt.Sprintf("\n... (%d rows total)", lines)
	}
	return fmt.Sprintf("\n\n✅ **Data collected (%d rows):**\n```csv\n%s\n```\n\n📥 **Download available** - Click the download button to save as CSV.\n\nWhat would you like to do next?\n• **Normalize** - Clean and validate the data\n• **Convert to matrix** - Create a binary availability matrix\n• **Cluster** - Group languages by similarity\n• **Map** - Visualize on a map",
		lines, preview)
}

func summaryValue(summary map[string]any, key string) any {
	if summary == nil {
		return "?"
	}
	if v, ok := summary[key]; ok {
		return v
	}
	return "?"
}

// DefaultResponse fills in assistant text when the reply is empty once the
// tool directive has been stripped.
func DefaultResponse(toolName string) string {
	descriptions := map[string]string{
		"propose_wordlist":          "generating your wordlist",
		"refine_wordlist":           "refining the wordlist",
		"collect_multilingual_rows": "collecting multilingual data",
		"read_csv":                  "parsing the CSV file",
		"validate_schema":           "validating the data schema",
		"normalize":                 "normalizing the CSV data",
		"to_binary_matrix":          "creating the binary matrix",
		"cluster":                   "clustering the languages",
		"to_map_layer":              "creating the map layer",
		"export_csv":                "preparing your download",
	}
	description, ok := descriptions[toolName]
	if !ok {
		description = fmt.Sprintf("running %s", toolName)
	}
	return fmt.Sprintf("I'm %s...", description)
}

// CleanReply strips tool directives from assistant text: fenced code blocks
// whose JSON object parses as a directive, then inline directive spans. Runs
// of blank lines left behind are collapsed.
func CleanReply(text string) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	rest := text
	for {
		open := strings.Index(rest, "```")
		if open < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.Index(rest[open+3:], "```")
		if end < 0 {
			b.WriteString(rest)
			break
		}
		fence := rest[open : open+3+end+3]
		if span := firstObjectSpan(fence); span != "" {
			if _, ok := parseDirective(span); ok {
				b.WriteString(rest[:open])
				rest = rest[open+3+end+3:]
				continue
			}
		}
		b.WriteString(rest[:open+3+end+3])
		rest = rest[open+3+end+3:]
	}

	cleaned := b.String()
	for {
		i := strings.Index(cleaned, `{"server"`)
		if i < 0 {
			break
		}
		span, ok := scanObject(cleaned, i)
		if !ok {
			break
		}
		cleaned = cleaned[:i] + cleaned[i+len(span):]
	}

	for strings.Contains(cleaned, "\n\n\n") {
		cleaned = strings.ReplaceAll(cleaned, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(cleaned)
}

func firstObjectSpan(text string) string {
	start := strings.Index(text, "{")
	if start < 0 {
		return ""
	}
	span, ok := scanObject(text, start)
	if !ok {
		return ""
	}
	return span
}

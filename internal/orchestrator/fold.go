package orchestrator

import (
	"strings"

	"github.com/lexatlas/lexatlas/internal/session"
	"github.com/lexatlas/lexatlas/internal/tabular"
	"github.com/lexatlas/lexatlas/internal/tools"
)

// FoldResult writes a tool's output back into session state so later turns
// can build on it. Harvested data replaces the raw snapshot and drops every
// derived stage; each pipeline stage result replaces only its own snapshot.
func (o *Orchestrator) FoldResult(sessionID string, call tools.Call, result tools.Result) {
	o.sessions.Update(sessionID, func(s *session.Session) {
		switch call.ID {
		case tools.ProposeWordlist, tools.RefineWordlist:
			if wl, ok := result["wordlist"].([]string); ok {
				s.Wordlist = wl
			}

		case tools.CollectRows:
			if csvData, ok := result["csv"].(string); ok && csvData != "" {
				rows, cols := tabular.Dimensions(csvData)
				s.SetRaw(session.Snapshot{Text: csvData, Rows: rows, Cols: cols}, session.SourceHarvest)
			}

		case tools.Normalize:
			if csvData, ok := result["csv"].(string); ok && csvData != "" {
				rows := resultInt(result, "row_count", strings.Count(csvData, "\n"))
				_, cols := tabular.Dimensions(csvData)
				s.Normalized = session.Snapshot{Text: csvData, Rows: rows, Cols: cols}
			}

		case tools.ToBinaryMatrix:
			if csvData, ok := result["csv"].(string); ok && csvData != "" {
				rows, cols := tabular.Dimensions(csvData)
				s.Matrix = session.Snapshot{Text: csvData, Rows: rows, Cols: cols}
				if summary, ok := result["summary"].(map[string]any); ok {
					s.MatrixLanguages = resultInt(summary, "languages", 0)
					s.MatrixConcepts = resultInt(summary, "concepts", 0)
				}
			}

		case tools.Cluster:
			if csvData, ok := result["csv"].(string); ok && csvData != "" {
				rows, cols := tabular.Dimensions(csvData)
				s.Clustered = session.Snapshot{Text: csvData, Rows: rows, Cols: cols}
			}
		}
		s.LastResult = result
	})
}

func resultInt(m map[string]any, key string, fallback int) int {
	switch v := m[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return fallback
}

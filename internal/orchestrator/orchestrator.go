// Package orchestrator drives the conversational loop: it feeds user
// messages and session context to the language model, pulls tool directives
// out of the reply, enriches their parameters from session data, and checks
// that the pipeline preconditions for the requested tool hold. Actual tool
// execution is left to the caller so a blocked or text-only turn never
// touches an executor.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lexatlas/lexatlas/internal/llm"
	"github.com/lexatlas/lexatlas/internal/session"
	"github.com/lexatlas/lexatlas/internal/tabular"
	"github.com/lexatlas/lexatlas/internal/tools"
)

// Turn kinds.
const (
	KindText     = "text"
	KindToolCall = "tool_call"
	KindError    = "error"
)

// TurnResult is the outcome of one processed user message.
type TurnResult struct {
	Kind    string
	Content string // raw assistant reply, or error text for KindError

	// Set when Kind is KindToolCall.
	Call tools.Call
	// Non-empty when the requested tool cannot run against the current
	// session state. The call must not be executed.
	BlockedReason string
}

// Orchestrator processes conversation turns for all sessions.
type Orchestrator struct {
	sessions *session.Store
	provider llm.Provider

	now func() time.Time
}

// New creates an orchestrator over the given session store and model
// provider.
func New(store *session.Store, provider llm.Provider) *Orchestrator {
	return &Orchestrator{sessions: store, provider: provider, now: time.Now}
}

// ProcessTurn handles one user message. An uploaded CSV replaces the
// session's raw data before anything else happens; when the message itself
// is blank, a stand-in message keeps the conversation well-formed.
func (o *Orchestrator) ProcessTurn(ctx context.Context, sessionID, message, uploadedCSV string) TurnResult {
	if uploadedCSV != "" {
		rows, cols := tabular.Dimensions(uploadedCSV)
		o.sessions.Update(sessionID, func(s *session.Session) {
			s.SetRaw(session.Snapshot{Text: uploadedCSV, Rows: rows, Cols: cols}, session.SourceUpload)
		})
		if strings.TrimSpace(message) == "" {
			message = "I've uploaded a CSV file."
		}
	}

	var systemMsg string
	var recent []session.Turn
	o.sessions.Update(sessionID, func(s *session.Session) {
		s.AppendTurn(session.RoleUser, message, o.now())
		systemMsg = systemPrompt(s)
		recent = append(recent, s.RecentHistory(10)...)
	})

	conversation := make([]llm.Message, 0, len(recent)+1)
	conversation = append(conversation, llm.Message{Role: llm.RoleSystem, Content: systemMsg})
	for _, turn := range recent {
		conversation = append(conversation, llm.Message{Role: turn.Role, Content: turn.Content})
	}

	reply, err := o.provider.Chat(ctx, conversation)
	if err != nil {
		zap.L().Error("model call failed", zap.String("session_id", sessionID), zap.Error(err))
		return TurnResult{Kind: KindError, Content: fmt.Sprintf("I encountered an error: %v", err)}
	}

	o.sessions.Update(sessionID, func(s *session.Session) {
		s.AppendTurn(session.RoleAssistant, reply, o.now())
	})

	directive, found := ExtractDirective(reply)
	if !found {
		return TurnResult{Kind: KindText, Content: reply}
	}

	call, blocked := o.prepareCall(sessionID, directive)
	if blocked != "" {
		zap.L().Info("tool call blocked",
			zap.String("session_id", sessionID),
			zap.String("server", directive.Server),
			zap.String("tool", directive.Tool),
			zap.String("reason", blocked))
	}
	return TurnResult{Kind: KindToolCall, Content: reply, Call: call, BlockedReason: blocked}
}

// prepareCall resolves a directive against the registry, fills missing
// parameters from session data, and checks pipeline preconditions.
func (o *Orchestrator) prepareCall(sessionID string, d Directive) (tools.Call, string) {
	call := tools.Call{
		ID:        tools.ID{Server: d.Server, Tool: d.Tool},
		SessionID: sessionID,
		Params:    make(map[string]any, len(d.Params)+1),
	}
	for k, v := range d.Params {
		call.Params[k] = v
	}

	spec, known := tools.Lookup(d.Server, d.Tool)
	if !known {
		return call, fmt.Sprintf("Unknown tool: %s in server %s", d.Tool, d.Server)
	}

	var blocked string
	o.sessions.View(sessionID, func(s *session.Session) {
		enrichParams(call.ID, call.Params, s)
		blocked = checkPreconditions(call.ID, call.Params, s)
	})
	if blocked != "" {
		return call, blocked
	}
	if err := spec.ValidateParams(call.Params); err != nil {
		return call, err.Error()
	}
	return call, ""
}

// enrichParams binds session data into parameters the model left out.
// Explicit parameters always win over session state.
func enrichParams(id tools.ID, params map[string]any, s *session.Session) {
	switch id {
	case tools.CollectRows:
		if _, ok := params["wordlist"]; !ok && len(s.Wordlist) > 0 {
			params["wordlist"] = s.Wordlist
		}

	case tools.ReadCSV, tools.ValidateSchema, tools.Normalize:
		if _, ok := params["csv_data"]; !ok && !s.Raw.Empty() {
			params["csv_data"] = s.Raw.Text
		}

	case tools.ToBinaryMatrix:
		if _, ok := params["csv_data"]; !ok {
			// Prefer normalized data so repaired escaping carries through.
			if !s.Normalized.Empty() {
				params["csv_data"] = s.Normalized.Text
			} else if !s.Raw.Empty() {
				params["csv_data"] = s.Raw.Text
			}
		}

	case tools.Cluster:
		if _, ok := params["csv_data"]; !ok && !s.Matrix.Empty() {
			params["csv_data"] = s.Matrix.Text
		}

	case tools.ToMapLayer:
		if _, ok := params["csv_data"]; !ok && s.HasData() {
			params["csv_data"] = s.ActiveSnapshot().Text
		}

	case tools.ExportCSV:
		params["_snapshots"] = map[string]any{
			"raw_csv":           s.Raw.Text,
			"binary_matrix_csv": s.Matrix.Text,
			"clustered_csv":     s.Clustered.Text,
		}
	}
}

// checkPreconditions returns a user-facing reason when the tool's required
// data is missing from both the parameters and the session.
func checkPreconditions(id tools.ID, params map[string]any, s *session.Session) string {
	switch id {
	case tools.ReadCSV, tools.ValidateSchema, tools.Normalize, tools.ToBinaryMatrix, tools.Cluster, tools.ToMapLayer:
		if v, _ := params["csv_data"].(string); v != "" {
			return ""
		}
		if !s.HasData() {
			return "No data available. Please upload a CSV file or collect data first."
		}
		if id == tools.Cluster && s.Matrix.Empty() {
			return "Clustering requires a binary matrix. Please run 'to_binary_matrix' first."
		}
		if id == tools.ToBinaryMatrix && s.Raw.Empty() && s.Normalized.Empty() {
			return "No raw data available. Please upload or collect data first."
		}

	case tools.CollectRows:
		switch wl := params["wordlist"].(type) {
		case []string:
			if len(wl) > 0 {
				return ""
			}
		case []any:
			if len(wl) > 0 {
				return ""
			}
		}
		if len(s.Wordlist) == 0 {
			return "No wordlist available. Please create a wordlist first with 'propose_wordlist'."
		}
	}
	return ""
}

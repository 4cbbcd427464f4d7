package orchestrator

import (
	"fmt"
	"strings"

	"github.com/lexatlas/lexatlas/internal/session"
	"github.com/lexatlas/lexatlas/internal/tools"
)

// systemPrompt assembles the assistant instructions for one turn: what data
// the session holds, the tool registry with invocation examples, and the
// behavioral rules that keep tool use opt-in.
func systemPrompt(s *session.Session) string {
	var context []string
	if len(s.Wordlist) > 0 {
		context = append(context, fmt.Sprintf("- Wordlist available (%d concepts)", len(s.Wordlist)))
	}
	if !s.Raw.Empty() {
		context = append(context, fmt.Sprintf("- Raw linguistic CSV loaded (%d rows)", s.Raw.Rows))
	}
	if !s.Normalized.Empty() {
		context = append(context, "- Normalized CSV ready")
	}
	if !s.Matrix.Empty() {
		context = append(context, fmt.Sprintf("- Binary matrix created (%d languages)", s.MatrixLanguages))
	}
	if !s.Clustered.Empty() {
		context = append(context, "- Clustered data available")
	}
	if s.HasData() {
		context = append(context, fmt.Sprintf("\n**ACTIVE DATA:** %s", activeDataLabel(s)))
	}
	contextStr := "No data loaded yet"
	if len(context) > 0 {
		contextStr = strings.Join(context, "\n")
	}

	return fmt.Sprintf(`You are a helpful research assistant for linguistic analysis. You can help with:
- Creating wordlists for cross-linguistic comparison
- Collecting multilingual data
- Building binary availability matrices
- Clustering languages with HDBSCAN
- Mapping results

**IMPORTANT BEHAVIORAL RULES:**
1. Be conversational by default - chat normally unless a tool is needed
2. Only use tools when the user EXPLICITLY requests or clearly implies it
3. Never force a workflow - tools are optional and independent
4. When unsure, ask a brief clarifying question instead of assuming

**Available Data:**
%s

**Server and Tool Mapping (MUST use correct server for each tool):**

%s

**When NOT to use tools:**
- User is just chatting or asking questions
- User hasn't explicitly requested an action
- You're unsure what the user wants (ask instead)

**Tool Call Format:**
When you decide to use a tool, include this JSON in your response:

%s

**IMPORTANT BEHAVIOR AFTER DATA COLLECTION:**
After collecting data with collect_multilingual_rows, ALWAYS tell the user:
- The data is ready and can be downloaded using the download button
- Highly recommend running the **normalize** tool (csv_ingest_and_validate) before building a matrix, clustering, or mapping. This ensures proper escaping of fields with commas (like 'Source').
- Ask if they want to proceed with further analysis (matrix, clustering, mapping)
- Do NOT automatically proceed to the next step

**If user uploads data without instructions:**
Ask briefly: "What would you like to do with this - validate, build matrix, cluster, or map?"

Be helpful, brief, and respect the user's autonomy to choose what they want to do.`,
		contextStr, toolMapping(), toolExamples())
}

// activeDataLabel names the snapshot the pipeline tools would operate on.
func activeDataLabel(s *session.Session) string {
	switch s.ActiveName() {
	case "clustered":
		return "clustered data"
	case "matrix":
		return fmt.Sprintf("binary matrix (%d languages, %d concepts)", s.MatrixLanguages, s.MatrixConcepts)
	case "normalized":
		return fmt.Sprintf("normalized CSV (%d rows)", s.Normalized.Rows)
	case "raw":
		source := s.RawSource
		if source == "" {
			source = "uploaded"
		}
		return fmt.Sprintf("%s CSV (%d rows)", source, s.Raw.Rows)
	}
	return "no data"
}

// toolMapping lists every registered tool grouped by server, in
// registration order.
func toolMapping() string {
	var b strings.Builder
	var lastServer string
	for _, spec := range tools.All() {
		if spec.ID.Server != lastServer {
			if lastServer != "" {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "SERVER: %s\n", spec.ID.Server)
			lastServer = spec.ID.Server
		}
		fmt.Fprintf(&b, "  - %s: %s\n", spec.ID.Tool, spec.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

func toolExamples() string {
	var b strings.Builder
	for _, spec := range tools.All() {
		fmt.Fprintf(&b, "%s (server: %s):\n```json\n%s\n```\n\n", spec.Description, spec.ID.Server, spec.Example)
	}
	return strings.TrimRight(b.String(), "\n")
}

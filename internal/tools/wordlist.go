package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const defaultMaxTerms = 30

// proposeWordlist asks the language model for concept terms in a semantic
// field and parses them out of the reply.
func (e *Executor) proposeWordlist(ctx context.Context, params map[string]any) Result {
	topic := stringParam(params, "topic", "")

	// Constraints sometimes arrive flattened to the top level instead of
	// nested, so both shapes are honoured.
	constraints := mapParam(params, "constraints")
	maxTerms := defaultMaxTerms
	switch {
	case constraints != nil && constraints["max_terms"] != nil:
		maxTerms = intParam(constraints, "max_terms", defaultMaxTerms)
	case params["num_words"] != nil:
		maxTerms = intParam(params, "num_words", defaultMaxTerms)
	case params["max_terms"] != nil:
		maxTerms = intParam(params, "max_terms", defaultMaxTerms)
	}
	region := stringParam(params, "region", "")
	domain := stringParam(params, "domain", "")
	if constraints != nil {
		region = stringParam(constraints, "region", region)
		domain = stringParam(constraints, "domain", domain)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Generate a wordlist of %d concepts for the semantic field: %q\n\n", maxTerms, topic)
	b.WriteString("Requirements:\n")
	b.WriteString("- Concepts should be culturally universal and semantically basic\n")
	b.WriteString("- Focus on terms likely to be well-documented across languages\n")
	b.WriteString("- Each concept should be distinct and clearly defined\n")
	b.WriteString("- Suitable for cross-linguistic comparison\n\n")
	if region != "" {
		fmt.Fprintf(&b, "Geographic focus: %s\n", region)
	}
	if domain != "" {
		fmt.Fprintf(&b, "Domain focus: %s\n", domain)
	}
	b.WriteString("\nReturn ONLY a JSON array of strings, nothing else:\n")
	b.WriteString(`["concept1", "concept2", ...]`)

	if e.LLM == nil {
		return Result{
			"wordlist": []string{},
			"error":    "LLM call function not provided",
			"notes":    "Configuration error",
		}
	}

	response, err := e.LLM.Complete(ctx, b.String())
	if err != nil {
		return Result{
			"wordlist": []string{},
			"error":    fmt.Sprintf("LLM call failed: %v", err),
			"notes":    "Internal error",
		}
	}
	if strings.TrimSpace(response) == "" {
		return Result{
			"wordlist": []string{},
			"error":    "LLM returned an empty response",
			"notes":    "Failed to generate wordlist",
		}
	}

	wordlist, ok := extractJSONArray(response)
	if !ok {
		note := response
		if len(note) > 100 {
			note = note[:100]
		}
		return Result{
			"wordlist": []string{},
			"error":    "No JSON list found in LLM response",
			"notes":    note,
		}
	}
	return Result{
		"wordlist": wordlist,
		"notes":    fmt.Sprintf("Generated %d concepts for %s", len(wordlist), topic),
	}
}

// refineWordlist rewrites a wordlist according to user feedback. When the
// model reply cannot be parsed, the input list is returned unchanged.
func (e *Executor) refineWordlist(ctx context.Context, params map[string]any) Result {
	wordlist := stringsParam(params, "wordlist")
	feedback := stringParam(params, "feedback", "")

	current, err := json.Marshal(wordlist)
	if err != nil {
		current = []byte("[]")
	}
	prompt := fmt.Sprintf(`Current wordlist: %s

User feedback: %s

Modify the wordlist according to the feedback. Return ONLY a JSON array:
["concept1", "concept2", ...]`, current, feedback)

	if e.LLM != nil {
		if response, err := e.LLM.Complete(ctx, prompt); err == nil {
			if refined, ok := extractJSONArray(response); ok {
				return Result{"wordlist": refined}
			}
		}
	}
	return Result{"wordlist": wordlist}
}

// extractJSONArray pulls the first JSON array of strings out of free text.
func extractJSONArray(text string) ([]string, bool) {
	start := strings.Index(text, "[")
	if start < 0 {
		return nil, false
	}
	end := strings.Index(text[start:], "]")
	if end < 0 {
		return nil, false
	}
	var items []any
	if err := json.Unmarshal([]byte(text[start:start+end+1]), &items); err != nil {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		} else {
			out = append(out, fmt.Sprint(item))
		}
	}
	return out, true
}

package orchestrator

import (
	"encoding/json"
	"strings"
)

// Directive is a tool invocation request parsed out of assistant text. It
// is raw: the (server, tool) pair has not yet been resolved against the
// registry.
type Directive struct {
	Server string         `json:"server"`
	Tool   string         `json:"tool"`
	Params map[string]any `json:"params"`
}

// ExtractDirective finds the first tool directive in an assistant reply.
// Fenced code blocks are checked before inline JSON. Candidates are located
// by scanning for balanced braces with string and escape awareness, so a
// directive whose params contain nested objects or brace characters inside
// quoted strings parses intact. Malformed candidates are skipped.
func ExtractDirective(response string) (Directive, bool) {
	for _, candidate := range directiveCandidates(response) {
		if d, ok := parseDirective(candidate); ok {
			return d, true
		}
	}
	return Directive{}, false
}

// directiveCandidates returns JSON object spans in extraction order: every
// object inside a code fence first, then every inline span opening with a
// "server" key.
func directiveCandidates(response string) []string {
	var candidates []string

	for _, block := range fencedBlocks(response) {
		start := strings.Index(block, "{")
		if start < 0 {
			continue
		}
		if span, ok := scanObject(block, start); ok {
			candidates = append(candidates, span)
		}
	}

	rest := response
	offset := 0
	for {
		i := strings.Index(rest[offset:], `{"server"`)
		if i < 0 {
			break
		}
		at := offset + i
		if span, ok := scanObject(rest, at); ok {
			candidates = append(candidates, span)
			offset = at + len(span)
		} else {
			offset = at + 1
		}
	}
	return candidates
}

// fencedBlocks returns the contents of every ``` code fence, language tag
// stripped.
func fencedBlocks(text string) []string {
	var blocks []string
	for {
		open := strings.Index(text, "```")
		if open < 0 {
			break
		}
		rest := text[open+3:]
		end := strings.Index(rest, "```")
		if end < 0 {
			break
		}
		block := rest[:end]
		if nl := strings.Index(block, "\n"); nl >= 0 && !strings.ContainsAny(block[:nl], "{}") {
			block = block[nl+1:]
		}
		blocks = append(blocks, block)
		text = rest[end+3:]
	}
	return blocks
}

// scanObject returns the balanced JSON object starting at text[start],
// which must be '{'. Braces inside quoted strings do not count toward
// nesting depth.
func scanObject(text string, start int) (string, bool) {
	if start >= len(text) || text[start] != '{' {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

func parseDirective(span string) (Directive, bool) {
	var d Directive
	if err := json.Unmarshal([]byte(span), &d); err != nil {
		return Directive{}, false
	}
	if d.Server == "" || d.Tool == "" {
		return Directive{}, false
	}
	if d.Params == nil {
		d.Params = map[string]any{}
	}
	return d, true
}

package tools

import (
	"fmt"
	"strconv"
)

// Result is a tool's output payload. Tools report failures inside the
// result under the "error" key rather than aborting the turn, so a failed
// tool still produces something the assistant can relay.
type Result map[string]any

// Err returns the result's error message, or "" when the tool succeeded.
func (r Result) Err() string {
	if r == nil {
		return ""
	}
	if msg, ok := r["error"].(string); ok {
		return msg
	}
	return ""
}

func errResult(format string, args ...any) Result {
	return Result{"error": fmt.Sprintf(format, args...)}
}

// stringParam returns params[key] as a string, or fallback when absent or
// not a string.
func stringParam(params map[string]any, key, fallback string) string {
	if v, ok := params[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// intParam returns params[key] as an int. JSON decoding yields float64 for
// numbers, so both shapes are accepted.
func intParam(params map[string]any, key string, fallback int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// mapParam returns params[key] as an object, or nil.
func mapParam(params map[string]any, key string) map[string]any {
	if v, ok := params[key].(map[string]any); ok {
		return v
	}
	return nil
}

// stringsParam returns params[key] as a string slice, coercing non-string
// items to their printed form.
func stringsParam(params map[string]any, key string) []string {
	switch v := params[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			} else {
				out = append(out, fmt.Sprint(item))
			}
		}
		return out
	}
	return nil
}

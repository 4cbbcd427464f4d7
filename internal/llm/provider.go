// Package llm defines the language-model capability consumed by the
// orchestrator and by the wordlist/harvest tools.
//
// Two call shapes are exposed: Chat for multi-turn orchestrator calls and
// Complete for single-shot tool prompts. Both suspend on the network and may
// fail; failures surface as errors, never panics. The provider only produces
// text; deciding whether that text contains a tool directive is the
// orchestrator's job.
package llm

import (
	"context"
	"errors"
)

// ErrRateLimit is returned when the upstream API reports a rate-limiting
// condition (HTTP 429). Callers should surface a user-visible message rather
// than silently retrying.
var ErrRateLimit = errors.New("llm: upstream rate limit exceeded")

// ErrEmptyResponse is returned when the upstream API answers successfully but
// yields no usable text.
var ErrEmptyResponse = errors.New("llm: empty response from model")

// Role labels one side of the conversation.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn handed to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider is the asynchronous language-model capability.
//
// Implementations must be safe for concurrent use from multiple goroutines.
type Provider interface {
	// Chat sends an ordered message sequence and returns the model's text.
	Chat(ctx context.Context, messages []Message) (string, error)

	// Complete sends a single-shot prompt and returns the model's text.
	Complete(ctx context.Context, prompt string) (string, error)
}

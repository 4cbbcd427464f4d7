// Package trace provides turn ID generation and context propagation so that
// a single conversational turn can be correlated across the orchestrator,
// the executed tool handler, and the audit trail.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// turnKey is the unexported context key used to store the turn ID.
type turnKey struct{}

// NewID generates a unique turn ID.
func NewID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Timestamp fallback if the system RNG fails (should never happen).
		return fmt.Sprintf("turn_%d", time.Now().UnixNano())
	}
	return "t_" + hex.EncodeToString(bytes)
}

// WithID returns a child context carrying the given turn ID.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, turnKey{}, id)
}

// FromContext extracts the turn ID from ctx, returning "" if absent.
func FromContext(ctx context.Context) string {
	if v, ok := ctx.Value(turnKey{}).(string); ok {
		return v
	}
	return ""
}

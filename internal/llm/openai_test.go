package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lexatlas/lexatlas/internal/llm"
)

// newTestServer returns an httptest server that replies with the given
// content for every chat completion call, plus the provider pointed at it.
func newTestServer(t *testing.T, status int, payload any) llm.Provider {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("authorization header = %q", got)
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(payload)
	}))
	t.Cleanup(srv.Close)
	return llm.New(llm.Config{APIKey: "sk-test", BaseURL: srv.URL, Model: "test-model"})
}

func chatPayload(content string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}, "finish_reason": "stop"},
		},
	}
}

func TestChat_ReturnsText(t *testing.T) {
	p := newTestServer(t, http.StatusOK, chatPayload("hello there"))
	got, err := p.Chat(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "be brief"},
		{Role: llm.RoleUser, Content: "hi"},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if got != "hello there" {
		t.Errorf("Chat = %q", got)
	}
}

func TestComplete_ReturnsText(t *testing.T) {
	p := newTestServer(t, http.StatusOK, chatPayload("a,b,c"))
	got, err := p.Complete(context.Background(), "make csv")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "a,b,c" {
		t.Errorf("Complete = %q", got)
	}
}

func TestChat_RateLimit(t *testing.T) {
	p := newTestServer(t, http.StatusTooManyRequests, map[string]any{})
	_, err := p.Chat(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}})
	if !errors.Is(err, llm.ErrRateLimit) {
		t.Errorf("want ErrRateLimit, got %v", err)
	}
}

func TestChat_APIError(t *testing.T) {
	p := newTestServer(t, http.StatusOK, map[string]any{
		"error": map[string]any{"message": "model overloaded", "type": "server_error"},
	})
	_, err := p.Chat(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}})
	if err == nil {
		t.Fatal("expected error for API error body")
	}
}

func TestChat_EmptyContent(t *testing.T) {
	p := newTestServer(t, http.StatusOK, chatPayload(""))
	_, err := p.Chat(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}})
	if !errors.Is(err, llm.ErrEmptyResponse) {
		t.Errorf("want ErrEmptyResponse, got %v", err)
	}
}

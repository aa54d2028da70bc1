package llm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"hello"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", "test-model", testLogger())
	got, err := c.Chat(context.Background(), []Message{llmTestMessages}, nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if got.Content != "hello" {
		t.Errorf("expected content hello, got %q", got.Content)
	}
	if got.FinishReason != "stop" {
		t.Errorf("expected finish_reason stop, got %q", got.FinishReason)
	}
}

var llmTestMessages = Message{Role: "user", Content: "hi"}

func TestChatAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key"}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "wrong", "m", testLogger())
	_, err := c.Chat(context.Background(), []Message{llmTestMessages}, nil)
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
}

func TestChatStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		chunks := []string{
			`{"choices":[{"delta":{"content":"Hel"}}]}`,
			`{"choices":[{"delta":{"content":"lo"}}]}`,
			`{"choices":[{"delta":{},"finish_reason":"stop"}]}`,
		}
		for _, c := range chunks {
			fmt.Fprintf(w, "data: %s\n\n", c)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", "m", testLogger())
	var streamed string
	got, err := c.ChatStream(context.Background(), []Message{llmTestMessages}, nil, func(d Delta) {
		streamed += d.Content
	})
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}
	if got.Content != "Hello" {
		t.Errorf("expected content Hello, got %q", got.Content)
	}
	if streamed != "Hello" {
		t.Errorf("onDelta saw %q, want Hello", streamed)
	}
	if got.FinishReason != "stop" {
		t.Errorf("expected finish_reason stop, got %q", got.FinishReason)
	}
}

func TestChatStreamToolCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		chunks := []string{
			`{"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"get_"}}]}}]}`,
			`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"name":"weather"}}]}}]}`,
			`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"city\":"}}]}}]}`,
			`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"sh\"}"}}]}}]}`,
			`{"choices":[{"delta":{},"finish_reason":"tool_calls"}]}`,
		}
		for _, c := range chunks {
			fmt.Fprintf(w, "data: %s\n\n", c)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", "m", testLogger())
	got, err := c.ChatStream(context.Background(), []Message{llmTestMessages}, nil, nil)
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}
	if len(got.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(got.ToolCalls))
	}
	tc := got.ToolCalls[0]
	if tc.Function.Name != "get_weather" {
		t.Errorf("expected name get_weather, got %q", tc.Function.Name)
	}
	if tc.Function.Arguments != `{"city":"sh"}` {
		t.Errorf("unexpected arguments %q", tc.Function.Arguments)
	}
	if got.FinishReason != "tool_calls" {
		t.Errorf("expected finish_reason tool_calls, got %q", got.FinishReason)
	}
}

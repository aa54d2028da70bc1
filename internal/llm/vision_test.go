package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAnalyzeImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"a red bicycle"}}]}`)
	}))
	defer srv.Close()

	v := NewVisionClient(srv.URL, "test-key", "test-vision", testLogger())
	got, err := v.AnalyzeImage(context.Background(), "https://example.com/bike.jpg", "")
	if err != nil {
		t.Fatalf("AnalyzeImage: %v", err)
	}
	if got != "a red bicycle" {
		t.Errorf("expected description, got %q", got)
	}
}

func TestAnalyzeImageKeyless(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("expected no auth header without an api key, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`)
	}))
	defer srv.Close()

	v := NewVisionClient(srv.URL, "", "local-vision", testLogger())
	if v == nil {
		t.Fatal("keyless endpoint should still yield a client")
	}
	if _, err := v.AnalyzeImage(context.Background(), "https://example.com/a.png", ""); err != nil {
		t.Fatalf("AnalyzeImage: %v", err)
	}
}

func TestNewVisionClientUnconfigured(t *testing.T) {
	if v := NewVisionClient("", "k", "m", testLogger()); v != nil {
		t.Error("expected nil client without a base URL")
	}
	if v := NewVisionClient("http://localhost", "k", "", testLogger()); v != nil {
		t.Error("expected nil client without a model")
	}
}

func TestAnalyzeImageAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"unsupported image"}}`)
	}))
	defer srv.Close()

	v := NewVisionClient(srv.URL, "k", "m", testLogger())
	if _, err := v.AnalyzeImage(context.Background(), "https://example.com/a.png", ""); err == nil {
		t.Fatal("expected error for 400 response")
	}
}

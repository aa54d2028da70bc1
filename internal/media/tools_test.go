package media

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aide-chat/aide/internal/llm"
	"github.com/aide-chat/aide/internal/tools"
)

func visionTestServer(t *testing.T, description string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content []struct {
					Type     string `json:"type"`
					ImageURL *struct {
						URL string `json:"url"`
					} `json:"image_url"`
				} `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		sawImage := false
		for _, p := range req.Messages[0].Content {
			if p.Type == "image_url" && p.ImageURL != nil && p.ImageURL.URL != "" {
				sawImage = true
			}
		}
		if !sawImage {
			t.Error("request carries no image_url part")
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": description}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAnalyzeImageTool(t *testing.T) {
	srv := visionTestServer(t, "a cat on a windowsill")
	vision := llm.NewVisionClient(srv.URL, "test-key", "test-vision", nil)
	if vision == nil {
		t.Fatal("vision client should be configured")
	}

	r := tools.NewRegistry()
	RegisterVisionTool(r, vision)

	got, err := r.Execute(context.Background(), "analyze_image", `{"image_url":"https://example.com/cat.jpg"}`)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got != "a cat on a windowsill" {
		t.Errorf("unexpected description %q", got)
	}
}

func TestAnalyzeImageToolMissingURL(t *testing.T) {
	srv := visionTestServer(t, "unused")
	vision := llm.NewVisionClient(srv.URL, "test-key", "test-vision", nil)

	r := tools.NewRegistry()
	RegisterVisionTool(r, vision)

	_, err := r.Execute(context.Background(), "analyze_image", `{}`)
	if err == nil || !strings.Contains(err.Error(), "image_url") {
		t.Errorf("expected an image_url error, got %v", err)
	}
}

func TestAnalyzeImageToolCustomPrompt(t *testing.T) {
	srv := visionTestServer(t, "two people")
	vision := llm.NewVisionClient(srv.URL, "test-key", "test-vision", nil)

	r := tools.NewRegistry()
	RegisterVisionTool(r, vision)

	got, err := r.Execute(context.Background(), "analyze_image",
		`{"image_url":"https://example.com/photo.jpg","prompt":"How many people are in this picture?"}`)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got != "two people" {
		t.Errorf("unexpected answer %q", got)
	}
}

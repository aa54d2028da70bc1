package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aide-chat/aide/internal/httpkit"
)

// DefaultVisionPrompt asks the model for a thorough image description.
const DefaultVisionPrompt = "Describe the contents of this image in detail."

// VisionClient analyzes images through an OpenAI-compatible vision model.
// The image is passed as an image_url content part, which accepts both
// plain URLs and data: URIs with inline base64 payloads.
type VisionClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewVisionClient creates a vision client. A nil return means vision is
// unconfigured and image analysis is unavailable. An empty apiKey is
// allowed; keyless local endpoints get no Authorization header.
func NewVisionClient(baseURL, apiKey, model string, logger *slog.Logger) *VisionClient {
	if baseURL == "" || model == "" {
		return nil
	}
	return &VisionClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(2 * time.Minute),
		),
		logger: logger,
	}
}

// visionMessage carries multimodal content parts; only the vision
// request uses this shape, so it stays private to this file.
type visionMessage struct {
	Role    string       `json:"role"`
	Content []visionPart `json:"content"`
}

type visionPart struct {
	Type     string           `json:"type"`
	Text     string           `json:"text,omitempty"`
	ImageURL *visionImagePart `json:"image_url,omitempty"`
}

type visionImagePart struct {
	URL string `json:"url"`
}

// AnalyzeImage returns a textual description of the image. imageRef is
// a URL or a data: URI. An empty prompt uses [DefaultVisionPrompt].
func (v *VisionClient) AnalyzeImage(ctx context.Context, imageRef, prompt string) (string, error) {
	if prompt == "" {
		prompt = DefaultVisionPrompt
	}

	req := struct {
		Model     string          `json:"model"`
		Messages  []visionMessage `json:"messages"`
		MaxTokens int             `json:"max_tokens"`
	}{
		Model: v.model,
		Messages: []visionMessage{{
			Role: "user",
			Content: []visionPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &visionImagePart{URL: imageRef}},
			},
		}},
		MaxTokens: 300,
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if v.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+v.apiKey)
	}

	resp, err := v.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
		return "", fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("API error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("response contains no choices")
	}

	return out.Choices[0].Message.Content, nil
}

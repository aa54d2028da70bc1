package llm

import (
	"bufio"
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

// Gateway is the interface the agent loop depends on. The production
// implementation is [Client]; tests substitute scripted fakes.
type Gateway interface {
	// Chat sends a blocking chat completion request.
	Chat(ctx context.Context, messages []Message, tools []map[string]any) (*Completion, error)

	// ChatStream sends a streaming request. Each fragment is delivered
	// to onDelta as it arrives; the reconstructed completion is
	// returned once the stream is exhausted.
	ChatStream(ctx context.Context, messages []Message, tools []map[string]any, onDelta func(Delta)) (*Completion, error)
}

// Client speaks the OpenAI-compatible chat completions protocol.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a gateway client for an OpenAI-compatible endpoint.
// baseURL is the API root (e.g. "https://api.example.com/v1").
func NewClient(baseURL, apiKey, model string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: httpkit.NewClient(
			// Thinking models can take minutes; streaming reads have
			// no overall deadline beyond the request context.
			httpkit.WithTimeout(5 * time.Minute),
		),
		logger: logger,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// chatRequest is the request body for the chat completions API.
type chatRequest struct {
	Model    string           `json:"model"`
	Messages []Message        `json:"messages"`
	Tools    []map[string]any `json:"tools,omitempty"`
	Stream   bool             `json:"stream,omitempty"`
}

// chatResponse is the non-streaming response body.
type chatResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

// streamChunk is one SSE data payload of a streaming response.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content   string          `json:"content"`
			ToolCalls []ToolCallDelta `json:"tool_calls"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Chat sends a blocking chat completion request.
func (c *Client) Chat(ctx context.Context, messages []Message, tools []map[string]any) (*Completion, error) {
	body, err := c.post(ctx, messages, tools, false)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var resp chatResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("API error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("response contains no choices")
	}

	choice := resp.Choices[0]
	return &Completion{
		Content:      choice.Message.Content,
		ToolCalls:    choice.Message.ToolCalls,
		FinishReason: choice.FinishReason,
	}, nil
}

// ChatStream sends a streaming chat request, delivering each fragment
// to onDelta as it arrives. The completion returned at the end carries
// the full concatenated content and the tool calls reconstructed by a
// [CallAccumulator].
func (c *Client) ChatStream(ctx context.Context, messages []Message, tools []map[string]any, onDelta func(Delta)) (*Completion, error) {
	body, err := c.post(ctx, messages, tools, true)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var content strings.Builder
	var finishReason string
	acc := NewCallAccumulator()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			c.logger.Debug("skipping malformed stream chunk", "error", err)
			continue
		}
		if chunk.Error != nil {
			return nil, fmt.Errorf("API error: %s", chunk.Error.Message)
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		choice := chunk.Choices[0]
		if choice.FinishReason != "" {
			finishReason = choice.FinishReason
		}

		delta := Delta{
			Content:   choice.Delta.Content,
			ToolCalls: choice.Delta.ToolCalls,
		}
		if delta.Content != "" {
			content.WriteString(delta.Content)
		}
		for _, tc := range delta.ToolCalls {
			acc.Add(tc)
		}
		if onDelta != nil && (delta.Content != "" || len(delta.ToolCalls) > 0) {
			onDelta(delta)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stream: %w", err)
	}

	return &Completion{
		Content:      content.String(),
		ToolCalls:    acc.Finalize(),
		FinishReason: finishReason,
	}, nil
}

// post sends a chat completions request and returns the response body.
// The caller owns the body and must close it.
func (c *Client) post(ctx context.Context, messages []Message, tools []map[string]any, stream bool) (io.ReadCloser, error) {
	req := chatRequest{
		Model:    c.model,
		Messages: messages,
		Tools:    tools,
		Stream:   stream,
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	c.logger.Log(ctx, LevelTrace, "chat completions request",
		"model", c.model,
		"messages", len(messages),
		"tools", len(tools),
		"stream", stream,
		"bytes", len(payload),
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
		httpkit.DrainAndClose(resp.Body, 64*1024)
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	return resp.Body, nil
}

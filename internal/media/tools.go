package media

import (
	"context"
	"fmt"

	"github.com/aide-chat/aide/internal/llm"
	"github.com/aide-chat/aide/internal/tools"
)

// RegisterTools attaches the artifact generation tools. imageModel may
// be nil, in which case generate_image always draws a placeholder.
func RegisterTools(r *tools.Registry, g *Generator, imageModel llm.Gateway) {
	r.Register(&tools.Tool{
		Name:        "generate_document",
		Description: "Render markdown content into a styled HTML document and return a link to it.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"filename": map[string]any{
					"type":        "string",
					"description": "Output filename, e.g. report (extension added automatically)",
				},
				"title": map[string]any{
					"type":        "string",
					"description": "Document title",
				},
				"content": map[string]any{
					"type":        "string",
					"description": "Markdown content of the document",
				},
			},
			"required": []string{"filename", "content"},
		},
		Handler: func(_ context.Context, args map[string]any) (string, error) {
			url, err := g.Document(
				tools.StringArg(args, "filename"),
				tools.StringArg(args, "title"),
				tools.StringArg(args, "content"),
			)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Document generated: [view document](%s)", url), nil
		},
	})

	r.Register(&tools.Tool{
		Name:        "generate_mindmap",
		Description: "Render Mermaid mindmap syntax into an interactive HTML page and return a link to it.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"filename": map[string]any{
					"type":        "string",
					"description": "Output filename, e.g. idea_map",
				},
				"content": map[string]any{
					"type":        "string",
					"description": "Mermaid mindmap source, e.g. \"mindmap\\n  root((Topic))\\n    Child\"",
				},
			},
			"required": []string{"filename", "content"},
		},
		Handler: func(_ context.Context, args map[string]any) (string, error) {
			url, err := g.Mindmap(
				tools.StringArg(args, "filename"),
				tools.StringArg(args, "content"),
			)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Mindmap generated: [view mindmap](%s)", url), nil
		},
	})

	r.Register(&tools.Tool{
		Name:        "generate_image",
		Description: "Generate an image from a text prompt and return a markdown preview link.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"prompt": map[string]any{
					"type":        "string",
					"description": "Text description of the image",
				},
				"filename": map[string]any{
					"type":        "string",
					"description": "Output filename, e.g. sunset.png",
				},
				"size": map[string]any{
					"type":        "string",
					"description": "Image size as WxH (default 1024x1024) or 16:9",
				},
			},
			"required": []string{"prompt", "filename"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			prompt := tools.StringArg(args, "prompt")
			res, err := g.Image(ctx, imageModel, prompt,
				tools.StringArg(args, "filename"),
				tools.StringArg(args, "size"),
			)
			if err != nil {
				return "", err
			}
			if res.Placeholder {
				return fmt.Sprintf("Image generated locally (placeholder mode). Preview:\n![%s](%s)", prompt, res.URLPath), nil
			}
			return fmt.Sprintf("Image generated. Preview:\n![%s](%s)", prompt, res.URLPath), nil
		},
	})

	r.Register(&tools.Tool{
		Name:        "generate_qrcode",
		Description: "Encode text or a URL into a QR code image and return a link to it.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"content": map[string]any{
					"type":        "string",
					"description": "The text or URL to encode",
				},
				"filename": map[string]any{
					"type":        "string",
					"description": "Output filename, e.g. link.png",
				},
				"size": map[string]any{
					"type":        "integer",
					"description": "Edge length in pixels (default 256)",
				},
			},
			"required": []string{"content", "filename"},
		},
		Handler: func(_ context.Context, args map[string]any) (string, error) {
			url, err := g.QRCode(
				tools.StringArg(args, "content"),
				tools.StringArg(args, "filename"),
				tools.IntArg(args, "size", 0),
			)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("QR code generated: ![qr code](%s)", url), nil
		},
	})
}

// RegisterVisionTool attaches analyze_image, which lets the model
// describe an image it encounters mid-conversation. Register it only
// when a vision model is configured.
func RegisterVisionTool(r *tools.Registry, vision *llm.VisionClient) {
	r.Register(&tools.Tool{
		Name:        "analyze_image",
		Description: "Analyze an image at a URL or data URI and describe its contents.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"image_url": map[string]any{
					"type":        "string",
					"description": "URL or data: URI of the image to analyze",
				},
				"prompt": map[string]any{
					"type":        "string",
					"description": "Optional question to answer about the image",
				},
			},
			"required": []string{"image_url"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			ref := tools.StringArg(args, "image_url")
			if ref == "" {
				return "", fmt.Errorf("image_url is required")
			}
			desc, err := vision.AnalyzeImage(ctx, ref, tools.StringArg(args, "prompt"))
			if err != nil {
				return "", fmt.Errorf("analyze image: %w", err)
			}
			return desc, nil
		},
	})
}

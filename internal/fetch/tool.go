package fetch

import (
	"context"
	"fmt"

	"github.com/aide-chat/aide/internal/tools"
)

// RegisterTool attaches the read_url tool to a registry.
func RegisterTool(r *tools.Registry, f *Fetcher) {
	r.Register(&tools.Tool{
		Name:        "read_url",
		Description: "Fetch a web page and return its readable text plus any image links found on it.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": map[string]any{
					"type":        "string",
					"description": "The URL to read",
				},
			},
			"required": []string{"url"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			url := tools.StringArg(args, "url")
			if url == "" {
				return "", fmt.Errorf("url is required")
			}
			page, err := f.Fetch(ctx, url, 0)
			if err != nil {
				return "", err
			}
			return page.Render(), nil
		},
	})
}

package search

import (
	"context"
	"fmt"

	"github.com/aide-chat/aide/internal/tools"
)

// RegisterSearchTool attaches the search_web tool backed by the
// manager's primary provider.
func RegisterSearchTool(r *tools.Registry, m *Manager) {
	r.Register(&tools.Tool{
		Name:        "search_web",
		Description: "Search the web and return a numbered list of results with titles, URLs, and snippets.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query",
				},
				"max_results": map[string]any{
					"type":        "integer",
					"description": "Maximum number of results (default 5)",
				},
			},
			"required": []string{"query"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			query := tools.StringArg(args, "query")
			if query == "" {
				return "", fmt.Errorf("query is required")
			}
			results, err := m.Search(ctx, query, Options{
				Count: tools.IntArg(args, "max_results", 0),
			})
			if err != nil {
				return "", err
			}
			return FormatResults(results), nil
		},
	})
}

// RegisterWeatherTool attaches the get_weather tool.
func RegisterWeatherTool(r *tools.Registry, w *WeatherClient) {
	r.Register(&tools.Tool{
		Name:        "get_weather",
		Description: "Get the current weather for a city.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"city": map[string]any{
					"type":        "string",
					"description": "City name, e.g. Shanghai or Berlin",
				},
			},
			"required": []string{"city"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			city := tools.StringArg(args, "city")
			if city == "" {
				return "", fmt.Errorf("city is required")
			}
			weather, err := w.Current(ctx, city)
			if err != nil {
				return "", err
			}
			return weather.String(), nil
		},
	})
}

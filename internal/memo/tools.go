package memo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aide-chat/aide/internal/tools"
)

// RegisterTools attaches the memo tools to a registry.
func RegisterTools(r *tools.Registry, store *Store) {
	r.Register(&tools.Tool{
		Name:        "add_memo",
		Description: "Save a short note to persistent memory. Use for facts, preferences, or reminders the user wants kept.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"content": map[string]any{
					"type":        "string",
					"description": "The note to remember",
				},
			},
			"required": []string{"content"},
		},
		Handler: func(_ context.Context, args map[string]any) (string, error) {
			content := tools.StringArg(args, "content")
			if content == "" {
				return "", fmt.Errorf("content is required")
			}
			m, err := store.Add(content)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Memo %d saved.", m.ID), nil
		},
	})

	r.Register(&tools.Tool{
		Name:        "read_memos",
		Description: "List all saved memos with their ids.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Handler: func(_ context.Context, _ map[string]any) (string, error) {
			memos, err := store.List()
			if err != nil {
				return "", err
			}
			if len(memos) == 0 {
				return "No memos saved.", nil
			}
			out, err := json.Marshal(memos)
			if err != nil {
				return "", fmt.Errorf("marshal memos: %w", err)
			}
			return string(out), nil
		},
	})

	r.Register(&tools.Tool{
		Name:        "delete_memo",
		Description: "Delete a memo by its id.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"memo_id": map[string]any{
					"type":        "integer",
					"description": "The id of the memo to delete",
				},
			},
			"required": []string{"memo_id"},
		},
		Handler: func(_ context.Context, args map[string]any) (string, error) {
			id := tools.IntArg(args, "memo_id", 0)
			if id == 0 {
				return "", fmt.Errorf("memo_id is required")
			}
			if err := store.Delete(id); err != nil {
				return "", err
			}
			return fmt.Sprintf("Memo %d deleted.", id), nil
		},
	})
}

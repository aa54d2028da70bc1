package sandbox

import (
	"context"
	"fmt"

	"github.com/aide-chat/aide/internal/tools"
)

// RegisterTool attaches the run_python tool.
func RegisterTool(r *tools.Registry, runner *Runner) {
	r.Register(&tools.Tool{
		Name:        "run_python",
		Description: "Execute a Python snippet in an isolated process and return its output. Use for calculations, data transforms, and quick scripts. Importing subprocess and process-control os calls are blocked.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"code": map[string]any{
					"type":        "string",
					"description": "The Python code to run",
				},
			},
			"required": []string{"code"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			code := tools.StringArg(args, "code")
			if code == "" {
				return "", fmt.Errorf("code is required")
			}
			return runner.Run(ctx, code)
		},
	})
}

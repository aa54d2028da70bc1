package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const defaultSearchResults = 20

// RegisterFileTools attaches the local filesystem tools. Paths are
// taken as given; access restriction is the permission gate's job, not
// the tools'.
func RegisterFileTools(r *Registry) {
	r.Register(&Tool{
		Name:        "read_file",
		Description: "Read the contents of a local file. Provide the absolute path.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"file_path": map[string]any{
					"type":        "string",
					"description": "Absolute path of the file to read",
				},
			},
			"required": []string{"file_path"},
		},
		Handler: handleReadFile,
	})

	r.Register(&Tool{
		Name:        "write_file",
		Description: "Write content to a local file, creating parent directories as needed.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"file_path": map[string]any{
					"type":        "string",
					"description": "Absolute path of the file to write",
				},
				"content": map[string]any{
					"type":        "string",
					"description": "Content to write",
				},
			},
			"required": []string{"file_path", "content"},
		},
		Handler: handleWriteFile,
	})

	r.Register(&Tool{
		Name:        "list_directory",
		Description: "List the files and directories at a path.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"dir_path": map[string]any{
					"type":        "string",
					"description": "Absolute path of the directory to list",
				},
			},
			"required": []string{"dir_path"},
		},
		Handler: handleListDirectory,
	})

	r.Register(&Tool{
		Name:        "search_files",
		Description: "Recursively search a directory for files whose name matches a pattern. The pattern is a case-insensitive substring or glob.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"root_dir": map[string]any{
					"type":        "string",
					"description": "Absolute path of the directory to search",
				},
				"pattern": map[string]any{
					"type":        "string",
					"description": "Filename pattern (substring or glob like *.md)",
				},
				"max_results": map[string]any{
					"type":        "integer",
					"description": "Maximum number of results (default 20)",
				},
			},
			"required": []string{"root_dir", "pattern"},
		},
		Handler: handleSearchFiles,
	})
}

func handleReadFile(_ context.Context, args map[string]any) (string, error) {
	path := StringArg(args, "file_path")
	if path == "" {
		return "", fmt.Errorf("file_path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", path)
		}
		return "", fmt.Errorf("read file: %w", err)
	}
	return string(data), nil
}

func handleWriteFile(_ context.Context, args map[string]any) (string, error) {
	path := StringArg(args, "file_path")
	content := StringArg(args, "content")
	if path == "" {
		return "", fmt.Errorf("file_path is required")
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return fmt.Sprintf("Wrote %d bytes to %s", len(content), path), nil
}

func handleListDirectory(_ context.Context, args map[string]any) (string, error) {
	path := StringArg(args, "dir_path")
	if path == "" {
		return "", fmt.Errorf("dir_path is required")
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("directory not found: %s", path)
		}
		return "", fmt.Errorf("read directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}

	out, err := json.Marshal(names)
	if err != nil {
		return "", fmt.Errorf("marshal listing: %w", err)
	}
	return string(out), nil
}

func handleSearchFiles(_ context.Context, args map[string]any) (string, error) {
	root := StringArg(args, "root_dir")
	pattern := StringArg(args, "pattern")
	maxResults := IntArg(args, "max_results", defaultSearchResults)
	if root == "" || pattern == "" {
		return "", fmt.Errorf("root_dir and pattern are required")
	}
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return "", fmt.Errorf("directory not found: %s", root)
	}

	lowered := strings.ToLower(pattern)
	var results []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable subtrees
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		name := strings.ToLower(d.Name())
		globMatch, _ := filepath.Match(lowered, name)
		if strings.Contains(name, lowered) || globMatch {
			results = append(results, path)
			if len(results) >= maxResults {
				return filepath.SkipAll
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("search files: %w", err)
	}

	if len(results) == 0 {
		return fmt.Sprintf("No files matching %q under %s", pattern, root), nil
	}
	out, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal results: %w", err)
	}
	return string(out), nil
}

package agent

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FileAccess is the caller-supplied permission configuration for
// filesystem-touching tools. A nil FileAccess means no restrictions.
type FileAccess struct {
	AllowRead    bool     `json:"allow_read"`
	AllowedPaths []string `json:"allowed_paths"`
}

// sensitiveTools are the tools the permission gate applies to.
var sensitiveTools = map[string]bool{
	"read_file":      true,
	"list_directory": true,
	"write_file":     true,
	"search_files":   true,
}

// pathArgKeys are checked in order; the first present key names the
// call's target path.
var pathArgKeys = []string{"file_path", "dir_path", "root_dir"}

// checkFileAccess applies the permission gate to one tool call. A nil
// return grants access; otherwise the error text is the denial handed
// to the model as the call's result.
//
// The check is advisory by path prefix, not a sandbox: paths are
// cleaned to absolute form but symlinks are not resolved.
func checkFileAccess(toolName string, args map[string]any, access *FileAccess) error {
	if access == nil || !sensitiveTools[toolName] {
		return nil
	}
	if !access.AllowRead {
		return fmt.Errorf("file access is disabled for this request; %s was not executed", toolName)
	}
	if len(access.AllowedPaths) == 0 {
		return nil
	}

	target := ""
	for _, key := range pathArgKeys {
		if v, ok := args[key].(string); ok && v != "" {
			target = v
			break
		}
	}
	if target == "" {
		// Nothing to check against; grant.
		return nil
	}

	canonical, err := filepath.Abs(filepath.Clean(target))
	if err != nil {
		return fmt.Errorf("access denied: cannot resolve path %q", target)
	}

	for _, allowed := range access.AllowedPaths {
		prefix, err := filepath.Abs(filepath.Clean(allowed))
		if err != nil {
			continue
		}
		if canonical == prefix || strings.HasPrefix(canonical, prefix+string(filepath.Separator)) {
			return nil
		}
	}

	return fmt.Errorf("access denied: %s is outside the allowed paths %v", canonical, access.AllowedPaths)
}

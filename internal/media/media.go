// Package media generates shareable artifacts: HTML documents,
// Mermaid mindmaps, AI images, and QR codes. Outputs land in a single
// directory that the API server exposes under /files/.
package media

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// URLPrefix is the path under which generated files are served.
const URLPrefix = "/files/"

// Generator writes artifacts into the configured output directory.
type Generator struct {
	dir    string
	logger *slog.Logger
}

// NewGenerator creates a media generator rooted at dir, creating the
// directory if needed.
func NewGenerator(dir string, logger *slog.Logger) (*Generator, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create generated dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{dir: dir, logger: logger}, nil
}

// Dir returns the output directory.
func (g *Generator) Dir() string { return g.dir }

// outputPath validates a filename, forces the extension, and returns
// the on-disk path plus the public URL path. Directory components are
// rejected so the model cannot write outside the output directory.
func (g *Generator) outputPath(filename, ext string) (diskPath, urlPath string, err error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return "", "", fmt.Errorf("filename is required")
	}
	if filepath.Base(filename) != filename || strings.Contains(filename, "..") {
		return "", "", fmt.Errorf("invalid filename %q", filename)
	}
	if !strings.HasSuffix(strings.ToLower(filename), ext) {
		filename += ext
	}
	return filepath.Join(g.dir, filename), URLPrefix + filename, nil
}

package media

import (
	"bytes"
	"fmt"
	"html"
	"os"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		goldmarkhtml.WithUnsafe(), // content comes from the model, images need raw HTML
	),
)

const documentStyle = `body { font-family: Georgia, "Times New Roman", serif; max-width: 760px; margin: 40px auto; padding: 0 20px; line-height: 1.6; color: #222; }
h1, h2, h3 { font-family: Helvetica, Arial, sans-serif; color: #111; }
h1 { border-bottom: 2px solid #333; padding-bottom: 8px; }
pre { background: #f6f6f6; padding: 12px; border-radius: 6px; overflow-x: auto; }
code { background: #f6f6f6; padding: 2px 4px; border-radius: 3px; font-size: 0.9em; }
blockquote { border-left: 4px solid #ccc; margin-left: 0; padding-left: 16px; color: #555; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
th { background: #f0f0f0; }
img { max-width: 100%; }`

// Document renders markdown content into a standalone styled HTML
// document and returns the public URL path.
func (g *Generator) Document(filename, title, content string) (string, error) {
	diskPath, urlPath, err := g.outputPath(filename, ".html")
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	if err := markdown.Convert([]byte(content), &body); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}

	if title == "" {
		title = filename
	}

	var doc bytes.Buffer
	fmt.Fprintf(&doc, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%s</title>
<style>
%s
</style>
</head>
<body>
%s</body>
</html>
`, html.EscapeString(title), documentStyle, body.String())

	if err := os.WriteFile(diskPath, doc.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write document: %w", err)
	}

	g.logger.Info("document generated", "file", diskPath, "bytes", doc.Len())
	return urlPath, nil
}

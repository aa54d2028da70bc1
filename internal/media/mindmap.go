package media

import (
	"fmt"
	"html"
	"os"
	"regexp"
	"strings"
)

var (
	fenceRe = regexp.MustCompile("```(?:mermaid)?\\s*")
	// Matches a node id followed by its shape opener, e.g. root(( or a[.
	shapeRe = regexp.MustCompile(`^([^\[\(\{\)\s]+)([\[\(\{]+)`)
)

// closerFor maps a Mermaid shape opener to its closing delimiter.
func closerFor(opener string) string {
	switch opener {
	case "((":
		return "))"
	case "(":
		return ")"
	case "[":
		return "]"
	case "{":
		return "}"
	case "{{":
		return "}}"
	}
	switch {
	case strings.HasPrefix(opener, "("):
		return strings.Repeat(")", len(opener))
	case strings.HasPrefix(opener, "["):
		return strings.Repeat("]", len(opener))
	case strings.HasPrefix(opener, "{"):
		return strings.Repeat("}", len(opener))
	}
	return ""
}

// sanitizeMermaid cleans model-produced Mermaid source so the diagram
// renders: code fences are stripped, "::" class syntax is defused, and
// node labels are quoted so punctuation cannot break parsing. Lines
// that are not shape definitions become auto-numbered quoted nodes.
func sanitizeMermaid(content string) string {
	content = fenceRe.ReplaceAllString(content, "")

	var out []string
	nodeCounter := 0

	for _, line := range strings.Split(content, "\n") {
		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]

		text = strings.ReplaceAll(text, "::", ":")

		if text == "mindmap" {
			out = append(out, indent+text)
			continue
		}

		if m := shapeRe.FindStringSubmatch(text); m != nil {
			id, opener := m[1], m[2]
			closer := closerFor(opener)
			if closer != "" && strings.HasSuffix(text, closer) {
				inner := text[len(id)+len(opener) : len(text)-len(closer)]
				if !(strings.HasPrefix(inner, `"`) && strings.HasSuffix(inner, `"`)) {
					inner = `"` + strings.ReplaceAll(inner, `"`, "'") + `"`
				}
				out = append(out, indent+id+opener+inner+closer)
				continue
			}
		}

		// Bare text line: wrap it in a generated node.
		nodeCounter++
		inner := text
		if strings.HasPrefix(inner, `"`) && strings.HasSuffix(inner, `"`) && len(inner) >= 2 {
			inner = inner[1 : len(inner)-1]
		}
		inner = strings.ReplaceAll(inner, `"`, "'")
		out = append(out, fmt.Sprintf(`%sn%d["%s"]`, indent, nodeCounter, inner))
	}

	return strings.Join(out, "\n")
}

// Mindmap writes sanitized Mermaid source into a self-rendering HTML
// page and returns the public URL path.
func (g *Generator) Mindmap(filename, content string) (string, error) {
	diskPath, urlPath, err := g.outputPath(filename, ".html")
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("content is required")
	}

	sanitized := sanitizeMermaid(content)

	page := fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Mindmap: %s</title>
<script type="module">
  import mermaid from 'https://cdn.jsdelivr.net/npm/mermaid@10/dist/mermaid.esm.min.mjs';
  mermaid.initialize({ startOnLoad: true });
</script>
<style>
  body { font-family: sans-serif; margin: 0; padding: 20px; background: #f4f4f9; display: flex; flex-direction: column; align-items: center; }
  .mermaid { background: white; padding: 20px; border-radius: 8px; box-shadow: 0 2px 10px rgba(0,0,0,0.1); min-width: 600px; }
</style>
</head>
<body>
<div class="mermaid">
%s
</div>
</body>
</html>
`, html.EscapeString(filename), sanitized)

	if err := os.WriteFile(diskPath, []byte(page), 0o644); err != nil {
		return "", fmt.Errorf("write mindmap: %w", err)
	}

	g.logger.Info("mindmap generated", "file", diskPath)
	return urlPath, nil
}

package fetch

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// skipElements are HTML elements whose content is boilerplate, not
// page text.
var skipElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Iframe:   true,
	atom.Svg:      true,
	atom.Head:     true,
	atom.Nav:      true,
	atom.Footer:   true,
	atom.Header:   true,
}

// extractHTML parses HTML and returns the page title, its readable
// text, and the image links it references as markdown.
func extractHTML(raw, pageURL string) (title, text string, images []string) {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return "", cleanWhitespace(raw), nil
	}

	base, _ := url.Parse(pageURL)

	var content strings.Builder
	seen := make(map[string]bool)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.DataAtom == atom.Title && title == "":
				title = strings.TrimSpace(textContent(n))
				return
			case n.DataAtom == atom.Img:
				if md := imageMarkdown(n, base); md != "" && !seen[md] {
					seen[md] = true
					images = append(images, md)
				}
				return
			case skipElements[n.DataAtom]:
				return
			}
			if isBlockElement(n.DataAtom) && content.Len() > 0 {
				content.WriteString("\n")
			}
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				content.WriteString(t)
				content.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && (n.DataAtom == atom.Br || n.DataAtom == atom.Li) {
			content.WriteString("\n")
		}
	}
	walk(doc)

	return title, cleanWhitespace(content.String()), images
}

// imageMarkdown builds a markdown link for an img element, resolving
// relative and protocol-relative sources against the page URL.
func imageMarkdown(n *html.Node, base *url.URL) string {
	var src, alt string
	for _, a := range n.Attr {
		switch a.Key {
		case "src":
			src = a.Val
		case "alt":
			alt = a.Val
		}
	}
	if src == "" {
		return ""
	}

	switch {
	case strings.HasPrefix(src, "//"):
		src = "https:" + src
	case !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://"):
		if base == nil {
			return ""
		}
		ref, err := url.Parse(src)
		if err != nil {
			return ""
		}
		src = base.ResolveReference(ref).String()
	}

	if alt == "" {
		alt = "Image"
	}
	return fmt.Sprintf("![%s](%s)", alt, src)
}

// textContent returns the concatenated text of a node's children.
func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}

func isBlockElement(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Section, atom.Article, atom.Main,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Blockquote, atom.Pre, atom.Ul, atom.Ol, atom.Table,
		atom.Tr, atom.Dl, atom.Figure, atom.Hr:
		return true
	}
	return false
}

// cleanWhitespace collapses runs of spaces within lines and drops
// consecutive blank lines.
func cleanWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	var cleaned []string
	prevEmpty := false

	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if prevEmpty {
				continue
			}
			prevEmpty = true
		} else {
			prevEmpty = false
		}
		cleaned = append(cleaned, line)
	}
	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}

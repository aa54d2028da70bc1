// Package fetch downloads web pages and extracts their readable text
// and image links for the read_url tool.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aide-chat/aide/internal/httpkit"
)

// DefaultTimeout is the HTTP request timeout for fetching pages.
const DefaultTimeout = 10 * time.Second

// DefaultMaxBytes is the maximum response body size (5 MB).
const DefaultMaxBytes int64 = 5 * 1024 * 1024

// DefaultMaxChars caps the extracted text so one page cannot flood the
// model's context.
const DefaultMaxChars = 10000

// truncationMarker is appended when extracted text is cut off.
const truncationMarker = "\n...(content truncated)..."

// maxImages caps how many image links are appended to the text.
const maxImages = 20

// Page holds the extracted content of one fetched URL.
type Page struct {
	URL        string
	Title      string
	Text       string
	Images     []string // markdown image links, absolute URLs
	StatusCode int
}

// Fetcher downloads and extracts readable content from web pages.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

// New creates a Fetcher with default settings.
func New() *Fetcher {
	return &Fetcher{
		client: httpkit.NewClient(
			httpkit.WithTimeout(DefaultTimeout),
		),
		maxBytes: DefaultMaxBytes,
	}
}

// Fetch downloads the URL and extracts title, readable text, and image
// links. maxChars limits the text length; 0 uses DefaultMaxChars.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, maxChars int) (*Page, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("read_url: url is required")
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = "https://" + rawURL
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("read_url: invalid url: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,text/plain;q=0.8,*/*;q=0.7")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("read_url: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		httpkit.DrainAndClose(resp.Body, 64*1024)
		return nil, fmt.Errorf("read_url: server returned %d for %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read_url: read response: %w", err)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	page := &Page{URL: rawURL, StatusCode: resp.StatusCode}

	switch {
	case strings.Contains(contentType, "text/html"), strings.Contains(contentType, "application/xhtml"):
		page.Title, page.Text, page.Images = extractHTML(string(body), rawURL)
	case strings.Contains(contentType, "text/"), utf8.Valid(body):
		page.Text = string(body)
	default:
		page.Text = fmt.Sprintf("Binary content (%s), %d bytes", contentType, len(body))
	}

	if len(page.Text) > maxChars {
		page.Text = truncateUTF8(page.Text, maxChars) + truncationMarker
	}
	return page, nil
}

// Render flattens a page into the single string handed to the model:
// the text followed by the image links found on the page.
func (p *Page) Render() string {
	var b strings.Builder
	b.WriteString(p.Text)
	if len(p.Images) > 0 {
		images := p.Images
		if len(images) > maxImages {
			images = images[:maxImages]
		}
		fmt.Fprintf(&b, "\n\n[Images found (first %d)]:\n", maxImages)
		b.WriteString(strings.Join(images, "\n"))
	}
	return b.String()
}

// truncateUTF8 cuts a string at maxChars without splitting a rune.
func truncateUTF8(s string, maxChars int) string {
	if len(s) <= maxChars {
		return s
	}
	count := 0
	for i := range s {
		if count >= maxChars {
			return s[:i]
		}
		count++
	}
	return s
}

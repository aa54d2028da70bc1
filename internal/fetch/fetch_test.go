package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>Test Page</title><style>body { color: red }</style></head>
<body>
<header>Site Header</header>
<nav>Home | About</nav>
<article>
<h1>Main Heading</h1>
<p>First paragraph of content.</p>
<img src="/images/photo.jpg" alt="A photo">
<img src="//cdn.example.com/logo.png">
<script>console.log("hidden")</script>
</article>
<footer>Copyright 2026</footer>
</body>
</html>`

func serveHTML(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchExtractsContent(t *testing.T) {
	srv := serveHTML(t, samplePage)

	page, err := New().Fetch(context.Background(), srv.URL, 0)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if page.Title != "Test Page" {
		t.Errorf("expected title Test Page, got %q", page.Title)
	}
	if !strings.Contains(page.Text, "First paragraph of content.") {
		t.Errorf("body text missing: %q", page.Text)
	}
	for _, boilerplate := range []string{"Site Header", "Home | About", "Copyright 2026", "console.log", "color: red"} {
		if strings.Contains(page.Text, boilerplate) {
			t.Errorf("boilerplate %q not stripped", boilerplate)
		}
	}
}

func TestFetchCollectsImages(t *testing.T) {
	srv := serveHTML(t, samplePage)

	page, err := New().Fetch(context.Background(), srv.URL, 0)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(page.Images) != 2 {
		t.Fatalf("expected 2 images, got %d: %v", len(page.Images), page.Images)
	}
	if want := fmt.Sprintf("![A photo](%s/images/photo.jpg)", srv.URL); page.Images[0] != want {
		t.Errorf("relative src not resolved: %q", page.Images[0])
	}
	if page.Images[1] != "![Image](https://cdn.example.com/logo.png)" {
		t.Errorf("protocol-relative src not resolved: %q", page.Images[1])
	}

	rendered := page.Render()
	if !strings.Contains(rendered, "[Images found") {
		t.Errorf("rendered output missing image section: %q", rendered)
	}
}

func TestFetchTruncates(t *testing.T) {
	long := strings.Repeat("word ", 5000)
	srv := serveHTML(t, "<html><body><p>"+long+"</p></body></html>")

	page, err := New().Fetch(context.Background(), srv.URL, 100)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !strings.HasSuffix(page.Text, truncationMarker) {
		t.Errorf("expected truncation marker, got tail %q", page.Text[len(page.Text)-40:])
	}
	if len(page.Text) > 100+len(truncationMarker) {
		t.Errorf("text too long: %d", len(page.Text))
	}
}

func TestFetchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := New().Fetch(context.Background(), srv.URL, 0); err == nil {
		t.Error("expected error for 404 response")
	}
}

func TestFetchPlainText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "just plain text")
	}))
	defer srv.Close()

	page, err := New().Fetch(context.Background(), srv.URL, 0)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if page.Text != "just plain text" {
		t.Errorf("unexpected text %q", page.Text)
	}
	if page.Title != "" {
		t.Errorf("plain text should have no title, got %q", page.Title)
	}
}

func TestTruncateUTF8(t *testing.T) {
	s := "héllo wörld"
	got := truncateUTF8(s, 5)
	if got != "héllo" {
		t.Errorf("expected héllo, got %q", got)
	}
	if truncateUTF8("short", 100) != "short" {
		t.Error("short strings should pass through")
	}
}

package media

import (
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aide-chat/aide/internal/llm"
)

func newTestGenerator(t *testing.T) *Generator {
	t.Helper()
	g, err := NewGenerator(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	return g
}

func TestDocument(t *testing.T) {
	g := newTestGenerator(t)

	url, err := g.Document("report", "Q3 Report", "# Heading\n\nSome **bold** text.\n\n- item one\n- item two")
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if url != "/files/report.html" {
		t.Errorf("unexpected url %q", url)
	}

	data, err := os.ReadFile(filepath.Join(g.Dir(), "report.html"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	out := string(data)
	for _, want := range []string{"<title>Q3 Report</title>", "<h1", "<strong>bold</strong>", "<li>item one</li>"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestOutputPathRejectsTraversal(t *testing.T) {
	g := newTestGenerator(t)
	for _, bad := range []string{"../escape", "a/b", ""} {
		if _, err := g.Document(bad, "", "x"); err == nil {
			t.Errorf("expected error for filename %q", bad)
		}
	}
}

func TestMindmap(t *testing.T) {
	g := newTestGenerator(t)

	url, err := g.Mindmap("ideas", "```mermaid\nmindmap\n  root((Project))\n    Planning\n```")
	if err != nil {
		t.Fatalf("Mindmap: %v", err)
	}
	if url != "/files/ideas.html" {
		t.Errorf("unexpected url %q", url)
	}

	data, _ := os.ReadFile(filepath.Join(g.Dir(), "ideas.html"))
	out := string(data)
	if strings.Contains(out, "```") {
		t.Error("code fences not stripped")
	}
	if !strings.Contains(out, `root(("Project"))`) {
		t.Errorf("node label not quoted:\n%s", out)
	}
	if !strings.Contains(out, "mermaid") {
		t.Error("missing mermaid bootstrap")
	}
}

func TestSanitizeMermaid(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "quotes shape labels",
			in:   "mindmap\n  root((My: Topic))",
			want: "mindmap\n  root((\"My: Topic\"))",
		},
		{
			name: "defuses class syntax",
			in:   "mindmap\n  a[Topic::important]",
			want: "mindmap\n  a[\"Topic:important\"]",
		},
		{
			name: "wraps bare text in generated node",
			in:   "mindmap\n  just some text",
			want: "mindmap\n  n1[\"just some text\"]",
		},
		{
			name: "double quotes become single",
			in:   `mindmap` + "\n" + `  a[say "hi"]`,
			want: "mindmap\n  a[\"say 'hi'\"]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeMermaid(tt.in); got != tt.want {
				t.Errorf("sanitizeMermaid(%q)\n got %q\nwant %q", tt.in, got, tt.want)
			}
		})
	}
}

// failingGateway always errors, forcing the placeholder path.
type failingGateway struct{}

func (failingGateway) Chat(context.Context, []llm.Message, []map[string]any) (*llm.Completion, error) {
	return nil, errors.New("model unavailable")
}

func (failingGateway) ChatStream(context.Context, []llm.Message, []map[string]any, func(llm.Delta)) (*llm.Completion, error) {
	return nil, errors.New("model unavailable")
}

func TestImagePlaceholderFallback(t *testing.T) {
	g := newTestGenerator(t)

	res, err := g.Image(context.Background(), failingGateway{}, "a red bicycle", "bike", "64x48")
	if err != nil {
		t.Fatalf("Image: %v", err)
	}
	if !res.Placeholder {
		t.Error("expected placeholder result")
	}
	if res.URLPath != "/files/bike.png" {
		t.Errorf("unexpected url %q", res.URLPath)
	}

	f, err := os.Open(filepath.Join(g.Dir(), "bike.png"))
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("output is not a valid PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Errorf("unexpected dimensions %dx%d", b.Dx(), b.Dy())
	}
}

func TestImageNilGateway(t *testing.T) {
	g := newTestGenerator(t)
	res, err := g.Image(context.Background(), nil, "anything", "pic.png", "")
	if err != nil {
		t.Fatalf("Image: %v", err)
	}
	if !res.Placeholder {
		t.Error("expected placeholder without a gateway")
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		w, h int
	}{
		{"", 1024, 1024},
		{"512x256", 512, 256},
		{"16:9", 1280, 720},
		{"garbage", 1024, 1024},
		{"0x10", 1024, 1024},
	}
	for _, tt := range tests {
		if w, h := parseSize(tt.in); w != tt.w || h != tt.h {
			t.Errorf("parseSize(%q) = %dx%d, want %dx%d", tt.in, w, h, tt.w, tt.h)
		}
	}
}

func TestQRCode(t *testing.T) {
	g := newTestGenerator(t)

	url, err := g.QRCode("https://example.com", "link", 0)
	if err != nil {
		t.Fatalf("QRCode: %v", err)
	}
	if url != "/files/link.png" {
		t.Errorf("unexpected url %q", url)
	}

	f, err := os.Open(filepath.Join(g.Dir(), "link.png"))
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	if _, err := png.Decode(f); err != nil {
		t.Errorf("output is not a valid PNG: %v", err)
	}
}

func TestQRCodeEmptyContent(t *testing.T) {
	g := newTestGenerator(t)
	if _, err := g.QRCode("", "x", 0); err == nil {
		t.Error("expected error for empty content")
	}
}

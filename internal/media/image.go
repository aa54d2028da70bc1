package media

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aide-chat/aide/internal/httpkit"
	"github.com/aide-chat/aide/internal/llm"
)

// markdownImageRe extracts the URL from a markdown image link in the
// model's reply.
var markdownImageRe = regexp.MustCompile(`!\[.*?\]\((.*?)\)`)

// downloadLimit caps how much image data is pulled from the model's
// returned URL (20 MB).
const downloadLimit int64 = 20 * 1024 * 1024

// ImageResult reports where a generated image landed and whether the
// real model produced it.
type ImageResult struct {
	URLPath     string
	Placeholder bool
}

// Image generates an image for a prompt. It asks the configured image
// model, which replies with a markdown link to the rendered image; the
// image is downloaded and stored locally. When no model is configured
// or the call fails, a locally drawn placeholder is written instead so
// the tool always yields a viewable file.
func (g *Generator) Image(ctx context.Context, gw llm.Gateway, prompt, filename, size string) (*ImageResult, error) {
	diskPath, urlPath, err := g.outputPath(filename, ".png")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("prompt is required")
	}

	width, height := parseSize(size)

	if gw != nil {
		if err := g.generateViaModel(ctx, gw, prompt, diskPath, width, height); err == nil {
			return &ImageResult{URLPath: urlPath}, nil
		} else {
			g.logger.Warn("image model generation failed, using placeholder", "error", err)
		}
	}

	if err := writePlaceholder(diskPath, prompt, width, height); err != nil {
		return nil, fmt.Errorf("write placeholder image: %w", err)
	}
	return &ImageResult{URLPath: urlPath, Placeholder: true}, nil
}

func (g *Generator) generateViaModel(ctx context.Context, gw llm.Gateway, prompt, diskPath string, width, height int) error {
	enhanced := fmt.Sprintf("%s --aspect %d:%d", prompt, width, height)
	completion, err := gw.Chat(ctx, []llm.Message{{Role: "user", Content: enhanced}}, nil)
	if err != nil {
		return fmt.Errorf("image model call: %w", err)
	}

	m := markdownImageRe.FindStringSubmatch(completion.Content)
	if m == nil {
		return fmt.Errorf("no image link in model response")
	}
	imageURL := m[1]

	client := httpkit.NewClient(httpkit.WithTimeout(30 * time.Second))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		httpkit.DrainAndClose(resp.Body, 4*1024)
		return fmt.Errorf("download image: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, downloadLimit))
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	if err := os.WriteFile(diskPath, data, 0o644); err != nil {
		return fmt.Errorf("save image: %w", err)
	}
	return nil
}

// parseSize accepts "WxH" or the "16:9" shorthand; anything else
// yields the 1024x1024 default.
func parseSize(size string) (width, height int) {
	width, height = 1024, 1024
	if size == "16:9" {
		return 1280, 720
	}
	parts := strings.SplitN(size, "x", 2)
	if len(parts) == 2 {
		w, werr := strconv.Atoi(strings.TrimSpace(parts[0]))
		h, herr := strconv.Atoi(strings.TrimSpace(parts[1]))
		if werr == nil && herr == nil && w > 0 && h > 0 {
			return w, h
		}
	}
	return width, height
}

// writePlaceholder draws a flat-color PNG whose background is derived
// from the prompt, so repeated runs are deterministic.
func writePlaceholder(path, prompt string, width, height int) error {
	n := len(prompt)
	bg := color.RGBA{
		R: uint8((n * 15) % 255),
		G: uint8((n * 35) % 255),
		B: uint8((n * 55) % 255),
		A: 255,
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

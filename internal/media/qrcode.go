package media

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// defaultQRSize is the edge length in pixels of a generated QR code.
const defaultQRSize = 256

// QRCode encodes content into a PNG QR code and returns the public
// URL path.
func (g *Generator) QRCode(content, filename string, size int) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("content is required")
	}
	diskPath, urlPath, err := g.outputPath(filename, ".png")
	if err != nil {
		return "", err
	}
	if size <= 0 {
		size = defaultQRSize
	}

	if err := qrcode.WriteFile(content, qrcode.Medium, size, diskPath); err != nil {
		return "", fmt.Errorf("encode qr code: %w", err)
	}

	g.logger.Info("qr code generated", "file", diskPath, "size", size)
	return urlPath, nil
}

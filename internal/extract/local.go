package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/nikhilbhutani/audioreader/pkg/textextract"
)

// LocalBackend extracts without a hosted model: the PDF text layer, or
// tesseract OCR for images.
type LocalBackend struct {
	tesseractPath string
}

func NewLocalBackend() *LocalBackend {
	path, _ := exec.LookPath("tesseract")
	if path == "" {
		path = "tesseract"
	}
	return &LocalBackend{tesseractPath: path}
}

func (l *LocalBackend) Name() string { return "local" }

func (l *LocalBackend) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	if mimeType != "application/pdf" {
		return l.ocr(ctx, data)
	}

	doc, err := textextract.PDF(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	if blank := doc.Blank(); blank > 0 {
		slog.Warn("pdf pages without a text layer skipped", "pages", len(doc.Pages), "blank", blank)
	}
	return doc.Text(), nil
}

func (l *LocalBackend) ocr(ctx context.Context, image []byte) (string, error) {
	cmd := exec.CommandContext(ctx, l.tesseractPath, "stdin", "stdout", "-l", "eng")
	cmd.Stdin = bytes.NewReader(image)

	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("tesseract OCR: %w", err)
	}

	return strings.TrimSpace(string(output)), nil
}

package textextract

import (
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Document is the text layer of a PDF, one entry per page in page order.
// Pages without a text layer (scans) are empty strings.
type Document struct {
	Pages []string
}

// Blank counts pages that produced no text.
func (d *Document) Blank() int {
	n := 0
	for _, p := range d.Pages {
		if p == "" {
			n++
		}
	}
	return n
}

// Text joins the non-empty pages with a paragraph break.
func (d *Document) Text() string {
	var b strings.Builder
	for _, p := range d.Pages {
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(p)
	}
	return b.String()
}

// PDF reads the text layer of every page. A page that fails to decode is
// treated as blank rather than failing the whole document.
func PDF(r io.ReaderAt, size int64) (*Document, error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	doc := &Document{Pages: make([]string, reader.NumPage())}
	for i := range doc.Pages {
		page := reader.Page(i + 1)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		doc.Pages[i] = strings.TrimSpace(text)
	}

	return doc, nil
}

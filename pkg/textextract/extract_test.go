package textextract

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPDFRejectsNonPDF(t *testing.T) {
	data := []byte("definitely not a pdf")
	_, err := PDF(bytes.NewReader(data), int64(len(data)))
	assert.ErrorContains(t, err, "open PDF")
}

func TestDocumentText(t *testing.T) {
	doc := &Document{Pages: []string{"First page.", "", "Third page."}}

	assert.Equal(t, "First page.\n\nThird page.", doc.Text())
	assert.Equal(t, 1, doc.Blank())
	assert.Empty(t, (&Document{Pages: []string{"", ""}}).Text())
}

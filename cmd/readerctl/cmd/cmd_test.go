package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/audioreader/internal/document"
	"github.com/nikhilbhutani/audioreader/internal/models"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestLocateUsesSpeechMarks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/documents/doc-1/reader", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(document.ReaderView{
			ID:          "doc-1",
			CleanedText: "Hello big world. Bye now.",
			SpeechMarks: []models.SpeechMark{{Time: 0, WordIndex: 0}, {Time: 500, WordIndex: 1}, {Time: 1200, WordIndex: 3}},
		})
	}))
	defer srv.Close()

	out, err := run(t, "locate", "doc-1", "--server", srv.URL, "--token", "tok", "--time", "1.3", "--duration", "10")

	require.NoError(t, err)
	assert.Equal(t, "word 3: Bye\nsentence 1: Bye now.\n", out)
}

func TestWaitReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.StatusResponse{ID: "doc-1", Status: models.DocStatusError, Error: "Text extraction failed"})
	}))
	defer srv.Close()

	_, err := run(t, "wait", "doc-1", "--server", srv.URL, "--token", "tok", "--interval", "1ms")

	assert.EqualError(t, err, "processing failed: Text extraction failed")
}

func TestDetectContentType(t *testing.T) {
	dir := t.TempDir()

	pdf := filepath.Join(dir, "notes.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4"), 0o600))
	png := filepath.Join(dir, "scan")
	require.NoError(t, os.WriteFile(png, []byte("\x89PNG\r\n\x1a\n0000"), 0o600))

	testCases := []struct {
		path string
		want string
	}{
		{pdf, "application/pdf"},
		{png, "image/png"},
	}

	for _, tc := range testCases {
		t.Run(filepath.Base(tc.path), func(t *testing.T) {
			f, err := os.Open(tc.path)
			require.NoError(t, err)
			defer f.Close()

			ct, err := detectContentType(f)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ct)
		})
	}
}

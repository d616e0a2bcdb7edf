package extract

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeBackend struct {
	text     string
	err      error
	gotData  []byte
	gotMime  string
	numCalls int
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	f.numCalls++
	f.gotData = data
	f.gotMime = mimeType
	return f.text, f.err
}

func fileServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExtract(t *testing.T) {
	srv := fileServer(t, http.StatusOK, "%PDF-bytes")
	backend := &fakeBackend{text: "Hello world."}
	svc := NewService(backend)

	text, err := svc.Extract(context.Background(), srv.URL, "application/pdf")

	require.NoError(t, err)
	assert.Equal(t, "Hello world.", text)
	assert.Equal(t, "%PDF-bytes", string(backend.gotData))
	assert.Equal(t, "application/pdf", backend.gotMime)
}

func TestExtractFailures(t *testing.T) {
	testCases := []struct {
		name     string
		status   int
		mime     string
		backend  *fakeBackend
		wantMsg  string
		wantCall bool
	}{
		{
			name:     "whitespace only",
			status:   http.StatusOK,
			mime:     "image/png",
			backend:  &fakeBackend{text: "   \n\t "},
			wantMsg:  NoTextMessage,
			wantCall: true,
		},
		{
			name:    "fetch not found",
			status:  http.StatusNotFound,
			mime:    "application/pdf",
			backend: &fakeBackend{text: "unused"},
			wantMsg: "Failed to fetch file: 404 Not Found",
		},
		{
			name:    "unsupported type",
			status:  http.StatusOK,
			mime:    "text/plain",
			backend: &fakeBackend{text: "unused"},
			wantMsg: "Unsupported file type: text/plain",
		},
		{
			name:     "backend error",
			status:   http.StatusOK,
			mime:     "application/pdf",
			backend:  &fakeBackend{err: errors.New("quota exceeded")},
			wantMsg:  "Text extraction failed",
			wantCall: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := fileServer(t, tc.status, "data")
			svc := NewService(tc.backend)

			_, err := svc.Extract(context.Background(), srv.URL, tc.mime)

			var extractErr *Error
			require.ErrorAs(t, err, &extractErr)
			assert.Equal(t, tc.wantMsg, extractErr.Message)
			assert.Equal(t, tc.wantCall, tc.backend.numCalls > 0)
		})
	}
}

type fakeGenerator struct {
	model    string
	contents []*genai.Content
	reply    string
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: genai.NewContentFromText(f.reply, genai.RoleModel)},
		},
	}, nil
}

func TestGeminiBackendPrompts(t *testing.T) {
	testCases := []struct {
		mime   string
		prompt string
	}{
		{"application/pdf", pdfPrompt},
		{"image/jpeg", imagePrompt},
	}

	for _, tc := range testCases {
		t.Run(tc.mime, func(t *testing.T) {
			gen := &fakeGenerator{reply: "Page one."}
			g := &GeminiBackend{models: gen, model: "gemini-1.5-flash"}

			text, err := g.ExtractText(context.Background(), []byte{1, 2, 3}, tc.mime)

			require.NoError(t, err)
			assert.Equal(t, "Page one.", text)
			assert.Equal(t, "gemini-1.5-flash", gen.model)
			require.Len(t, gen.contents, 1)
			parts := gen.contents[0].Parts
			require.Len(t, parts, 2)
			assert.Equal(t, tc.prompt, parts[0].Text)
			require.NotNil(t, parts[1].InlineData)
			assert.Equal(t, tc.mime, parts[1].InlineData.MIMEType)
			assert.Equal(t, []byte{1, 2, 3}, parts[1].InlineData.Data)
		})
	}
}

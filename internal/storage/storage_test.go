package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaths(t *testing.T) {
	assert.Equal(t, "documents/doc-1/report.pdf", DocumentPath("doc-1", "report.pdf"))
	assert.Equal(t, "audio/doc-1.mp3", AudioPath("doc-1"))
}

func TestMemoryOverwritesDeterministicPath(t *testing.T) {
	m := NewMemory("https://blob.test")
	ctx := context.Background()

	url1, err := m.Upload(ctx, AudioPath("doc-1"), strings.NewReader("first"), "audio/mpeg")
	require.NoError(t, err)
	url2, err := m.Upload(ctx, AudioPath("doc-1"), strings.NewReader("second"), "audio/mpeg")
	require.NoError(t, err)

	assert.Equal(t, url1, url2)
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 2, m.Writes())

	data, ct, ok := m.Object("audio/doc-1.mp3")
	require.True(t, ok)
	assert.Equal(t, "second", string(data))
	assert.Equal(t, "audio/mpeg", ct)

	require.NoError(t, m.Delete(ctx, url1))
	assert.Equal(t, 0, m.Len())
	assert.ErrorIs(t, m.Delete(ctx, "https://elsewhere/x"), ErrForeignURL)
}

func TestSupabaseUploadAndDelete(t *testing.T) {
	var gotPath, gotUpsert, gotAuth, gotBody string
	var deleted string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			gotPath = r.URL.Path
			gotUpsert = r.Header.Get("x-upsert")
			gotAuth = r.Header.Get("Authorization")
			b, _ := io.ReadAll(r.Body)
			gotBody = string(b)
			w.WriteHeader(http.StatusOK)
		case http.MethodDelete:
			deleted = r.URL.Path
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	s := NewSupabaseStorage(srv.URL, "service-key", "documents")
	ctx := context.Background()

	url, err := s.Upload(ctx, "audio/doc-1.mp3", strings.NewReader("mp3"), "audio/mpeg")
	require.NoError(t, err)

	assert.Equal(t, "/storage/v1/object/documents/audio/doc-1.mp3", gotPath)
	assert.Equal(t, "true", gotUpsert)
	assert.Equal(t, "Bearer service-key", gotAuth)
	assert.Equal(t, "mp3", gotBody)
	assert.Equal(t, srv.URL+"/storage/v1/object/public/documents/audio/doc-1.mp3", url)

	require.NoError(t, s.Delete(ctx, url))
	assert.Equal(t, "/storage/v1/object/documents/audio/doc-1.mp3", deleted)
}

func TestSupabaseUploadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("denied"))
	}))
	defer srv.Close()

	s := NewSupabaseStorage(srv.URL, "k", "documents")
	_, err := s.Upload(context.Background(), "a", strings.NewReader("x"), "text/plain")
	assert.ErrorContains(t, err, "403")
}

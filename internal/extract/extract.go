package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// NoTextMessage is the failure reported when a backend returns only whitespace.
const NoTextMessage = "No text could be extracted from the document"

const maxFileBytes = 50 << 20

// Error is a failed extraction. Message is what gets persisted on the document.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Backend turns raw file bytes into text.
type Backend interface {
	Name() string
	ExtractText(ctx context.Context, data []byte, mimeType string) (string, error)
}

type Service struct {
	backend    Backend
	httpClient *http.Client
}

func NewService(backend Backend) *Service {
	return &Service{
		backend:    backend,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

// Supported reports whether mimeType can be extracted.
func Supported(mimeType string) bool {
	return mimeType == "application/pdf" || strings.HasPrefix(mimeType, "image/")
}

// Extract fetches fileURL and returns its text. Every failure is an *Error.
func (s *Service) Extract(ctx context.Context, fileURL, mimeType string) (string, error) {
	if !Supported(mimeType) {
		return "", &Error{Message: fmt.Sprintf("Unsupported file type: %s", mimeType)}
	}

	data, err := s.fetch(ctx, fileURL)
	if err != nil {
		return "", err
	}

	text, err := s.backend.ExtractText(ctx, data, mimeType)
	if err != nil {
		return "", &Error{Message: "Text extraction failed", Err: fmt.Errorf("%s backend: %w", s.backend.Name(), err)}
	}

	if strings.TrimSpace(text) == "" {
		return "", &Error{Message: NoTextMessage}
	}

	return text, nil
}

func (s *Service) fetch(ctx context.Context, fileURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, &Error{Message: "Failed to fetch file", Err: err}
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Message: "Failed to fetch file", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Message: fmt.Sprintf("Failed to fetch file: %s", resp.Status)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFileBytes+1))
	if err != nil {
		return nil, &Error{Message: "Failed to fetch file", Err: err}
	}
	if len(data) > maxFileBytes {
		return nil, &Error{Message: "File too large to extract"}
	}

	return data, nil
}

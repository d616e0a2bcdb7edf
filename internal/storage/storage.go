package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Storage writes public blobs for uploaded documents and generated audio.
type Storage interface {
	// Upload stores data at path, overwriting any existing object, and returns its public URL.
	Upload(ctx context.Context, path string, data io.Reader, contentType string) (string, error)
	// Delete removes the object behind a URL previously returned by Upload.
	Delete(ctx context.Context, url string) error
}

var ErrForeignURL = errors.New("url does not belong to this storage")

// pathFromURL strips prefix from url, returning the object path.
func pathFromURL(url, prefix string) (string, error) {
	if !strings.HasPrefix(url, prefix) {
		return "", fmt.Errorf("%w: %s", ErrForeignURL, url)
	}
	return strings.TrimPrefix(url, prefix), nil
}

// DocumentPath is the object path of an uploaded source file.
func DocumentPath(documentID, filename string) string {
	return fmt.Sprintf("documents/%s/%s", documentID, filename)
}

// AudioPath is the deterministic object path of a document's generated audio.
func AudioPath(documentID string) string {
	return fmt.Sprintf("audio/%s.mp3", documentID)
}

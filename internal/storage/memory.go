package storage

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Memory is an in-process Storage used by tests and local runs.
type Memory struct {
	BaseURL string

	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	writes  int
}

func NewMemory(baseURL string) *Memory {
	return &Memory{
		BaseURL: baseURL,
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func (m *Memory) Upload(ctx context.Context, path string, data io.Reader, contentType string) (string, error) {
	b, err := io.ReadAll(data)
	if err != nil {
		return "", fmt.Errorf("read upload data: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = b
	m.types[path] = contentType
	m.writes++
	return m.BaseURL + "/" + path, nil
}

func (m *Memory) Delete(ctx context.Context, url string) error {
	path, err := pathFromURL(url, m.BaseURL+"/")
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, path)
	delete(m.types, path)
	return nil
}

// Object returns the stored bytes and content type at path.
func (m *Memory) Object(path string) ([]byte, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[path]
	return b, m.types[path], ok
}

// Len is the number of stored objects.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// Writes counts Upload calls, including overwrites.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

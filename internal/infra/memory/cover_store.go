package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// CoverStore keeps uploaded covers in memory.
type CoverStore struct {
	mu      sync.Mutex
	baseURL string
	objects map[string][]byte
}

func NewCoverStore(baseURL string) *CoverStore {
	return &CoverStore{baseURL: baseURL, objects: make(map[string][]byte)}
}

func (s *CoverStore) Put(_ context.Context, key, _ string, size int64, body io.Reader) (string, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(body, size+1))
	if err != nil {
		return "", err
	}
	if n != size {
		return "", fmt.Errorf("cover size mismatch: got %d bytes, expected %d", n, size)
	}
	s.mu.Lock()
	s.objects[key] = buf.Bytes()
	s.mu.Unlock()
	return s.baseURL + "/" + key, nil
}

// Object returns a stored cover.
func (s *CoverStore) Object(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[key]
	return b, ok
}

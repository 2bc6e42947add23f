// Package memory holds process-local adapters. They back the "memory" storage
// provider in development and the service tests.
package memory

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/khoahotran/profile-card/internal/application/service"
)

type Object struct {
	Data        []byte
	ContentType string
	Public      bool
}

type BlobStore struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string]Object
	// FailPut makes every Put fail, to exercise upstream failure paths.
	FailPut error
}

var _ service.BlobStore = (*BlobStore)(nil)

func NewBlobStore(baseURL string) *BlobStore {
	return &BlobStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string]Object),
	}
}

func (s *BlobStore) Put(ctx context.Context, key string, body io.Reader, opts service.PutOptions) (string, error) {
	if s.FailPut != nil {
		return "", s.FailPut
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read blob body: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = Object{Data: data, ContentType: opts.ContentType, Public: opts.Public}
	return s.URLFor(key), nil
}

func (s *BlobStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *BlobStore) URLFor(key string) string {
	return s.baseURL + "/" + key
}

// Get returns the object stored under key.
func (s *BlobStore) Get(key string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj, ok
}

// GetByURL resolves a URL previously returned by Put.
func (s *BlobStore) GetByURL(url string) (Object, bool) {
	key, ok := strings.CutPrefix(url, s.baseURL+"/")
	if !ok {
		return Object{}, false
	}
	return s.Get(key)
}

func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// ServeHTTP serves public objects by key, so the memory provider can back a
// development server.
func (s *BlobStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	obj, ok := s.Get(strings.TrimPrefix(r.URL.Path, "/"))
	if !ok || !obj.Public {
		http.NotFound(w, r)
		return
	}
	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	w.Write(obj.Data)
}

package preview

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// PathPrefix is the URL prefix previews are served under
const PathPrefix = "/preview/"

// Preview is locally held file content shown before it is uploaded
type Preview struct {
	ContentType string
	Data        []byte
}

// Store keeps preview content in memory until it is released
type Store struct {
	mu       sync.RWMutex
	previews map[string]Preview
}

// NewStore creates an empty preview store
func NewStore() *Store {
	return &Store{
		previews: make(map[string]Preview),
	}
}

// Acquire stores data and returns the URL it can be fetched from.
// The caller owns the handle and must Release it.
func (s *Store) Acquire(contentType string, data []byte) string {
	id := uuid.New().String()

	s.mu.Lock()
	s.previews[id] = Preview{ContentType: contentType, Data: data}
	s.mu.Unlock()

	return PathPrefix + id
}

// Open returns the preview stored under id
func (s *Store) Open(id string) (Preview, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.previews[id]
	return p, ok
}

// Release frees the preview behind url. Unknown urls are ignored.
func (s *Store) Release(url string) {
	id, ok := IDFromURL(url)
	if !ok {
		return
	}

	s.mu.Lock()
	delete(s.previews, id)
	s.mu.Unlock()
}

// Len returns the number of previews currently held
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.previews)
}

// Close releases every preview
func (s *Store) Close() {
	s.mu.Lock()
	s.previews = make(map[string]Preview)
	s.mu.Unlock()
}

// IDFromURL extracts the preview id from a URL returned by Acquire
func IDFromURL(url string) (string, bool) {
	if !strings.HasPrefix(url, PathPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(url, PathPrefix)
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

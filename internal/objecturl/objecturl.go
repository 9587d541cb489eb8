// Package objecturl issues transient URLs that stand in for local files
// until they are explicitly revoked.
package objecturl

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

const scheme = "blob:vss/"

type Registry struct {
	mu      sync.Mutex
	entries map[string]string
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]string)}
}

// Create returns a new URL referring to the file at path.
func (r *Registry) Create(path string) string {
	url := scheme + uuid.NewString()

	r.mu.Lock()
	r.entries[url] = path
	r.mu.Unlock()

	return url
}

// Revoke releases url. Revoking an unknown or already revoked URL is a no-op.
func (r *Registry) Revoke(url string) {
	r.mu.Lock()
	delete(r.entries, url)
	r.mu.Unlock()
}

// Resolve returns the file path behind a live URL.
func (r *Registry) Resolve(url string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	path, ok := r.entries[url]
	return path, ok
}

// Len reports how many URLs are still live.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func IsObjectURL(s string) bool {
	return strings.HasPrefix(s, scheme)
}

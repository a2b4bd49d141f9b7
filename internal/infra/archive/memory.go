package archive

import (
	"context"
	"sort"
	"sync"
)

// Object is an archived blob.
type Object struct {
	Data        []byte
	ContentType string
}

// MemoryArchive keeps artifacts in memory. Useful for tests and local dev.
type MemoryArchive struct {
	mu      sync.RWMutex
	objects map[string]Object
}

// NewMemoryArchive constructs the archive.
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{objects: make(map[string]Object)}
}

// Put stores a copy of data under key.
func (a *MemoryArchive) Put(_ context.Context, key string, data []byte, contentType string) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	a.mu.Lock()
	a.objects[key] = Object{Data: buf, ContentType: contentType}
	a.mu.Unlock()
	return nil
}

// Get returns the object stored under key.
func (a *MemoryArchive) Get(key string) (Object, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	obj, ok := a.objects[key]
	return obj, ok
}

// Keys lists stored keys in order.
func (a *MemoryArchive) Keys() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	keys := make([]string, 0, len(a.objects))
	for k := range a.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

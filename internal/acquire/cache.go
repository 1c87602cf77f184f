package acquire

import (
	"strings"
	"sync"

	"github.com/litescript/ls-skyline/internal/astro"
)

// MemorySunCache is an in-process SunCache. Writing a window for a new day
// evicts windows from other days.
type MemorySunCache struct {
	mu      sync.RWMutex
	windows map[string]astro.SunWindow
}

// NewMemorySunCache creates an empty cache.
func NewMemorySunCache() *MemorySunCache {
	return &MemorySunCache{windows: make(map[string]astro.SunWindow)}
}

// Get returns the window stored under key.
func (c *MemorySunCache) Get(key string) (astro.SunWindow, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	w, ok := c.windows[key]
	return w, ok
}

// Put stores w under key.
func (c *MemorySunCache) Put(key string, w astro.SunWindow) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := w.Date + "@"
	for k := range c.windows {
		if !strings.HasPrefix(k, prefix) {
			delete(c.windows, k)
		}
	}
	c.windows[key] = w
}

// Len returns the number of cached windows.
func (c *MemorySunCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.windows)
}

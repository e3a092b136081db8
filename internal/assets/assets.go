// Package assets locates and caches files referenced by converted assets.
package assets

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
)

// ErrNotFound is returned when no source holds the requested file.
var ErrNotFound = errors.New("file not found")

// Source is a read-only file tree.
type Source interface {
	Name() string
	Read(path string) ([]byte, error)
	Close() error
}

// Manager reads files from a stack of sources.
type Manager struct {
	sources []Source
	cache   *Cache
	mu      sync.RWMutex
}

// NewManager creates a manager. A nil cache disables byte caching.
func NewManager(cache *Cache) *Manager {
	return &Manager{cache: cache}
}

// AddSource adds a source to the manager.
// Sources are searched in reverse order (last added = highest priority).
func (m *Manager) AddSource(src Source) {
	m.mu.Lock()
	m.sources = append(m.sources, src)
	m.mu.Unlock()
}

// AddDir adds a directory source.
func (m *Manager) AddDir(root string) error {
	src, err := OpenDir(root)
	if err != nil {
		return err
	}
	m.AddSource(src)
	return nil
}

// AddArchive adds a zip archive source and returns how many files it indexes.
func (m *Manager) AddArchive(path string) (int, error) {
	src, err := OpenZip(path)
	if err != nil {
		return 0, fmt.Errorf("opening archive %s: %w", path, err)
	}
	m.AddSource(src)
	return src.FileCount(), nil
}

// Sources returns the source names in search order.
func (m *Manager) Sources() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.sources))
	for i := len(m.sources) - 1; i >= 0; i-- {
		names = append(names, m.sources[i].Name())
	}
	return names
}

// Load reads path from the first source that has it.
func (m *Manager) Load(path string) ([]byte, error) {
	if m.cache != nil {
		if data, ok := m.cache.Get(path); ok {
			return data, nil
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.sources) - 1; i >= 0; i-- {
		data, err := m.sources[i].Read(path)
		if err == nil {
			if m.cache != nil {
				m.cache.Set(path, data)
			}
			return data, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
}

// Close closes all sources.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	for _, src := range m.sources {
		err = multierr.Append(err, src.Close())
	}
	m.sources = nil
	if m.cache != nil {
		m.cache.Clear()
	}
	return err
}

// Cache is a simple in-memory cache for loaded files.
type Cache struct {
	data map[string][]byte
	mu   sync.RWMutex

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string][]byte),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	data, ok := c.data[key]
	c.mu.RUnlock()

	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return data, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.hits.Store(0)
	c.misses.Store(0)
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	return int(c.hits.Load()), int(c.misses.Load())
}

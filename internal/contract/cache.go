package contract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio"
)

// ErrNotCached is returned by ArtifactCache.Get for a missing entry.
var ErrNotCached = errors.New("artifact not cached")

// ArtifactCache stores compiled outputs by file name.
type ArtifactCache interface {
	Get(name string) ([]byte, error)
	Put(name string, data []byte) error
}

// FileCache keeps artifacts as files in Dir. Writes are atomic.
type FileCache struct {
	Dir string
}

// NewFileCache creates dir if needed.
func NewFileCache(dir string) (*FileCache, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &FileCache{Dir: dir}, nil
}

func (c *FileCache) Get(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(c.Dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotCached
	}
	return data, err
}

func (c *FileCache) Put(name string, data []byte) error {
	return renameio.WriteFile(filepath.Join(c.Dir, name), data, 0o644)
}

// MemoryCache is an in-process ArtifactCache.
type MemoryCache struct {
	mu    sync.RWMutex
	files map[string][]byte
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{files: make(map[string][]byte)}
}

func (c *MemoryCache) Get(name string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, ok := c.files[name]
	if !ok {
		return nil, ErrNotCached
	}
	return append([]byte(nil), data...), nil
}

func (c *MemoryCache) Put(name string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[name] = append([]byte(nil), data...)
	return nil
}

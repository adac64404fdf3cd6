package wikidata

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Cache is a durable, gzip-compressed store of raw upstream documents keyed
// by id. It never evicts; staleness is detected by the client's conditional
// fetches, not by the cache.
type Cache struct {
	dir    string
	suffix string
}

// NewCache creates a cache writing artifacts as {key}{suffix} under dir.
func NewCache(dir, suffix string) *Cache {
	return &Cache{dir: dir, suffix: suffix}
}

// Get reads and decompresses the cached artifact for key, if present.
func (c *Cache) Get(key string) ([]byte, bool) {
	f, err := os.Open(c.path(key))
	if err != nil {
		return nil, false
	}
	defer func() { _ = f.Close() }()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, false
	}
	defer func() { _ = zr.Close() }()

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Put compresses and writes value as the artifact for key, replacing any
// previous copy.
func (c *Cache) Put(key string, value []byte) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	f, err := os.Create(c.path(key))
	if err != nil {
		return fmt.Errorf("create cache file: %w", err)
	}

	zw := gzip.NewWriter(f)
	if _, err := zw.Write(value); err != nil {
		_ = zw.Close()
		_ = f.Close()
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := zw.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush cache file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close cache file: %w", err)
	}
	return nil
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+c.suffix)
}

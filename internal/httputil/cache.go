// SPDX-License-Identifier: MIT

// Package httputil provides the disk cache & retry plumbing used by the dataset clients.
package httputil

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Cache stores JSON documents on disk, one file per key.
//
// Entries expire TTL after their last write; a zero TTL disables expiry. The type isn't safe
// for concurrent use.
type Cache struct {
	dir    string
	ttl    time.Duration
	prefix string
}

// Cache errors.
var (
	ErrExpired    = errors.New("cache entry expired")
	ErrCacheSetup = errors.New("failed to set up cache directory")
)

// DefaultDir is the cache directory used when none is configured.
func DefaultDir() (dir string, err error) {
	if dir, err = os.UserCacheDir(); err != nil {
		return
	}

	return filepath.Join(dir, "treemap"), nil
}

// NewCache creates a Cache in dir, creating the directory when absent.
//
// An empty dir selects [DefaultDir].
func NewCache(dir string, ttl time.Duration) (c *Cache, err error) {
	if dir == "" {
		if dir, err = DefaultDir(); err != nil {
			err = fmt.Errorf("%w: %w", ErrCacheSetup, err)
			return
		}
	}

	if err = os.MkdirAll(dir, 0o755); err != nil {
		err = fmt.Errorf("%w: %w", ErrCacheSetup, err)
		return
	}

	return &Cache{dir: dir, ttl: ttl}, nil
}

// Dir retrieves the cache directory.
func (c *Cache) Dir() string { return c.dir }

// TTL retrieves the entry lifetime.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get decodes the entry stored under key into v.
//
// A missing entry yields (false, nil), a stale one (false, ErrExpired).
func (c *Cache) Get(key string, v any) (ok bool, err error) {
	path := c.path(key)

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	case err != nil:
		return
	case c.ttl > 0 && time.Since(info.ModTime()) > c.ttl:
		return false, ErrExpired
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	if err = json.Unmarshal(data, v); err != nil {
		return
	}

	return true, nil
}

// Set encodes v & stores it under key, refreshing the entry's lifetime.
func (c *Cache) Set(key string, v any) (err error) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}

	return os.WriteFile(c.path(key), data, 0o644)
}

// Namespace creates a view of the Cache prefixing every key.
func (c *Cache) Namespace(prefix string) *Cache {
	return &Cache{dir: c.dir, ttl: c.ttl, prefix: c.prefix + prefix}
}

// path hashes a key into a file name safe on every platform.
func (c *Cache) path(key string) string {
	sum := sha256.Sum256([]byte(c.prefix + key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".json")
}

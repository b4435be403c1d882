// Package cache stores conversation transcripts as JSON files, one per
// conversation ID, written atomically.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const cacheExt = ".json"

var errInvalidID = errors.New("invalid id")

// ErrNotFound is returned when no transcript exists for an ID.
var ErrNotFound = errors.New("not cached")

// Cache persists values of type T keyed by ID.
type Cache[T any] struct {
	dir string
}

func New[T any](dir string) (*Cache[T], error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &Cache[T]{dir: dir}, nil
}

func (c *Cache[T]) path(id string) string {
	return filepath.Join(c.dir, id+cacheExt)
}

// Read loads the value stored under id.
func (c *Cache[T]) Read(id string, v *T) error {
	if id == "" {
		return fmt.Errorf("read: %w", errInvalidID)
	}
	data, err := os.ReadFile(c.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("read %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("read: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("read: %w", err)
	}
	return nil
}

// Write stores the value under id via temp file and rename, so readers never
// observe a partial transcript.
func (c *Cache[T]) Write(id string, v T) error {
	if id == "" {
		return fmt.Errorf("write: %w", errInvalidID)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := os.Rename(tmpName, c.path(id)); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Delete removes the value stored under id.
func (c *Cache[T]) Delete(id string) error {
	if id == "" {
		return fmt.Errorf("delete: %w", errInvalidID)
	}
	if err := os.Remove(c.path(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

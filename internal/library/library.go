// Package library performs prompt reads, writes, and deletes against the
// flat on-disk directory. Reads of metadata are served from the cache; the
// cache itself is kept consistent by its watcher, not by writes performed
// here.
package library

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/cache"
	"github.com/starford/ansuz/internal/slug"
)

// Library is the prompt document store. All consistency between disk and
// the metadata cache is eventual: a write is visible in List output once
// the watcher has processed its own event for the file.
type Library struct {
	dir    string
	cache  *cache.Cache
	logger *slog.Logger
}

// New creates a library rooted at dir, backed by the given cache.
func New(dir string, c *cache.Cache, logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.Default()
	}
	return &Library{dir: dir, cache: c, logger: logger}
}

// Dir returns the storage directory.
func (l *Library) Dir() string {
	return l.dir
}

// Path returns the on-disk path for a prompt name.
func (l *Library) Path(name string) string {
	return filepath.Join(l.dir, slug.Filename(name))
}

// List returns metadata records for all known prompts. The first call on
// an empty cache triggers the initial full scan and starts the watcher;
// that caller pays the scan cost for the lifetime of the process. Listing
// an empty directory yields an empty slice, never an error.
func (l *Library) List() ([]cache.Record, error) {
	if l.cache.IsEmpty() {
		if err := l.cache.Initialize(); err != nil {
			return nil, err
		}
		if err := l.cache.StartWatching(); err != nil {
			// Reads still work from the scan; only live updates are lost.
			l.logger.Warn("library: watcher start failed", slog.String("error", err.Error()))
		}
	}
	return l.cache.List(), nil
}

// Read returns the full content of a prompt directly from disk. The cache
// never holds bodies, only previews.
func (l *Library) Read(name string) ([]byte, error) {
	data, err := os.ReadFile(l.Path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("library: %s: %w", name, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("library: read %s: %w", name, err)
	}
	return data, nil
}

// Write replaces the whole file for name and returns the stored file stem.
// It does not touch the cache; the watcher's own event for this write
// restores consistency asynchronously.
func (l *Library) Write(name string, content []byte) (string, error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return "", fmt.Errorf("library: create dir: %w", err)
	}

	abs := l.Path(name)

	// Atomic replace: tmp file, fsync, rename. The dot prefix keeps the
	// temp file invisible to the cache scan and watcher.
	tmp, err := os.CreateTemp(l.dir, ".ansuz-tmp-*")
	if err != nil {
		return "", fmt.Errorf("library: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return "", fmt.Errorf("library: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("library: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("library: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return "", fmt.Errorf("library: rename: %w", err)
	}
	success = true

	return slug.Encode(name), nil
}

// Delete removes the prompt file. The corresponding cache record is
// removed by the watcher's remove event.
func (l *Library) Delete(name string) error {
	if err := os.Remove(l.Path(name)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("library: %s: %w", name, apperr.ErrNotFound)
		}
		return fmt.Errorf("library: delete %s: %w", name, err)
	}
	return nil
}

// Exists reports whether a prompt file is present on disk, independent of
// cache state.
func (l *Library) Exists(name string) bool {
	_, err := os.Stat(l.Path(name))
	return err == nil
}

// Package cache owns the in-memory metadata index of all known prompts.
// It performs the initial full-directory load and incrementally applies
// fsnotify events so the index eventually reflects disk state, including
// edits made by other processes.
package cache

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/ansuz/internal/meta"
	"github.com/starford/ansuz/internal/slug"
)

// Record is one cached prompt entry. It is created or fully replaced when
// a file is loaded and removed when the file disappears; no field-level
// merging ever happens.
type Record struct {
	Name    string         `json:"name"`
	Meta    map[string]any `json:"metadata,omitempty"`
	Preview string         `json:"preview"`
}

// ChangeFunc is called after a watcher-driven mutation. kind is one of
// "created", "updated", "deleted". data carries the file bytes for
// created/updated and is nil for deleted.
type ChangeFunc func(kind, name string, data []byte)

// Cache maps canonical prompt names to records. The index is mutated only
// by Initialize (full replace) and by watcher event handlers (single-key
// upsert or delete); no cross-key invariant needs a broader lock.
type Cache struct {
	dir      string
	logger   *slog.Logger
	onChange ChangeFunc

	mu      sync.RWMutex
	records map[string]Record
	loaded  bool

	watchMu  sync.Mutex
	watching bool
	watcher  *fsnotify.Watcher
	done     chan struct{}
}

// New creates a cache over the given prompt directory. onChange may be nil.
func New(dir string, logger *slog.Logger, onChange ChangeFunc) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		dir:      dir,
		logger:   logger,
		onChange: onChange,
		records:  make(map[string]Record),
	}
}

// Initialize performs a fresh full load of the directory. The previous
// index is discarded entirely, never merged. Individual file failures are
// logged and the file omitted; Initialize only fails when the directory
// itself cannot be listed. Safe to call repeatedly; overlapping calls each
// build a local result set and the last to publish wins.
func (c *Cache) Initialize() error {
	// Creation racing another process is fine: MkdirAll treats an
	// existing directory as success.
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("cache: create dir: %w", err)
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("cache: list dir: %w", err)
	}

	local := make(map[string]Record, len(entries))
	for _, e := range entries {
		if e.IsDir() || !eligible(e.Name()) {
			continue
		}
		rec, err := c.load(e.Name())
		if err != nil {
			c.logger.Warn("cache: load failed",
				slog.String("file", e.Name()),
				slog.String("error", err.Error()))
			continue
		}
		local[rec.Name] = rec
	}

	c.mu.Lock()
	c.records = local
	c.loaded = true
	c.mu.Unlock()

	c.logger.Debug("cache: initialized", slog.Int("prompts", len(local)))
	return nil
}

// StartWatching subscribes to filesystem events for the prompt directory.
// Calling it when already watching is a no-op. Pre-existing files are
// covered by Initialize; only events delivered after subscription are
// applied. Watcher-internal errors are logged and watching continues.
func (c *Cache) StartWatching() error {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	if c.watching {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("cache: create watcher: %w", err)
	}
	if err := w.Add(c.dir); err != nil {
		w.Close()
		return fmt.Errorf("cache: watch dir: %w", err)
	}

	c.watcher = w
	c.done = make(chan struct{})
	c.watching = true

	go c.loop(w, c.done)

	c.logger.Info("cache: watching", slog.String("dir", c.dir))
	return nil
}

// Shutdown stops the watcher subscription if active. Safe to call when
// watching was never started.
func (c *Cache) Shutdown() {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	if !c.watching {
		return
	}
	close(c.done)
	_ = c.watcher.Close()
	c.watcher = nil
	c.watching = false
	c.logger.Info("cache: watcher stopped")
}

// loop drains watcher events until the subscription is shut down. Events
// are applied in delivery order; each is a bounded single-file operation.
func (c *Cache) loop(w *fsnotify.Watcher, done chan struct{}) {
	for {
		select {
		case <-done:
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			c.handleEvent(ev)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			// Logged only; never stops watching, never reaches a caller.
			c.logger.Error("cache: watcher error", slog.String("error", err.Error()))
		}
	}
}

func (c *Cache) handleEvent(ev fsnotify.Event) {
	base := filepath.Base(ev.Name)
	if !eligible(base) {
		return
	}
	name := slug.Decode(base)

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		rec, err := c.load(base)
		if err != nil {
			// File may already be gone again; skip.
			c.logger.Warn("cache: reload failed",
				slog.String("file", base),
				slog.String("error", err.Error()))
			return
		}
		c.mu.Lock()
		_, existed := c.records[name]
		c.records[name] = rec
		c.mu.Unlock()

		kind := "updated"
		if !existed {
			kind = "created"
		}
		c.logger.Debug("cache: upserted", slog.String("name", name), slog.String("op", kind))
		c.notify(kind, name, base)

	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		// Rename fires on the old path; the new path arrives as a
		// separate Create event.
		c.mu.Lock()
		delete(c.records, name)
		c.mu.Unlock()
		c.logger.Debug("cache: removed", slog.String("name", name))
		if c.onChange != nil {
			c.onChange("deleted", name, nil)
		}
	}
}

// notify re-reads the file once for downstream consumers that need the
// raw bytes (search index, event feed).
func (c *Cache) notify(kind, name, base string) {
	if c.onChange == nil {
		return
	}
	data, err := os.ReadFile(filepath.Join(c.dir, base))
	if err != nil {
		return
	}
	c.onChange(kind, name, data)
}

// load reads and extracts a single file into a fresh record.
func (c *Cache) load(base string) (Record, error) {
	data, err := os.ReadFile(filepath.Join(c.dir, base))
	if err != nil {
		return Record{}, err
	}
	res := meta.Extract(data)
	return Record{
		Name:    slug.Decode(base),
		Meta:    res.Meta,
		Preview: meta.Preview(res.Body),
	}, nil
}

// Lookup returns the record for a canonical name.
func (c *Cache) Lookup(name string) (Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[name]
	return rec, ok
}

// List returns all records sorted by name.
func (c *Cache) List() []Record {
	c.mu.RLock()
	out := make([]Record, 0, len(c.records))
	for _, rec := range c.records {
		out = append(out, rec)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// IsEmpty reports whether the cache holds no records. It is true both
// before the first Initialize and after one that found an empty directory.
func (c *Cache) IsEmpty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records) == 0
}

// Count returns the number of cached records.
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Loaded reports whether an initial scan has completed.
func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// eligible reports whether a directory entry holds prompt content:
// extension-matching, not dot-prefixed. Subdirectories are never scanned.
func eligible(base string) bool {
	return strings.HasSuffix(base, slug.Extension) && !strings.HasPrefix(base, ".")
}

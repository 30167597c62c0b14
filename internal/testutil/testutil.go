// Package testutil provides shared test helpers for setting up prompt
// directories, caches, and search databases.
package testutil

import (
	"log/slog"
	"os"
	"testing"

	"github.com/starford/ansuz/internal/cache"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/library"
	"github.com/starford/ansuz/internal/promptservice"
)

// Env bundles a fully wired prompt stack over a temporary directory.
type Env struct {
	Dir     string
	Logger  *slog.Logger
	Cache   *cache.Cache
	DB      *index.DB
	Library *library.Library
	Service *promptservice.Service
}

// NewEnv creates a temporary environment that is cleaned up with the test.
// The cache's change hook feeds the search index, mirroring the production
// wiring.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	dir := t.TempDir()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	db := TestDB(t)

	c := cache.New(dir, logger, func(kind, name string, data []byte) {
		if kind == "deleted" {
			_ = db.DeletePrompt(name)
			return
		}
		_ = index.IndexPrompt(db, name, data)
	})
	t.Cleanup(c.Shutdown)

	lib := library.New(dir, c, logger)

	return &Env{
		Dir:     dir,
		Logger:  logger,
		Cache:   c,
		DB:      db,
		Library: lib,
		Service: promptservice.New(lib, db),
	}
}

// SyncIndex reconciles the search index with the directory synchronously,
// for tests that must not wait on watcher delivery.
func (e *Env) SyncIndex(t *testing.T) {
	t.Helper()
	if err := index.Sync(e.DB, e.Dir, e.Logger); err != nil {
		t.Fatalf("index sync: %v", err)
	}
}

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "ansuz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Package promptservice coordinates the prompt library and the search
// index behind the operations exposed to remote callers.
package promptservice

import (
	"context"

	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/library"
	"github.com/starford/ansuz/internal/meta"
)

// PromptDetail is the full representation of a prompt.
type PromptDetail struct {
	Name     string         `json:"name"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// PromptListItem is a lightweight item in a list response.
type PromptListItem struct {
	Name     string         `json:"name"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Preview  string         `json:"preview"`
}

// Service implements the add/get/list/delete/search operations. Only
// apperr.ErrNotFound propagates to callers as an operation failure;
// everything else the lower layers absorb with a log record.
type Service struct {
	lib *library.Library
	db  index.PromptIndex
}

// New creates a prompt service. db may be nil when search is not wired.
func New(lib *library.Library, db index.PromptIndex) *Service {
	return &Service{lib: lib, db: db}
}

// Add writes a prompt wholesale and returns the storage filename stem.
// An existing prompt with the same canonical name is overwritten; the
// lossy name encoding makes such collisions possible and last writer wins.
func (s *Service) Add(_ context.Context, name string, content []byte) (string, error) {
	return s.lib.Write(name, content)
}

// Get returns the full prompt content from disk.
func (s *Service) Get(_ context.Context, name string) (*PromptDetail, error) {
	data, err := s.lib.Read(name)
	if err != nil {
		return nil, err
	}
	res := meta.Extract(data)
	return &PromptDetail{
		Name:     name,
		Content:  string(data),
		Metadata: res.Meta,
	}, nil
}

// List returns all cached prompt records, bootstrapping the cache and its
// watcher on first use.
func (s *Service) List(_ context.Context) ([]PromptListItem, error) {
	recs, err := s.lib.List()
	if err != nil {
		return nil, err
	}
	items := make([]PromptListItem, len(recs))
	for i, r := range recs {
		items[i] = PromptListItem{
			Name:     r.Name,
			Metadata: r.Meta,
			Preview:  r.Preview,
		}
	}
	return items, nil
}

// Delete removes a prompt from disk. The cache and index catch up via
// the watcher.
func (s *Service) Delete(_ context.Context, name string) error {
	return s.lib.Delete(name)
}

// Exists reports disk-level existence, independent of cache state.
func (s *Service) Exists(_ context.Context, name string) bool {
	return s.lib.Exists(name)
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	if s.db == nil {
		return nil, nil
	}
	return s.db.Search(query, limit)
}

package index

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/meta"
	"github.com/starford/ansuz/internal/slug"
)

// Sync walks the prompt directory and brings the index up to date:
//   - new or changed files are extracted and upserted
//   - rows whose files are gone from disk are deleted
//
// Unreadable files are logged and skipped; Sync fails only when the
// directory itself cannot be listed.
func Sync(db *DB, dir string, logger *slog.Logger) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	known, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		base := e.Name()
		if e.IsDir() || !strings.HasSuffix(base, slug.Extension) || strings.HasPrefix(base, ".") {
			continue
		}
		name := slug.Decode(base)
		disk[name] = struct{}{}

		data, err := os.ReadFile(filepath.Join(dir, base))
		if err != nil {
			logger.Warn("sync: read failed", slog.String("file", base), slog.String("error", err.Error()))
			continue
		}
		if known[name] == checksum.Sum(data) {
			continue
		}
		if err := IndexPrompt(db, name, data); err != nil {
			logger.Warn("sync: index failed", slog.String("name", name), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("name", name))
		}
	}

	// Remove stale rows.
	for name := range known {
		if _, ok := disk[name]; !ok {
			if err := db.DeletePrompt(name); err != nil {
				logger.Warn("sync: delete failed", slog.String("name", name), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("name", name))
			}
		}
	}

	return nil
}

// IndexPrompt extracts data and upserts it under the given canonical name.
func IndexPrompt(db *DB, name string, data []byte) error {
	res := meta.Extract(data)
	return db.UpsertPrompt(PromptRow{
		Name:     name,
		Checksum: checksum.Sum(data),
		Meta:     res.Meta,
		Preview:  meta.Preview(res.Body),
	}, res.Body)
}

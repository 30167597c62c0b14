package index

import (
	"encoding/json"
	"fmt"
)

// PromptRow represents a row in the prompts table.
type PromptRow struct {
	Name     string
	Checksum string
	Meta     map[string]any
	Preview  string
}

// SearchResult represents one search hit.
type SearchResult struct {
	Name    string `json:"name"`
	Snippet string `json:"snippet"`
}

// UpsertPrompt inserts or replaces a prompt row and its FTS entry within
// a transaction.
func (db *DB) UpsertPrompt(p PromptRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	metaJSON, _ := json.Marshal(p.Meta)
	if p.Meta == nil {
		metaJSON = []byte("{}")
	}

	_, err = tx.Exec(`
		INSERT INTO prompts (name, checksum, meta, preview, body, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET
			checksum   = excluded.checksum,
			meta       = excluded.meta,
			preview    = excluded.preview,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, p.Name, p.Checksum, string(metaJSON), p.Preview, body)
	if err != nil {
		return fmt.Errorf("index: upsert prompt: %w", err)
	}

	// FTS upsert (no-op when the FTS5 tag is absent).
	if err := ftsUpsert(tx, p.Name, body, string(metaJSON)); err != nil {
		return err
	}

	return tx.Commit()
}

// DeletePrompt removes a prompt row and its FTS entry. Deleting an
// unknown name is a no-op.
func (db *DB) DeletePrompt(name string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, name)
	_, _ = tx.Exec(`DELETE FROM prompts WHERE name = ?`, name)

	return tx.Commit()
}

// AllChecksums returns the stored checksum for every indexed prompt.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT name, checksum FROM prompts`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var name, cs string
		if err := rows.Scan(&name, &cs); err != nil {
			return nil, err
		}
		out[name] = cs
	}
	return out, rows.Err()
}

// Count returns the number of indexed prompts.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM prompts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}

package index

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "ansuz-index-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestUpsertAndSearch(t *testing.T) {
	db := testDB(t)
	err := db.UpsertPrompt(PromptRow{
		Name:     "review",
		Checksum: "abc",
		Meta:     map[string]any{"description": "code review"},
		Preview:  "Check the diff...",
	}, "Check the diff for regressions")
	if err != nil {
		t.Fatalf("UpsertPrompt: %v", err)
	}

	results, err := db.Search("regressions", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Name != "review" {
		t.Errorf("results = %v", results)
	}
}

func TestUpsertReplaces(t *testing.T) {
	db := testDB(t)
	row := PromptRow{Name: "p", Checksum: "v1"}
	if err := db.UpsertPrompt(row, "first body"); err != nil {
		t.Fatal(err)
	}
	row.Checksum = "v2"
	if err := db.UpsertPrompt(row, "second body"); err != nil {
		t.Fatal(err)
	}

	cs, err := db.AllChecksums()
	if err != nil {
		t.Fatal(err)
	}
	if cs["p"] != "v2" {
		t.Errorf("checksum = %q, want v2", cs["p"])
	}
	if n, _ := db.Count(); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}

	if results, _ := db.Search("first", 10); len(results) != 0 {
		t.Errorf("old body still searchable: %v", results)
	}
}

func TestDeletePrompt(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertPrompt(PromptRow{Name: "gone"}, "body"); err != nil {
		t.Fatal(err)
	}
	if err := db.DeletePrompt("gone"); err != nil {
		t.Fatalf("DeletePrompt: %v", err)
	}
	if n, _ := db.Count(); n != 0 {
		t.Errorf("count = %d after delete", n)
	}
	// Unknown name is a no-op.
	if err := db.DeletePrompt("never-existed"); err != nil {
		t.Errorf("delete unknown: %v", err)
	}
}

func TestSync_Reconciles(t *testing.T) {
	db := testDB(t)
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, "alpha.md"), []byte("alpha body"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Pre-seed a stale row with no backing file.
	if err := db.UpsertPrompt(PromptRow{Name: "stale"}, "orphan"); err != nil {
		t.Fatal(err)
	}

	if err := Sync(db, dir, testLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	cs, err := db.AllChecksums()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := cs["alpha"]; !ok {
		t.Error("alpha not indexed")
	}
	if _, ok := cs["stale"]; ok {
		t.Error("stale row not removed")
	}
}

func TestSync_SkipsUnchanged(t *testing.T) {
	db := testDB(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "same.md"), []byte("unchanged"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Sync(db, dir, testLogger()); err != nil {
		t.Fatal(err)
	}
	before, _ := db.AllChecksums()

	if err := Sync(db, dir, testLogger()); err != nil {
		t.Fatal(err)
	}
	after, _ := db.AllChecksums()

	if before["same"] != after["same"] || before["same"] == "" {
		t.Errorf("checksum changed across no-op sync: %q vs %q", before["same"], after["same"])
	}
}

func TestIndexPrompt_ExtractsMetadata(t *testing.T) {
	db := testDB(t)
	data := []byte("---\naudience: reviewers\n---\nSummarize the change set")
	if err := IndexPrompt(db, "summary", data); err != nil {
		t.Fatalf("IndexPrompt: %v", err)
	}
	results, err := db.Search("reviewers", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Name != "summary" {
		t.Errorf("results = %v", results)
	}
}
